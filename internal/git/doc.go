// Package git checks how pbetool files sit in a git working tree.
//
// Checks performed:
//   - Whether the store file is tracked (fine: it holds only envelopes)
//   - Whether files that may hold a password, such as .env, are tracked
//     (should not be) or ignored (should be)
package git
