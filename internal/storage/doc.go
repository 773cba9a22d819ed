// Package storage persists named envelopes for pbetool.
//
// Two backends implement Store:
//   - BoltStore: a local BBolt file with two buckets
//   - config: store version, timestamps and store ID (unencrypted)
//   - entries: one JSON-encoded Entry per name
//   - RedisStore: one hash per prefix, field = name, value = JSON Entry
//
// Only envelopes are stored. Passwords, keys and plaintexts never reach
// this package, so listing works without a password.
package storage
