// Package server exposes the password-based encryption routine over HTTP.
//
// Routes:
//
//	GET  /health        liveness
//	POST /api/encrypt   {"password","text","format"?} -> {"data","format"}
//	POST /api/decrypt   {"password","data","format"?} -> {"text"}
//	GET  /metrics       go-metrics registry as JSON
//
// Request bodies are never logged.
package server
