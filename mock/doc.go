// Package mock provides an in-process chat backend used to exercise the
// client end to end without a real server.
//
// The backend issues RS256 signed access and refresh tokens, rejects expired
// or invalidated access tokens with 401, keeps versioned per-user settings
// that answer stale updates with 409, and streams assistant replies as
// server-sent events. Counters expose how many refresh calls were made.
package mock
