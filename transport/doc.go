// Package transport implements an http.RoundTripper that attaches bearer
// credentials from a credential.Store and transparently recovers from expired
// access tokens when a server answers `401 Unauthorized`.
//
// Concurrent requests that hit 401 share a single refresh call: the first one
// owns the refresh, the others queue behind it on a Coordinator and are
// replayed, in arrival order, with the new access token once it settles.
// A replayed request that is rejected again is surfaced as-is, so the
// pipeline always terminates.
package transport
