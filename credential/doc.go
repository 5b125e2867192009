// Package credential defines the token store used by the authenticated
// transport and the API client.
//
// A store holds the current access/refresh token pair and the identifier used
// at login. It performs no validation of token shape. The in-memory
// implementation is sufficient for tests and short-lived CLI sessions; the
// file store persists the snapshot to any afs URL (file://, mem://) so that a
// session survives process restarts.
package credential
