// Package api provides a client for the chat backend REST surface:
// authentication under /api/v1/auth, conversations and messages under
// /api/v1/chat and per-user settings under /api/v1/settings/me.
//
// Successful responses use the {code, message, data} envelope; the client
// unwraps data before decoding. Calls marked unauthenticated travel through
// the raw HTTP client or carry the transport skipAuth flag so they never
// trigger a token refresh.
package api
