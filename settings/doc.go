// Package settings keeps a local, version-stamped copy of the signed-in user's
// server-side settings.
//
// The server is the source of truth. Every update carries the version the
// client last observed; when the server reports that version as stale the
// store reloads once and returns ErrVersionConflict instead of retrying the
// patch, so concurrent writers never silently clobber each other.
package settings
