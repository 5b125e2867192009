// Package cli implements the khub command line: login and logout, settings
// inspection and updates, and conversations with optional streamed replies.
package cli
