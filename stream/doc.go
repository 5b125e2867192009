// Package stream decodes the server-sent-event body of the streaming chat
// endpoint into a lazy sequence of text deltas.
//
// Frames are separated by a blank line and may be split across reads at any
// byte, including inside a multi-byte character. Frames without a data field,
// malformed payloads and empty deltas are skipped; the `[DONE]` sentinel or
// the end of the body terminates the sequence with exactly one Done item.
package stream
