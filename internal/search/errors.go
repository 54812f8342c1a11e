package search

import "github.com/rotisserie/eris"

// Sentinels returned by Results.Next. They are returned unwrapped so callers
// may compare with errors.Is.
var (
	// ErrExhausted marks the normal end of a result sequence.
	ErrExhausted = eris.New("search: results exhausted")

	// ErrNotReady is returned by a non-blocking handle when no record has
	// been produced yet. Poll again later.
	ErrNotReady = eris.New("search: no result ready")

	// ErrClosed is returned after Close.
	ErrClosed = eris.New("search: results closed")
)
