package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrUnsupportedKind is returned for a field kind the renderer has no
	// prompt for.
	ErrUnsupportedKind = errors.New("tui: unsupported field kind")
	// ErrTooManyAttempts is returned when the session keeps rejecting the
	// entered values.
	ErrTooManyAttempts = errors.New("tui: too many submission attempts")
)
