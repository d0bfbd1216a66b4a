package ttml

import (
	"errors"
	"fmt"
)

// invalidTTMLMessage is the user-facing message of every ParseError.
const invalidTTMLMessage = "Invalid TTML file."

// Sentinel reasons carried by CueError. Use errors.Is to test for them.
var (
	// ErrMissingBegin means the cue element has no begin attribute.
	ErrMissingBegin = errors.New("missing begin attribute")

	// ErrUnresolvableEnd means the cue element has neither an end nor a
	// dur attribute, or the end could not be computed from them.
	ErrUnresolvableEnd = errors.New("no resolvable end time")

	// ErrBadTime means a time expression uses a syntax the parser does
	// not understand.
	ErrBadTime = errors.New("unsupported time expression")
)

// ParseError reports that the input is not well-formed XML.
// It is the only document-level error of Convert under the skip and keep
// policies.
type ParseError struct {
	// Err is the underlying XML decoder error.
	Err error
}

// Error returns the fixed user-facing message. The decoder detail is
// available through Unwrap.
func (e *ParseError) Error() string {
	return invalidTTMLMessage
}

// Unwrap returns the underlying XML error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// CueError describes one <p> element that could not be turned into a cue.
type CueError struct {
	// Position is the 1-based position of the element among all <p>
	// elements of the document (not the emitted SRT index).
	Position int

	// Attr names the offending attribute ("begin", "end", "dur"), if any.
	Attr string

	// Value is the raw attribute value.
	Value string

	// Err is one of the sentinel reasons, possibly wrapped.
	Err error
}

func (e *CueError) Error() string {
	if e.Attr != "" && e.Value != "" {
		return fmt.Sprintf("cue %d: %s=%q: %v", e.Position, e.Attr, e.Value, e.Err)
	}
	return fmt.Sprintf("cue %d: %v", e.Position, e.Err)
}

// Unwrap returns the reason, so errors.Is(err, ErrUnresolvableEnd) works.
func (e *CueError) Unwrap() error {
	return e.Err
}
