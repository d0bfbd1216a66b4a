package model

import (
	"fmt"
	"strings"
	"time"
)

// Cue is one subtitle entry, derived from one timed-text <p> element.
//
// The raw attribute strings are kept next to the resolved times so that
// error messages and the legacy pass-through policy can refer to exactly
// what the source document said.
type Cue struct {
	// Index is the 1-based position of the cue in the emitted SRT document.
	// It is assigned by the converter and is contiguous even when some
	// source elements were dropped.
	Index int `json:"index"`

	// BeginRaw, EndRaw and DurRaw are the begin/end/dur attribute values as
	// found in the source. EndRaw and DurRaw may be empty.
	BeginRaw string `json:"beginRaw"`
	EndRaw   string `json:"endRaw,omitempty"`
	DurRaw   string `json:"durRaw,omitempty"`

	// Begin and End are the resolved cue times relative to the start of
	// the document.
	Begin time.Duration `json:"begin"`
	End   time.Duration `json:"end"`

	// Text is the cue body. Line breaks are literal "\n" characters and
	// the whole text is trimmed.
	Text string `json:"text"`
}

// Duration returns how long the cue stays on screen.
// A cue whose end precedes its begin has a zero duration.
func (c *Cue) Duration() time.Duration {
	if c.End < c.Begin {
		return 0
	}
	return c.End - c.Begin
}

// Lines splits the cue body into its display lines.
func (c *Cue) Lines() []string {
	if c.Text == "" {
		return nil
	}
	return strings.Split(c.Text, "\n")
}

// CuePolicy decides what the converter does with a cue it cannot resolve
// (missing begin, no end and no dur, unparseable time expression).
type CuePolicy string

const (
	// PolicySkip drops the offending cue, records a CueError and continues
	// with the rest of the document. This is the default.
	PolicySkip CuePolicy = "skip"

	// PolicyFail turns the first cue error into a document-level failure.
	PolicyFail CuePolicy = "fail"

	// PolicyKeep passes unparseable time expressions through the legacy
	// textual normalization ("." → ",", T/Z stripped) instead of dropping
	// the cue. Cues without any end time are still dropped.
	PolicyKeep CuePolicy = "keep"
)

// String returns the string representation of CuePolicy.
func (p CuePolicy) String() string {
	return string(p)
}

// IsValid checks whether the CuePolicy value is one of the predefined
// policies.
func (p CuePolicy) IsValid() bool {
	switch p {
	case PolicySkip, PolicyFail, PolicyKeep:
		return true
	default:
		return false
	}
}

// ParseCuePolicy converts a string to a CuePolicy.
// Returns an error if the string does not match any valid policy.
func ParseCuePolicy(s string) (CuePolicy, error) {
	policy := CuePolicy(strings.ToLower(strings.TrimSpace(s)))
	if !policy.IsValid() {
		return "", fmt.Errorf("invalid cue policy: %q (valid: skip, fail, keep)", s)
	}
	return policy, nil
}

// FileStatus is the outcome of converting one file in a batch.
type FileStatus string

const (
	// FileConverted means the SRT output was written.
	FileConverted FileStatus = "converted"

	// FileFailed means the file could not be read, converted or written.
	FileFailed FileStatus = "failed"

	// FileCancelled means the batch was cancelled before the file was
	// processed.
	FileCancelled FileStatus = "cancelled"
)

// String returns the string representation of FileStatus.
func (s FileStatus) String() string {
	return string(s)
}

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidTTML indicates the input document is not well-formed XML
	// (or, with the fail policy, contains an unresolvable cue).
	ExitInvalidTTML ExitCode = 2

	// ExitPartialFailure indicates a batch finished but at least one file
	// failed to convert.
	ExitPartialFailure ExitCode = 3

	// ExitConfigError indicates the configuration file or flags are invalid.
	ExitConfigError ExitCode = 4

	// ExitInputNotFound indicates the input file or directory does not exist.
	ExitInputNotFound ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
