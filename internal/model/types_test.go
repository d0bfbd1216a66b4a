package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCuePolicy_String verifies that CuePolicy values produce the expected
// string representations for config files and JSON output.
func TestCuePolicy_String(t *testing.T) {
	tests := []struct {
		policy   CuePolicy
		expected string
	}{
		{PolicySkip, "skip"},
		{PolicyFail, "fail"},
		{PolicyKeep, "keep"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.policy.String())
		})
	}
}

// TestCuePolicy_IsValid checks that only defined policies pass validation.
func TestCuePolicy_IsValid(t *testing.T) {
	assert.True(t, PolicySkip.IsValid())
	assert.True(t, PolicyFail.IsValid())
	assert.True(t, PolicyKeep.IsValid())
	assert.False(t, CuePolicy("drop").IsValid())
	assert.False(t, CuePolicy("").IsValid())
}

// TestParseCuePolicy verifies string-to-policy conversion,
// including case normalization and error cases.
func TestParseCuePolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected CuePolicy
		hasError bool
	}{
		{"skip", PolicySkip, false},
		{"fail", PolicyFail, false},
		{"keep", PolicyKeep, false},
		{"SKIP", PolicySkip, false},   // case insensitive
		{" fail ", PolicyFail, false}, // surrounding whitespace
		{"ignore", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseCuePolicy(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestCue_Duration(t *testing.T) {
	c := Cue{Begin: time.Second, End: 3500 * time.Millisecond}
	assert.Equal(t, 2500*time.Millisecond, c.Duration())

	// An inverted range never yields a negative duration.
	inverted := Cue{Begin: 5 * time.Second, End: time.Second}
	assert.Equal(t, time.Duration(0), inverted.Duration())
}

func TestCue_Lines(t *testing.T) {
	assert.Equal(t, []string{"Hello", "World"}, (&Cue{Text: "Hello\nWorld"}).Lines())
	assert.Equal(t, []string{"Hi"}, (&Cue{Text: "Hi"}).Lines())
	assert.Nil(t, (&Cue{}).Lines())
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitInputNotFound, "input directory not found")
		assert.Equal(t, ExitInputNotFound, err.Code)
		assert.Equal(t, "input directory not found", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := WrapCLIError(ExitGeneralError, "failed to write output", inner)
		assert.Equal(t, ExitGeneralError, err.Code)
		assert.Contains(t, err.Error(), "permission denied")
		assert.Equal(t, inner, err.Unwrap())
	})

	// Verify errors.Is works with unwrapped errors (Go 1.13+ error chain).
	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := WrapCLIError(ExitGeneralError, "failed to write output", inner)
		assert.True(t, errors.Is(err, inner))
	})
}
