// Package model defines the domain types and value objects for the
// ttml2srt CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (Cue, CuePolicy, FileStatus) are transient representations
// that live for the duration of a single conversion call or batch run;
// there are no persistent state files.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
