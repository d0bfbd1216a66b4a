// Package cli implements the cobra-based CLI commands for ttml2srt.
//
// Each subcommand (convert, batch) is defined in its own file within this
// package. This file defines the root command that serves as the parent for
// all subcommands and handles global flags, configuration loading and
// error-to-exit-code mapping.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ttml2srt/internal/config"
	"github.com/shinji-kodama/ttml2srt/internal/model"
	"github.com/shinji-kodama/ttml2srt/internal/ttml"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// It also switches the log handler to JSON records.
	jsonOutput bool

	// verbose enables detailed logging output for debugging.
	// When true, the log level drops to debug and [verbose] traces are
	// printed to stderr.
	verbose bool

	// configPath is an explicit configuration file. When empty, the
	// current directory is searched for .ttml2srt.{yaml,yml,json}.
	configPath string
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action. The work is done by
// the convert and batch subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ttml2srt",
		Short: "Convert TTML timed-text subtitles to SubRip (SRT)",
		Long: `ttml2srt converts TTML / DFXP subtitle documents into SRT files.

Each <p> element becomes one numbered SRT block. Clock times, offset times
and frame-based times are supported; a cue without an end time uses its
duration instead.

Convert a single file with "convert", or a whole folder with "batch".`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// Execute formats them (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Configuration file (default: ./.ttml2srt.yaml, .yml or .json if present)")

	rootCmd.AddCommand(NewConvertCommand())
	rootCmd.AddCommand(NewBatchCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		code, message, underlying := describeError(err)
		printError(os.Stderr, message, underlying)
		os.Exit(int(code))
	}
}

// describeError maps an error returned by a command to its exit code.
// CLIError carries its own code; a bare converter error is still reported
// as invalid input. Everything else exits with code 1.
func describeError(err error) (model.ExitCode, string, error) {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code, cliErr.Message, cliErr.Err
	}

	var parseErr *ttml.ParseError
	var cueErr *ttml.CueError
	if errors.As(err, &parseErr) || errors.As(err, &cueErr) {
		return model.ExitInvalidTTML, err.Error(), nil
	}

	return model.ExitGeneralError, err.Error(), nil
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig resolves the configuration file (explicit --config first,
// then discovery in the working directory) and returns it.
func loadConfig() (*config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.Resolve(configPath, dir)
	if err != nil {
		return nil, err // Resolve already returns CLIError with ExitConfigError
	}
	if cfg.Path != "" {
		VerboseLog("Loaded configuration from %s", cfg.Path)
	} else {
		VerboseLog("No configuration file found, using defaults")
	}
	return cfg, nil
}

// applyCuePolicyFlag overrides the configured policy when --on-cue-error
// was given on the command line.
func applyCuePolicyFlag(cmd *cobra.Command, cfg *config.Config, value string) error {
	if !cmd.Flags().Changed("on-cue-error") {
		return nil
	}
	policy, err := model.ParseCuePolicy(value)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid --on-cue-error value", err)
	}
	cfg.OnCueError = policy
	return nil
}

// addContainerOffsetsFlag registers --container-offsets on cmd.
func addContainerOffsetsFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVar(target, "container-offsets", false,
		"Add begin times of enclosing body/div elements to cue times")
}

// applyContainerOffsetsFlag overrides the configured value when
// --container-offsets was given on the command line.
func applyContainerOffsetsFlag(cmd *cobra.Command, cfg *config.Config, value bool) {
	if cmd.Flags().Changed("container-offsets") {
		cfg.ContainerOffsets = value
	}
}

// newLogger builds the slog logger used for conversion progress.
// Records are JSON with --json, text otherwise; --verbose forces the
// debug level. floor raises the minimum level (used while a progress bar
// owns the terminal).
func newLogger(w io.Writer, cfg *config.Config, floor slog.Level) *slog.Logger {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	} else if level < floor {
		level = floor
	}

	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
