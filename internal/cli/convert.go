// Package cli: convert.go implements the "ttml2srt convert" command.
//
// The convert command converts one TTML document. The SRT output goes to
// stdout unless --output names a file. With --json, a summary object
// (including the SRT text when writing to stdout) is printed instead.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ttml2srt/internal/model"
	"github.com/shinji-kodama/ttml2srt/internal/ttml"
)

// convertFlags holds the flag values for the convert command.
type convertFlags struct {
	// output is the destination file. Empty means stdout.
	output string

	// onCueError overrides the configured cue policy.
	onCueError string

	// normalizeUnicode overrides the configured NFC normalization.
	normalizeUnicode bool

	// containerOffsets overrides the configured container offset handling.
	containerOffsets bool
}

// NewConvertCommand creates the "convert" cobra command.
func NewConvertCommand() *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert one TTML file to SRT",
		Long: `Convert a single TTML document to SRT.

The result is written to stdout, or to the file given with --output.

Examples:
  ttml2srt convert episode.ttml > episode.srt
  ttml2srt convert episode.ttml -o episode.srt
  ttml2srt convert episode.ttml --on-cue-error fail`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output SRT file (default: stdout)")
	cmd.Flags().StringVar(&flags.onCueError, "on-cue-error", "skip",
		"What to do with cues lacking usable times: skip, fail, keep")
	cmd.Flags().BoolVar(&flags.normalizeUnicode, "normalize-unicode", true,
		"Apply Unicode NFC normalization to cue text")
	addContainerOffsetsFlag(cmd, &flags.containerOffsets)

	return cmd
}

// runConvert is the main logic function for the convert command.
func runConvert(cmd *cobra.Command, flags *convertFlags, input string) error {
	// Step 1: Resolve configuration and apply command-line overrides.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyCuePolicyFlag(cmd, cfg, flags.onCueError); err != nil {
		return err
	}
	if cmd.Flags().Changed("normalize-unicode") {
		cfg.NormalizeUnicode = flags.normalizeUnicode
	}
	applyContainerOffsetsFlag(cmd, cfg, flags.containerOffsets)
	logger := newLogger(cmd.ErrOrStderr(), cfg, slog.LevelDebug)

	// Step 2: Read the source document.
	data, err := os.ReadFile(input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewCLIError(model.ExitInputNotFound,
				fmt.Sprintf("input file not found: %s", input))
		}
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to read %s", input), err)
	}
	VerboseLog("Read %d bytes from %s", len(data), input)

	// Step 3: Convert. Parse errors and, with the fail policy, cue errors
	// are reported as invalid input.
	res, err := ttml.ConvertDocument(string(data),
		ttml.WithPolicy(cfg.OnCueError),
		ttml.WithUnicodeNormalization(cfg.NormalizeUnicode),
		ttml.WithContainerOffsets(cfg.ContainerOffsets),
	)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidTTML,
			fmt.Sprintf("failed to convert %s", input), err)
	}
	for _, skipped := range res.Skipped {
		logger.Warn("Skipped cue", "file", input, "error", skipped)
	}
	VerboseLog("Converted %d cues (%d skipped)", len(res.Blocks), len(res.Skipped))

	// Step 4: Write the result.
	if flags.output != "" {
		if err := writeOutputFile(flags.output, res.SRT, cfg.Overwrite); err != nil {
			return err
		}
		VerboseLog("Saved %s", flags.output)
	}

	printConvertResult(cmd.OutOrStdout(), input, flags.output, res)
	return nil
}

// writeOutputFile writes an SRT document, refusing to replace an existing
// file unless overwrite is set.
func writeOutputFile(path, content string, overwrite bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to create output directory", err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("output file already exists: %s (enable overwrite to replace it)", path))
		}
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to create %s", path), err)
	}

	_, err = io.WriteString(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// convertResultJSON is the JSON output structure of the convert command.
type convertResultJSON struct {
	Source  string   `json:"source"`
	Output  string   `json:"output,omitempty"`
	Cues    int      `json:"cues"`
	Skipped []string `json:"skipped"`

	// SRT carries the document when no output file was given.
	SRT string `json:"srt,omitempty"`
}

// printConvertResult prints the SRT document (stdout mode) or nothing
// (file mode) in text format, or a summary object in JSON format.
func printConvertResult(w io.Writer, input, output string, res *ttml.Result) {
	if !IsJSONOutput() {
		if output == "" {
			fmt.Fprint(w, res.SRT)
		}
		return
	}

	result := convertResultJSON{
		Source:  input,
		Output:  output,
		Cues:    len(res.Blocks),
		Skipped: make([]string, 0, len(res.Skipped)),
	}
	for _, s := range res.Skipped {
		result.Skipped = append(result.Skipped, s.Error())
	}
	if output == "" {
		result.SRT = res.SRT
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(w, string(data))
}
