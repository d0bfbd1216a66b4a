// Package cli: batch.go implements the "ttml2srt batch" command.
//
// The batch command converts every TTML file of a directory. Each file is
// converted independently; a failing file is reported and the batch goes
// on. The command exits with code 3 when at least one file failed.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ttml2srt/internal/batch"
	"github.com/shinji-kodama/ttml2srt/internal/config"
	"github.com/shinji-kodama/ttml2srt/internal/model"
)

// batchFlags holds the flag values for the batch command.
type batchFlags struct {
	jobs             int
	extensions       []string
	overwrite        bool
	onCueError       string
	normalizeUnicode bool
	containerOffsets bool

	// progress enables the progress bar. It is only drawn when stderr is
	// a terminal and --json is off.
	progress bool
}

// NewBatchCommand creates the "batch" cobra command.
func NewBatchCommand() *cobra.Command {
	flags := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch <input-dir> [output-dir]",
		Short: "Convert every TTML file of a directory",
		Long: `Convert all TTML files of a directory to SRT.

Files are selected by extension (.ttml and .xml by default, case-insensitive).
Subdirectories are not scanned. Each output keeps the source base name with
a .srt extension and is written to output-dir (default: input-dir).

Examples:
  ttml2srt batch ./subs
  ttml2srt batch ./subs ./srt --jobs 4
  ttml2srt batch ./subs --ext .dfxp --overwrite=false`,

		Args: cobra.RangeArgs(1, 2),

		RunE: func(cmd *cobra.Command, args []string) error {
			output := args[0]
			if len(args) == 2 {
				output = args[1]
			}
			return runBatch(cmd, flags, args[0], output)
		},
	}

	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 1, "Number of files converted concurrently")
	cmd.Flags().StringSliceVar(&flags.extensions, "ext", nil,
		"Source extensions (default: .ttml,.xml)")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", true, "Replace existing .srt files")
	cmd.Flags().StringVar(&flags.onCueError, "on-cue-error", "skip",
		"What to do with cues lacking usable times: skip, fail, keep")
	cmd.Flags().BoolVar(&flags.normalizeUnicode, "normalize-unicode", true,
		"Apply Unicode NFC normalization to cue text")
	addContainerOffsetsFlag(cmd, &flags.containerOffsets)
	cmd.Flags().BoolVar(&flags.progress, "progress", true,
		"Show a progress bar when stderr is a terminal")

	return cmd
}

// runBatch is the main logic function for the batch command.
func runBatch(cmd *cobra.Command, flags *batchFlags, inputDir, outputDir string) error {
	// Step 1: Resolve configuration. Flags given explicitly win over the
	// configuration file.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyBatchFlags(cmd, cfg, flags); err != nil {
		return err
	}

	// Step 2: Check the input directory.
	info, err := os.Stat(inputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewCLIError(model.ExitInputNotFound,
				fmt.Sprintf("input directory not found: %s", inputDir))
		}
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to access %s", inputDir), err)
	}
	if !info.IsDir() {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%s is not a directory (use \"convert\" for single files)", inputDir))
	}
	VerboseLog("Converting %v files from %s into %s (jobs: %d)", cfg.Extensions, inputDir, outputDir, cfg.Jobs)

	// Step 3: Stop scheduling new files on Ctrl-C; files in progress finish.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// Step 4: Set up the progress bar and logger. While the bar is drawn,
	// only warnings and errors are logged so records do not tear it.
	stderr := cmd.ErrOrStderr()
	opts := batch.Options{
		Jobs:             cfg.Jobs,
		Policy:           cfg.OnCueError,
		NormalizeUnicode: cfg.NormalizeUnicode,
		ContainerOffsets: cfg.ContainerOffsets,
	}
	floor := slog.LevelDebug
	var bar *progressBar
	if flags.progress && !IsJSONOutput() && isTerminal(stderr) {
		bar = newProgressBar(ctx, stderr)
		opts.OnStart = bar.Start
		opts.OnFile = bar.File
		floor = slog.LevelWarn
	}
	opts.Logger = newLogger(stderr, cfg, floor)

	// Step 5: Run the batch.
	runner := batch.NewRunner(
		&batch.DirSource{Dir: inputDir, Extensions: cfg.Extensions},
		&batch.DirSink{Dir: outputDir, Overwrite: cfg.Overwrite},
		opts,
	)
	report, runErr := runner.Run(ctx)
	if bar != nil {
		bar.Wait()
	}
	if report == nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to list %s", inputDir), runErr)
	}

	// Step 6: Print the summary and derive the exit code.
	printBatchResult(cmd.OutOrStdout(), inputDir, outputDir, report)

	if errors.Is(runErr, context.Canceled) {
		return model.NewCLIError(model.ExitPartialFailure,
			fmt.Sprintf("batch cancelled: %d of %d files not processed", report.Cancelled, report.Total()))
	}
	if report.Failed > 0 {
		return model.NewCLIError(model.ExitPartialFailure,
			fmt.Sprintf("%d of %d files failed to convert", report.Failed, report.Total()))
	}
	return nil
}

// applyBatchFlags copies explicitly set flags over the configuration and
// validates the result.
func applyBatchFlags(cmd *cobra.Command, cfg *config.Config, flags *batchFlags) error {
	if err := applyCuePolicyFlag(cmd, cfg, flags.onCueError); err != nil {
		return err
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs = flags.jobs
	}
	if cmd.Flags().Changed("ext") {
		cfg.Extensions = flags.extensions
	}
	if cmd.Flags().Changed("overwrite") {
		cfg.Overwrite = flags.overwrite
	}
	if cmd.Flags().Changed("normalize-unicode") {
		cfg.NormalizeUnicode = flags.normalizeUnicode
	}
	applyContainerOffsetsFlag(cmd, cfg, flags.containerOffsets)

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid batch options", err)
	}
	return nil
}

// batchFileJSON is the JSON output structure for one file of a batch.
type batchFileJSON struct {
	Source    string   `json:"source"`
	Output    string   `json:"output"`
	Status    string   `json:"status"`
	Cues      int      `json:"cues"`
	Skipped   []string `json:"skipped"`
	Bytes     int      `json:"bytes"`
	ElapsedMS int64    `json:"elapsedMs"`
	Error     string   `json:"error,omitempty"`
}

// batchSummaryJSON holds the batch counters.
type batchSummaryJSON struct {
	Total     int `json:"total"`
	Converted int `json:"converted"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Cues      int `json:"cues"`
	Skipped   int `json:"skipped"`
}

// printBatchResult outputs the report in text or JSON format, depending on
// the global --json flag.
func printBatchResult(w io.Writer, inputDir, outputDir string, report *batch.Report) {
	if IsJSONOutput() {
		printBatchResultJSON(w, inputDir, outputDir, report)
	} else {
		printBatchResultText(w, outputDir, report)
	}
}

func printBatchResultJSON(w io.Writer, inputDir, outputDir string, report *batch.Report) {
	type resultJSON struct {
		Input   string           `json:"input"`
		Output  string           `json:"output"`
		Files   []batchFileJSON  `json:"files"`
		Summary batchSummaryJSON `json:"summary"`
	}

	result := resultJSON{
		Input:  inputDir,
		Output: outputDir,
		// Empty slice instead of nil so an empty batch prints [] not null.
		Files: make([]batchFileJSON, 0, len(report.Files)),
		Summary: batchSummaryJSON{
			Total:     report.Total(),
			Converted: report.Converted,
			Failed:    report.Failed,
			Cancelled: report.Cancelled,
			Cues:      report.Cues,
			Skipped:   report.Skipped,
		},
	}

	for _, f := range report.Files {
		entry := batchFileJSON{
			Source:    f.Source,
			Output:    filepath.Join(outputDir, f.Output),
			Status:    f.Status.String(),
			Cues:      f.Cues,
			Skipped:   make([]string, 0, len(f.Skipped)),
			Bytes:     f.Bytes,
			ElapsedMS: f.Duration.Milliseconds(),
		}
		for _, s := range f.Skipped {
			entry.Skipped = append(entry.Skipped, s.Error())
		}
		if f.Err != nil {
			entry.Error = f.Err.Error()
		}
		result.Files = append(result.Files, entry)
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(w, string(data))
}

// printBatchResultText outputs the report as an aligned table followed by
// the failure details and a one-line summary.
//
//	SOURCE             OUTPUT             STATUS      CUES  SKIPPED
//	ep1.ttml           ep1.srt            converted   412   0
//	broken.ttml        broken.srt         failed      0     0
func printBatchResultText(w io.Writer, outputDir string, report *batch.Report) {
	if report.Total() == 0 {
		fmt.Fprintln(w, "No TTML files found.")
		return
	}

	fmt.Fprintf(w, "%-30s %-30s %-11s %-5s %s\n", "SOURCE", "OUTPUT", "STATUS", "CUES", "SKIPPED")
	for _, f := range report.Files {
		fmt.Fprintf(w, "%-30s %-30s %-11s %-5d %d\n",
			f.Source, f.Output, f.Status.String(), f.Cues, len(f.Skipped))
	}

	var failures []batch.FileResult
	for _, f := range report.Files {
		if f.Status == model.FileFailed {
			failures = append(failures, f)
		}
	}
	if len(failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed:")
		for _, f := range failures {
			fmt.Fprintf(w, "  %s: %v\n", f.Source, f.Err)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", FormatSummary(report))
	VerboseLog("Output directory: %s", outputDir)
}

// FormatSummary renders the batch counters as one line.
//
// Example:
//
//	3 files: 2 converted, 1 failed, 0 cancelled (412 cues, 1 skipped)
func FormatSummary(report *batch.Report) string {
	noun := "files"
	if report.Total() == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s: %d converted, %d failed, %d cancelled (%d cues, %d skipped)",
		report.Total(), noun, report.Converted, report.Failed, report.Cancelled, report.Cues, report.Skipped)
}
