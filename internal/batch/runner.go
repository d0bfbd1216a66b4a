package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shinji-kodama/ttml2srt/internal/model"
	"github.com/shinji-kodama/ttml2srt/internal/ttml"
)

// Options configures a Runner.
type Options struct {
	// Jobs is the number of files converted concurrently. Values below 1
	// mean sequential conversion.
	Jobs int

	// Policy is passed to the converter. Empty means model.PolicySkip.
	Policy model.CuePolicy

	// NormalizeUnicode enables NFC normalization of cue text.
	NormalizeUnicode bool

	// ContainerOffsets adds enclosing begin attributes to cue times.
	ContainerOffsets bool

	// Logger receives one record per step. Nil means slog.Default().
	Logger *slog.Logger

	// OnStart, if set, is called once with the number of listed files.
	OnStart func(total int)

	// OnFile, if set, is called after each file, including failed and
	// cancelled ones. Calls are serialized but, with Jobs > 1, not in
	// source order.
	OnFile func(FileResult)
}

// FileResult is the outcome of one source document.
type FileResult struct {
	// Source is the name as listed by the Source.
	Source string

	// Output is the name given to the Sink.
	Output string

	Status model.FileStatus

	// Bytes is the size of the written SRT document.
	Bytes int

	// Cues is the number of emitted SRT blocks.
	Cues int

	// Skipped lists the cues dropped by the skip policy.
	Skipped []*ttml.CueError

	// Duration is the wall time spent on the file.
	Duration time.Duration

	// Err is set when Status is FileFailed or FileCancelled.
	Err error
}

// Report aggregates the results of a batch, in source order.
type Report struct {
	Files []FileResult

	Converted int
	Failed    int
	Cancelled int

	// Cues and Skipped are summed over converted files.
	Cues    int
	Skipped int
}

// Total returns the number of listed files.
func (r *Report) Total() int {
	return len(r.Files)
}

// OK reports whether every listed file was converted.
func (r *Report) OK() bool {
	return r.Failed == 0 && r.Cancelled == 0
}

// Runner converts the documents of a Source into a Sink.
type Runner struct {
	src  Source
	sink Sink
	opts Options
	log  *slog.Logger

	hookMu sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(src Source, sink Sink, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = model.PolicySkip
	}
	return &Runner{src: src, sink: sink, opts: opts, log: logger}
}

// Run converts every listed document.
//
// Per-file failures are recorded in the Report. The returned error is
// non-nil only when the source cannot be listed, or when ctx was cancelled
// (the Report then marks unprocessed files as cancelled).
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.log.Info("Starting conversion")

	names, err := r.src.List(ctx)
	if err != nil {
		return nil, err
	}
	if r.opts.OnStart != nil {
		r.opts.OnStart(len(names))
	}

	results := make([]FileResult, len(names))
	done := make([]bool, len(names))

	// Output names are claimed in source order so that the later file of a
	// colliding pair (a.ttml, a.xml) is the one reported.
	claimed := make(map[string]string, len(names))

	pool := newWorkerPool(r.opts.Jobs)
	for i, name := range names {
		out := OutputName(name)
		key := strings.ToLower(out)
		if first, ok := claimed[key]; ok {
			results[i] = r.fail(FileResult{Source: name, Output: out},
				fmt.Errorf("output %s is already produced by %s", out, first))
			done[i] = true
			r.notify(results[i])
			continue
		}
		claimed[key] = name

		submitted := pool.Submit(ctx, func() {
			start := time.Now()
			res := r.convert(ctx, name, out)
			res.Duration = time.Since(start)
			results[i] = res
			r.notify(res)
		})
		if !submitted {
			break
		}
		done[i] = true
	}
	pool.Stop()

	for i, name := range names {
		if !done[i] {
			results[i] = FileResult{Source: name, Output: OutputName(name), Status: model.FileCancelled, Err: ctx.Err()}
			r.notify(results[i])
		}
	}

	report := summarize(results)
	r.log.Info("Conversion completed",
		"total", report.Total(),
		"converted", report.Converted,
		"failed", report.Failed,
		"cancelled", report.Cancelled,
	)
	return report, ctx.Err()
}

// convert runs the read, convert and write steps for one document.
func (r *Runner) convert(ctx context.Context, name, out string) FileResult {
	res := FileResult{Source: name, Output: out}
	if err := ctx.Err(); err != nil {
		res.Status = model.FileCancelled
		res.Err = err
		return res
	}

	r.log.Info("Processing", "file", name)

	data, err := r.src.Read(ctx, name)
	if err != nil {
		return r.fail(res, fmt.Errorf("failed to read: %w", err))
	}

	doc, err := ttml.ConvertDocument(string(data),
		ttml.WithPolicy(r.opts.Policy),
		ttml.WithUnicodeNormalization(r.opts.NormalizeUnicode),
		ttml.WithContainerOffsets(r.opts.ContainerOffsets),
	)
	if err != nil {
		return r.fail(res, err)
	}
	for _, skipped := range doc.Skipped {
		r.log.Warn("Skipped cue", "file", name, "error", skipped)
	}

	n, err := r.sink.Write(ctx, out, []byte(doc.SRT))
	if err != nil {
		return r.fail(res, fmt.Errorf("failed to write %s: %w", out, err))
	}

	res.Status = model.FileConverted
	res.Bytes = n
	res.Cues = len(doc.Blocks)
	res.Skipped = doc.Skipped
	r.log.Info("Saved", "file", out, "cues", res.Cues, "skipped", len(res.Skipped))
	return res
}

func (r *Runner) fail(res FileResult, err error) FileResult {
	res.Status = model.FileFailed
	res.Err = err
	r.log.Error("Conversion failed", "file", res.Source, "error", err)
	return res
}

func (r *Runner) notify(res FileResult) {
	if r.opts.OnFile == nil {
		return
	}
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.opts.OnFile(res)
}

func summarize(results []FileResult) *Report {
	report := &Report{Files: results}
	for _, f := range results {
		switch f.Status {
		case model.FileConverted:
			report.Converted++
			report.Cues += f.Cues
			report.Skipped += len(f.Skipped)
		case model.FileFailed:
			report.Failed++
		case model.FileCancelled:
			report.Cancelled++
		}
	}
	return report
}
