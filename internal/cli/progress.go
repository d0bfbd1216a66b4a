package cli

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/shinji-kodama/ttml2srt/internal/batch"
)

// isTerminal reports whether w is a terminal (including Cygwin/MSYS
// pseudo terminals on Windows).
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressBar renders batch progress as a single mpb bar.
type progressBar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgressBar(ctx context.Context, w io.Writer) *progressBar {
	return &progressBar{
		p: mpb.NewWithContext(ctx, mpb.WithOutput(w), mpb.WithWidth(40)),
	}
}

// Start adds the bar once the number of files is known. An empty batch
// gets no bar.
func (b *progressBar) Start(total int) {
	if total == 0 {
		return
	}
	b.bar = b.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("converting "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
}

// File advances the bar by one file.
func (b *progressBar) File(batch.FileResult) {
	if b.bar != nil {
		b.bar.Increment()
	}
}

// Wait flushes the bar. An unfinished bar (cancelled batch) is aborted
// and left on screen.
func (b *progressBar) Wait() {
	if b.bar != nil && !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}
