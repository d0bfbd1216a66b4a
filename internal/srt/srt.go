// Package srt renders SubRip (SRT) subtitle documents.
//
// An SRT document is a sequence of blocks separated by a blank line:
//
//	1
//	00:00:01,000 --> 00:00:02,000
//	Hi
//
// Every block, including the last one, is terminated by "\n\n". A block
// without text ends right after its time range, so it never produces two
// consecutive blank lines.
package srt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Arrow separates the begin and end timestamps of a block.
const Arrow = " --> "

// Block is one numbered SRT entry. Begin and End are already formatted
// timestamps (see FormatTimestamp).
type Block struct {
	Index int
	Begin string
	End   string
	Text  string
}

// TimeRange returns the "{begin} --> {end}" line of the block.
func (b Block) TimeRange() string {
	return b.Begin + Arrow + b.End
}

// FormatTimestamp renders d as HH:MM:SS,mmm. Sub-millisecond remainders are
// truncated, negative durations clamp to zero. Hours are not capped at 99.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int64(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int64(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int64(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int64(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Writer streams blocks to an underlying io.Writer. Output is buffered;
// call Flush once the last block is written.
type Writer struct {
	cw *countingWriter
	bw *bufio.Writer
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	cw := &countingWriter{w: w}
	return &Writer{cw: cw, bw: bufio.NewWriter(cw)}
}

// WriteBlock buffers one block.
func (w *Writer) WriteBlock(b Block) error {
	return writeBlock(w.bw, b)
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Written reports the number of bytes that reached the underlying writer.
func (w *Writer) Written() int64 {
	return w.cw.n
}

// Write renders blocks to dst and returns the number of bytes written.
func Write(dst io.Writer, blocks []Block) (int64, error) {
	w := NewWriter(dst)
	for _, b := range blocks {
		if err := w.WriteBlock(b); err != nil {
			return w.Written(), err
		}
	}
	err := w.Flush()
	return w.Written(), err
}

// Format renders blocks into a string. An empty slice yields "".
func Format(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		// strings.Builder never returns a write error.
		_ = writeBlock(&sb, b)
	}
	return sb.String()
}

type stringWriter interface {
	WriteString(s string) (int, error)
}

// writeBlock emits the parts of a block: index, time range, text and the
// blank separator line.
func writeBlock(w stringWriter, b Block) error {
	parts := []string{strconv.Itoa(b.Index), "\n", b.TimeRange(), "\n"}
	if b.Text != "" {
		parts = append(parts, b.Text, "\n")
	}
	parts = append(parts, "\n")
	for _, part := range parts {
		if _, err := w.WriteString(part); err != nil {
			return err
		}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
