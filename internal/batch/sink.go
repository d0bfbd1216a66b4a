package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutputExists is returned by DirSink when the target file exists and
// overwriting is disabled.
var ErrOutputExists = errors.New("output file already exists")

// Sink stores converted documents.
type Sink interface {
	// Write stores data under name and returns the number of bytes
	// written.
	Write(ctx context.Context, name string, data []byte) (int, error)
}

// DirSink writes documents as files of one directory, creating it on the
// first write.
type DirSink struct {
	// Dir is the output directory.
	Dir string

	// Overwrite allows replacing existing files.
	Overwrite bool
}

// Write creates or replaces Dir/name.
func (s *DirSink) Write(ctx context.Context, name string, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !s.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	path := filepath.Join(s.Dir, name)
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return 0, err
	}

	n, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Path returns the file a document named name is written to.
func (s *DirSink) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// OutputName maps a source name to its SRT name by replacing the extension
// with ".srt". A name without extension gets ".srt" appended.
func OutputName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".srt"
}
