package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source enumerates and reads input documents.
type Source interface {
	// List returns the document names in processing order.
	List(ctx context.Context) ([]string, error)

	// Read returns the content of one listed document.
	Read(ctx context.Context, name string) ([]byte, error)
}

// DefaultExtensions is the source filter used when none is configured.
var DefaultExtensions = []string{".ttml", ".xml"}

// DirSource reads the files of a single directory. Subdirectories are not
// descended into.
type DirSource struct {
	// Dir is the directory to list.
	Dir string

	// Extensions filters file names by extension, case-insensitively.
	// Empty means DefaultExtensions.
	Extensions []string
}

// List returns the matching regular files of Dir, sorted by name.
// Symbolic links are followed; links to directories are skipped.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// os.ReadDir returns entries sorted by filename.
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if !s.matches(e.Name()) {
			continue
		}
		mode := e.Type()
		if mode&os.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(s.Dir, e.Name()))
			if err != nil {
				continue
			}
			mode = info.Mode()
		}
		if !mode.IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Read returns the content of Dir/name.
func (s *DirSource) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.Dir, name))
}

func (s *DirSource) matches(name string) bool {
	exts := s.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	ext := filepath.Ext(name)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
