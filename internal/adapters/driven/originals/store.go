// Package originals archives an untouched copy of every ingested file on
// the local filesystem.
package originals

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

var _ driven.OriginalsStore = (*Store)(nil)

// Store writes original copies into a single directory. Each stored name
// carries a timestamp prefix so repeated uploads of the same filename
// never overwrite earlier copies.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates the originals directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".casekb", "originals")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating originals directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the originals directory.
func (s *Store) Dir() string {
	return s.dir
}

// Store writes content under a timestamped, sanitized name and returns
// the stored path.
func (s *Store) Store(_ context.Context, declaredFilename string, content []byte) (string, error) {
	name := fmt.Sprintf("%s_%s", s.now().UTC().Format("20060102T150405.000000000"),
		safeFilename(declaredFilename))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("writing original copy: %w", err)
	}
	return path, nil
}

// Remove deletes a stored original. Paths outside the originals
// directory are rejected.
func (s *Store) Remove(_ context.Context, storedPath string) error {
	if filepath.Dir(storedPath) != s.dir {
		return fmt.Errorf("refusing to remove %s: outside originals directory", storedPath)
	}
	if err := os.Remove(storedPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("removing original copy: %w", err)
	}
	return nil
}

// safeFilename strips path components and replaces characters that are
// unsafe in filenames.
func safeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "unnamed"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
