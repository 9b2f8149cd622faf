// Package watch ingests files dropped into a watched folder.
// Each new or modified file is given a short settle period so partially
// written files are not picked up mid-copy, then fed through the
// ingestion pipeline.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driving"
	"github.com/custodia-labs/casekb/internal/logger"
)

// DefaultSettle is how long a file must stay quiet before ingestion.
const DefaultSettle = 500 * time.Millisecond

// EventCallback is called after each watcher-driven ingestion attempt.
// outcome is zero-valued when err is non-nil.
type EventCallback func(path string, outcome domain.IngestOutcome, err error)

// Watcher ingests files dropped into a single directory.
type Watcher struct {
	ingestor driving.Ingestor
	dir      string
	settle   time.Duration
	cb       EventCallback

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a drop-folder watcher over dir. settle <= 0 uses
// DefaultSettle. cb may be nil.
func NewWatcher(ingestor driving.Ingestor, dir string, settle time.Duration, cb EventCallback) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		ingestor: ingestor,
		dir:      dir,
		settle:   settle,
		cb:       cb,
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches the drop folder until ctx is cancelled. Files already
// present when Run starts are ingested first, so a folder filled while
// the watcher was down is drained on startup.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}

	logger.Info("watch: started on %s", w.dir)

	w.drainExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			logger.Info("watch: stopped")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if ignored(ev.Name) {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			w.schedule(ctx, ev.Name)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: error: %v", watchErr)
		}
	}
}

// drainExisting ingests files already sitting in the drop folder.
func (w *Watcher) drainExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("watch: reading drop folder: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || ignored(entry.Name()) {
			continue
		}
		w.ingest(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

// schedule resets the settle timer for path. The file is ingested only
// once it has been quiet for the settle period.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path)
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("watch: reading %s: %v", path, err)
		if w.cb != nil {
			w.cb(path, domain.IngestOutcome{}, err)
		}
		return
	}

	raw := domain.RawFile{
		DeclaredFilename: filepath.Base(path),
		Path:             path,
		Content:          content,
	}

	outcome, err := w.ingestor.Ingest(ctx, raw)
	if err != nil {
		logger.Warn("watch: ingesting %s: %v", path, err)
	} else {
		logger.Info("watch: %s %s (%s)", outcome.Status, raw.DeclaredFilename, outcome.DocumentID)
	}
	if w.cb != nil {
		w.cb(path, outcome, err)
	}
}

// ignored filters out dotfiles and common partial-transfer suffixes.
func ignored(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch {
	case strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasSuffix(name, ".part"),
		strings.HasSuffix(name, ".crdownload"):
		return true
	}
	return false
}
