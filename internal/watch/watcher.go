// Package watch triggers ingestion passes when files change in a
// watched directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// DefaultDebounce is how long the watcher waits after the last
// filesystem event before triggering an ingestion pass. Editors and
// file copies produce bursts of events; one pass per burst is enough.
const DefaultDebounce = 2 * time.Second

// Watcher runs ingestion passes in response to filesystem changes.
type Watcher struct {
	dir      string
	source   driven.DocumentSource
	ingestor driving.IngestOrchestrator
	debounce time.Duration
	logger   *slog.Logger

	// OnResult, if set, is called after each completed pass.
	OnResult func(*domain.IngestResult)
}

// Config holds configuration for creating a Watcher.
type Config struct {
	// Dir is the directory to watch (required).
	Dir string

	// Source is the document source whose passes are triggered (required).
	Source driven.DocumentSource

	// Ingestor runs the passes (required).
	Ingestor driving.IngestOrchestrator

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	// Logger for watch events. Defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a Watcher for the given directory.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch: directory is required")
	}
	if cfg.Source == nil || cfg.Ingestor == nil {
		return nil, fmt.Errorf("watch: source and ingestor are required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watcher{
		dir:      cfg.Dir,
		source:   cfg.Source,
		ingestor: cfg.Ingestor,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
	}, nil
}

// Run watches the directory until ctx is cancelled. An initial pass
// runs before watching so the index reflects the directory state at
// startup. Pass failures are logged, not fatal: the watcher keeps
// running and the next change retries.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.logger.Info("watching directory", "dir", w.dir, "debounce", w.debounce)

	w.runPass(ctx)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("filesystem event", "op", event.Op.String(), "path", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			w.runPass(ctx)
		}
	}
}

// relevant reports whether an event should schedule a pass. Only PDF
// files matter, and chmod-only events never change content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".pdf")
}

func (w *Watcher) runPass(ctx context.Context) {
	result, err := w.ingestor.Ingest(ctx, w.source)
	if err != nil {
		w.logger.Error("ingestion pass failed", "error", err)
		return
	}
	if w.OnResult != nil {
		w.OnResult(result)
	}
}
