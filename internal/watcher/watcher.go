// Package watcher monitors an inbox directory for new annotation documents
// and enqueues a pending run for each one.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roughcut/roughcut-agent/internal/annotate"
	"github.com/roughcut/roughcut-agent/internal/logging"
	"github.com/roughcut/roughcut-agent/internal/run"
)

// settleDelay gives the producing process time to finish writing the file
// before we try to parse it.
const settleDelay = 500 * time.Millisecond

// maxInflight caps concurrent handle goroutines so a burst of dropped files
// cannot fan out unbounded.
const maxInflight = 4

type Watcher struct {
	inboxDir string
	repo     run.Repository
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	sem      chan struct{}

	mu       sync.Mutex
	enqueued map[string]bool
}

func New(inboxDir string, repo run.Repository, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(inboxDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &Watcher{
		inboxDir: inboxDir,
		repo:     repo,
		logger:   logger,
		fsw:      fsw,
		sem:      make(chan struct{}, maxInflight),
		enqueued: make(map[string]bool),
	}, nil
}

// Start blocks, handling filesystem events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("inbox watcher started", "dir", logging.SanitizePath(w.inboxDir))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			// A freshly dropped file surfaces as Create, then a burst of
			// Writes; the enqueued set keeps it to one run.
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isAnnotationFile(event.Name) {
				continue
			}
			w.dispatch(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// dispatch runs handle off the event loop so the settle delay never stalls
// event delivery. The semaphore bounds in-flight handlers.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	go func() {
		defer func() { <-w.sem }()
		w.handle(ctx, path)
	}()
}

func (w *Watcher) handle(ctx context.Context, path string) {
	w.mu.Lock()
	if w.enqueued[path] {
		w.mu.Unlock()
		return
	}
	w.enqueued[path] = true
	w.mu.Unlock()

	select {
	case <-ctx.Done():
		w.forget(path)
		return
	case <-time.After(settleDelay):
	}

	if _, err := annotate.LoadDocument(path); err != nil {
		w.logger.Warn("ignoring invalid annotation document",
			"path", logging.SanitizePath(path),
			"error", err,
		)
		w.forget(path)
		return
	}

	newRun := run.New(path)
	if err := w.repo.CreateRun(ctx, newRun); err != nil {
		w.logger.Error("failed to enqueue run", "path", logging.SanitizePath(path), "error", err)
		w.forget(path)
		return
	}

	w.logger.Info("annotation document enqueued",
		"run_id", newRun.ID,
		"path", logging.SanitizePath(path),
	)
}

// forget allows a rejected path to be retried when it changes again.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.enqueued, path)
	w.mu.Unlock()
}

func isAnnotationFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}
