package data

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// StopTypingMarker is the file the send side creates once a reply is out
const StopTypingMarker = "stop-typing"

// RequestStopTyping creates the stop-typing marker in stateDir
func RequestStopTyping(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(stateDir, StopTypingMarker)
	if err := os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644); err != nil {
		return fmt.Errorf("failed to write stop marker: %w", err)
	}
	return nil
}

// MarkerWatcher consumes the stop-typing marker. Each time the marker
// appears it is deleted and onSignal is called.
type MarkerWatcher struct {
	dir      string
	path     string
	onSignal func()
	fallback time.Duration
	logger   *slog.Logger
}

// NewMarkerWatcher creates a watcher for stateDir. A marker left over from a
// previous run is removed.
func NewMarkerWatcher(stateDir string, onSignal func(), logger *slog.Logger) (*MarkerWatcher, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(stateDir, StopTypingMarker)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to clear stale marker: %w", err)
	}
	return &MarkerWatcher{
		dir:      stateDir,
		path:     path,
		onSignal: onSignal,
		fallback: time.Second,
		logger:   logging.Component(logger, logging.CompMarker),
	}, nil
}

// Run watches until ctx is done. If fsnotify is unavailable it falls back to
// polling the marker path.
func (w *MarkerWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(w.dir)
		if err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		w.logger.Warn("fsnotify unavailable, polling for marker", "dir", w.dir, "error", err)
		return w.poll(ctx)
	}
	defer watcher.Close()

	// Catch markers written between construction and Add
	w.consume()

	ticker := time.NewTicker(w.fallback)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != StopTypingMarker {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.consume()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-ticker.C:
			// Editors and network filesystems can swallow events
			w.consume()
		}
	}
}

func (w *MarkerWatcher) poll(ctx context.Context) error {
	ticker := time.NewTicker(w.fallback)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.consume()
		}
	}
}

// consume deletes the marker if present and fires the signal
func (w *MarkerWatcher) consume() {
	err := os.Remove(w.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		w.logger.Warn("failed to remove marker", "path", w.path, "error", err)
		return
	}
	w.logger.Debug("stop-typing marker consumed")
	if w.onSignal != nil {
		w.onSignal()
	}
}
