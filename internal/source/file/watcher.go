package file

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/JonMunkholm/tablemirror/internal/core"
)

// Watcher polls a file and emits DataSourceChanged whenever its modification
// time or size changes.
type Watcher struct {
	path     string
	interval time.Duration
	notifier core.Notifier
	clock    clockwork.Clock
	logger   *slog.Logger

	last fileState
}

type fileState struct {
	modTime time.Time
	size    int64
	exists  bool
}

// NewWatcher creates a watcher. clock may be nil.
func NewWatcher(path string, interval time.Duration, notifier core.Notifier, clock clockwork.Clock, logger *slog.Logger) *Watcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, interval: interval, notifier: notifier, clock: clock, logger: logger}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.last = w.stat()

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watching snapshot file", "path", w.path, "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	cur := w.stat()
	if cur.same(w.last) {
		return
	}
	w.last = cur

	w.logger.Debug("snapshot file changed", "path", w.path, "exists", cur.exists)
	if err := w.notifier.Notify(ctx, core.ChangeSignal{Kind: core.DataSourceChanged}); err != nil {
		w.logger.Warn("failed to deliver change signal", "error", err)
	}
}

func (s fileState) same(o fileState) bool {
	return s.exists == o.exists && s.size == o.size && s.modTime.Equal(o.modTime)
}

func (w *Watcher) stat() fileState {
	info, err := os.Stat(w.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("stat snapshot file", "path", w.path, "error", err)
		}
		return fileState{}
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), exists: true}
}
