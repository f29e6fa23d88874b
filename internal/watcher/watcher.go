// Package watcher watches an ingestion dropbox directory and routes new
// data files to the loaders: reference CSVs and workbooks on one path,
// filing documents on another.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Writes to large CSV drops arrive in bursts; the debounce makes sure a
// file is ingested once, after the last write.
const defaultDebounce = 400 * time.Millisecond

// dataExtensions are reference-data drops handled by the loader.
var dataExtensions = map[string]bool{
	".csv":  true,
	".json": true,
	".xlsx": true,
}

// filingExtensions are filing documents handled by the extractor.
var filingExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

// Watcher watches the dropbox and invokes the ingestion callbacks.
type Watcher struct {
	root     string
	onData   func(path string)
	onFiling func(path string)
	debounce time.Duration

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	pending  map[string]*time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for event diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the write-settle delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over root. onData receives reference-data
// files (.csv, .json, .xlsx); onFiling receives filing documents (.pdf,
// .docx, .txt). Either callback may be nil.
func NewWatcher(root string, onData, onFiling func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		onData:   onData,
		onFiling: onFiling,
		debounce: defaultDebounce,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The dropbox is created if missing and watched
// recursively. Runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if err := w.addTreeLocked(w.root); err != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	w.logger.Debug("watcher started", zap.String("root", w.root))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	switch ev.Op {
	case fsnotify.Create, fsnotify.Write:
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			// Batch drops arrive as whole directories.
			w.mu.Lock()
			if err := w.addTreeLocked(path); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			}
			w.mu.Unlock()
			w.ingestExisting(path)
			return
		}
		if w.route(path) != nil {
			w.scheduleIngest(path)
		}
	case fsnotify.Remove, fsnotify.Rename:
		w.cancelIngest(path)
	}
}

// route returns the callback responsible for the file, or nil when the
// extension is not an ingestible type.
func (w *Watcher) route(path string) func(string) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case dataExtensions[ext]:
		return w.onData
	case filingExtensions[ext]:
		return w.onFiling
	default:
		return nil
	}
}

func (w *Watcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.logger.Debug("ingesting file", zap.String("path", path))
		if callback := w.route(path); callback != nil {
			callback(path)
		}
	})
	w.pending[path] = t
}

func (w *Watcher) cancelIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// ingestExisting schedules every ingestible file already in the tree.
func (w *Watcher) ingestExisting(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.route(path) != nil {
			w.scheduleIngest(path)
		}
		return nil
	})
}

// addTreeLocked watches root and every subdirectory, creating the root if
// it does not exist. Caller holds w.mu.
func (w *Watcher) addTreeLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Stop stops the watcher and cancels all pending ingests.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
			w.watcher = nil
		}
		w.started = false
		w.mu.Unlock()
	})
}
