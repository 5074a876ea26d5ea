// internal/watch/watcher.go
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jcapiitao/rdopkg/internal/specfile"
	"github.com/jcapiitao/rdopkg/shared/utils"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events an editor save produces
const DefaultDebounce = 200 * time.Millisecond

// Summary is what the watcher reports after each change of the spec file
type Summary struct {
	Path    string
	Hash    string
	Name    string
	Version string
	Release string
	Patches int
}

// Summarize reads the literal tags of spec.
func Summarize(spec *specfile.Spec) Summary {
	return Summary{
		Path:    spec.Path(),
		Hash:    utils.HashContent([]byte(spec.Text())),
		Name:    spec.GetTagDefault("Name", ""),
		Version: spec.GetTagDefault("Version", ""),
		Release: spec.GetTagDefault("Release", ""),
		Patches: spec.NPatches(),
	}
}

// Watcher re-reads one spec file whenever it changes on disk
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	opts     []specfile.Option
	logger   *zap.Logger

	mu       sync.Mutex
	lastHash string
}

// New watches the directory holding path, so editors that replace the
// file by rename are followed too.
func New(path string, logger *zap.Logger, opts ...specfile.Option) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("adding directory to watcher: %w", err)
	}

	return &Watcher{
		path:     abs,
		watcher:  fw,
		debounce: DefaultDebounce,
		opts:     opts,
		logger:   logger.With(zap.String("spec", abs)),
	}, nil
}

// SetDebounce changes the quiet period before a change is reported
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run reports the current state of the spec and then every change to it
// until ctx is done. Content that did not change since the last report is
// skipped. Read failures are passed to fn and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, fn func(Summary, error)) error {
	w.refresh(fn)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("spec event", zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-timer.C:
			w.refresh(fn)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

func (w *Watcher) refresh(fn func(Summary, error)) {
	spec, err := specfile.Open(w.path, w.opts...)
	if err != nil {
		if _, statErr := os.Stat(w.path); os.IsNotExist(statErr) {
			// mid-rename, the Create event follows
			w.logger.Debug("spec missing", zap.Error(err))
			return
		}
		fn(Summary{Path: w.path}, err)
		return
	}

	s := Summarize(spec)
	w.mu.Lock()
	unchanged := s.Hash == w.lastHash
	w.lastHash = s.Hash
	w.mu.Unlock()
	if unchanged {
		return
	}
	fn(s, nil)
}
