package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOnChange sets the callback invoked after a successful reload.
func WithOnChange(fn func(*Config)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked when a reload fails. The watcher
// keeps running after a failed reload.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithDebounce coalesces bursts of file events into one reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher reloads a config file into a handle whenever the file changes.
type Watcher struct {
	cfg      *Config
	path     string
	debounce time.Duration
	onChange func(*Config)
	onError  func(error)
	fsw      *fsnotify.Watcher
}

// NewWatcher watches path and merges its contents into cfg on change. The
// parent directory is watched so editors that replace the file are seen.
func NewWatcher(cfg *Config, path string, opts ...WatcherOption) (*Watcher, error) {
	if _, err := FormatFromPath(path); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		cfg:      cfg,
		path:     abs,
		debounce: 100 * time.Millisecond,
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.report(fmt.Errorf("file watcher: %w", err))
		}
	}
}

// Reload reads the file once and merges it into the handle.
func (w *Watcher) Reload() error {
	values, err := ReadFile(w.path)
	if err != nil {
		return err
	}
	w.cfg.Merge(values)
	return nil
}

func (w *Watcher) reload() {
	if err := w.Reload(); err != nil {
		w.report(err)
		return
	}
	if w.onChange != nil {
		w.onChange(w.cfg)
	}
}

func (w *Watcher) report(err error) {
	if w.onError != nil && !errors.Is(err, context.Canceled) {
		w.onError(err)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("closing file watcher: %w", err)
	}
	return nil
}
