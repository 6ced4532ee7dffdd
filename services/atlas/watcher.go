// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package atlas

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers a rescan when source files under the scanned root
// change.
//
// Description:
//
//	Watches every non-ignored directory under the current scan root.
//	Events are debounced: a rescan fires only after the configured
//	quiet period with no further changes, so bulk operations (checkout,
//	formatter runs) cause one rescan, not hundreds.
//
// Thread Safety: Run is single-goroutine; Close may be called from any
// goroutine.
type Watcher struct {
	service  *Service
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher bound to the service.
func NewWatcher(service *Service, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if service == nil {
		return nil, errors.New("service must not be nil")
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		service:  service,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Run watches the current scan root until the context is cancelled.
//
// Outputs:
//
//	error - ErrNoScan when no scan has been published yet, a watch
//	        registration failure, or nil on clean shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	cur, err := w.service.Current()
	if err != nil {
		return err
	}
	if err := w.addTree(cur.Root); err != nil {
		return err
	}

	w.logger.Info("watch mode started", "root", cur.Root, "debounce", w.debounce)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			// New directories must be registered before their
			// contents produce events.
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = w.addTree(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.logger.Info("file changes settled, rescanning")
			if _, err := w.service.Rescan(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("rescan failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// relevant filters events down to source file changes.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(event.Name)
	// Directory events carry no extension; keep them so new packages
	// get registered.
	return ext == "" || ext == ".py" || ext == ".pyi"
}

// addTree registers a directory and all its non-hidden subdirectories.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "__pycache__" ||
			name == "venv" || name == "node_modules") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch registration failed", "path", path, "error", err)
		}
		return nil
	})
}
