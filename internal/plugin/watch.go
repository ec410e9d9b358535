// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package plugin

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// debounceWindow coalesces bursts of filesystem events into one rescan.
const debounceWindow = 250 * time.Millisecond

// Watch rescans whenever the contents of the current locations change.
// Locations that do not exist yet are re-tried with backoff and picked up
// when they appear. Watch returns once the watcher is running; it stops
// when ctx is cancelled.
//
// The location set is snapshotted at call time: replacing locations while
// watching requires a new Watch call.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.Code("PLUGIN_WATCH_FAILED").Wrapf(err, "create filesystem watcher")
	}

	for _, loc := range r.Locations() {
		if addErr := watcher.Add(loc); addErr != nil {
			go r.watchLater(ctx, watcher, loc)
		}
	}

	go r.watchLoop(ctx, watcher)
	return nil
}

// watchLater keeps trying to watch a location that did not exist when
// Watch started. Once it appears, a rescan picks up its plugins.
func (r *Registry) watchLater(ctx context.Context, watcher *fsnotify.Watcher, location string) {
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewFibonacci(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		if addErr := watcher.Add(location); addErr != nil {
			return retry.RetryableError(addErr)
		}
		return nil
	})
	if err != nil {
		return // ctx cancelled
	}

	slog.Info("watching late plugin location", "location", location)
	r.Rescan()
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close() //nolint:errcheck // nothing to do with a close error here

	var pending *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(debounceWindow)
				fire = pending.C
			} else {
				pending.Reset(debounceWindow)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("plugin watcher error", "error", err)

		case <-fire:
			pending = nil
			fire = nil
			r.Rescan()
		}
	}
}
