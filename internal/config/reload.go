// SPDX-License-Identifier: MIT
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mraffaele/guida/internal/log"
)

// Watch reloads the config file whenever it changes and hands the validated
// result to onReload. A change that fails to load or validate keeps the
// previous configuration. No-op when path is empty (ENV-only configuration).
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	logger := log.WithComponent("config")
	if path == "" {
		logger.Info().Str("event", "config.watcher_disabled").Msg("no config file, watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}

	logger.Info().
		Str("event", "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	go watchLoop(ctx, watcher, path, onReload)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, onReload func(*Config)) {
	logger := log.WithComponent("config")
	defer func() {
		_ = watcher.Close()
	}()

	// Debounce so editors that write in several steps trigger one reload.
	const debounce = 500 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				cfg, err := Load(path)
				if err != nil {
					logger.Error().Err(err).
						Str("event", "config.reload_failed").
						Msg("keeping previous configuration")
					return
				}
				logger.Info().Str("event", "config.reload_success").Msg("configuration reloaded")
				onReload(cfg)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}
