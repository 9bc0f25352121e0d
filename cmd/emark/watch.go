// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/logging"
)

func (a *app) watchCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-parse a document every time it is written",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt)
			defer stop()
			return a.watch(ctx, args[0], format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "also print the stripped tree: tree, text, yaml, json")
	return cmd
}

// watch reports on path once, then again after each burst of writes.
// The directory is watched so that editors replacing the file are seen.
func (a *app) watch(ctx context.Context, path, format string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	logger := logging.LoggerFromContext(ctx)
	logger.Info("watching", "file", path)
	if err := a.report(path, format); err != nil {
		return err
	}

	debounce := a.cfg.Watch.Debounce.Duration
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if changed, err := a.runtime.Reload(); err != nil {
				logger.Warn("library reload failed", "error", err)
			} else if changed {
				logger.Info("libraries reloaded")
			}
			if err := a.report(path, format); err != nil {
				logger.Error("report failed", "file", path, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// report parses path and prints a summary line and the diagnostics.
func (a *app) report(path, format string) error {
	doc, err := a.runtime.ParseFile(path)
	if err != nil {
		return err
	}
	errs, warns := 0, 0
	for _, m := range doc.Messages {
		switch m.Severity {
		case diag.Error:
			errs++
		case diag.Warning:
			warns++
		}
	}
	fmt.Fprintf(a.out, "== %s: %d error(s), %d warning(s)\n", filepath.Base(path), errs, warns)
	writeMessages(a.out, doc.Messages)
	if format != "" {
		return writeTree(a.out, format, doc.ToStripped())
	}
	return nil
}
