// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command emark parses, checks and expands emark documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"nickandperla.net/emark/internal/config"
	"nickandperla.net/emark/internal/logging"
	"nickandperla.net/emark/pkg/emark"
)

var (
	Version   = "0.1.0"
	GitCommit = "development"
	BuildDate = "unknown"
)

// exitError carries a non-zero exit status without an error message, for
// commands whose output already explains the failure.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds the state shared by every command of one invocation.
type app struct {
	cfgFile   string
	dbPath    string
	noStdlib  bool
	logLevel  string
	logFormat string
	verbose   bool

	cfg     *config.Config
	runtime *emark.Runtime
	ctx     context.Context
	out     io.Writer
	errOut  io.Writer
	in      io.Reader
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "emark",
		Short: "emark markup parser and macro expander",
		Long: `emark parses markup documents, expands their macros and reports
diagnostics. Libraries of definitions can be stored and preloaded into
every document.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.runtime != nil {
				return a.runtime.Close()
			}
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $EMARK_CONFIG or ./emark.toml)")
	flags.StringVar(&a.dbPath, "db", "", "SQLite library database (overrides store.path)")
	flags.BoolVar(&a.noStdlib, "no-stdlib", false, "do not load the prelude")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output (log level info)")

	root.AddCommand(
		a.parseCmd(),
		a.checkCmd(),
		a.stripCmd(),
		a.watchCmd(),
		a.libCmd(),
		a.replCmd(),
		versionCmd(out),
	)
	return root
}

// setup loads the configuration, configures logging and builds the runtime.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.LoadDefault(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "info"
	}
	if a.logLevel != "" {
		level = a.logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	format := cfg.Log.Format
	if a.logFormat != "" {
		format = a.logFormat
	}
	logFmt, err := logging.ParseFormat(format)
	if err != nil {
		return err
	}
	logging.InitLogger(lvl, logFmt)

	session := uuid.New().String()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a.ctx = logging.WithSessionID(ctx, session)
	logger := logging.LoggerFromContext(a.ctx)

	opts := []emark.Option{
		emark.WithLogger(logger),
		emark.WithReparseDepthLimit(cfg.Parser.ReparseDepthLimit),
		emark.WithArgumentSeparator(cfg.Parser.ArgumentSeparator),
		emark.WithLibraries(cfg.Libraries.Preload...),
	}
	dbPath := cfg.Store.Path
	if a.dbPath != "" {
		dbPath = a.dbPath
	}
	if dbPath != "" {
		opts = append(opts, emark.WithSQLiteStore(dbPath))
	} else {
		opts = append(opts, emark.WithMemoryStore())
	}
	if a.noStdlib || cfg.Parser.NoStdlib {
		opts = append(opts, emark.WithNoStdlib())
	}

	a.runtime = emark.New(opts...)
	if err := a.runtime.Err(); err != nil {
		// A missing preloaded library is not fatal; the lib commands
		// are how it gets added.
		logger.Warn("runtime setup", "error", err)
	}
	for _, m := range a.runtime.Messages() {
		fmt.Fprintln(a.errOut, m)
	}
	logger.Debug("session started", "command", cmd.CommandPath(), "config", cfg.Path, "db", dbPath)
	return nil
}

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
