// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"nickandperla.net/emark/pkg/emark"
)

// parseInput reads a document from a file, or from stdin for "-".
func (a *app) parseInput(path string) (*emark.Document, error) {
	if path == "-" {
		return a.runtime.ParseReader("<stdin>", a.in)
	}
	return a.runtime.ParseFile(path)
}

func (a *app) parseCmd() *cobra.Command {
	var format string
	var stripped bool
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a document and print its tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.parseInput(args[0])
			if err != nil {
				return err
			}
			writeMessages(a.errOut, doc.Messages)
			if stripped {
				doc = doc.ToStripped()
			}
			return writeTree(a.out, format, doc)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "tree", "output format: tree, text, yaml, json")
	cmd.Flags().BoolVar(&stripped, "stripped", false, "print the tree with expansions substituted")
	return cmd
}

func (a *app) stripCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "strip FILE",
		Short: "Print the expanded document without system modifiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.parseInput(args[0])
			if err != nil {
				return err
			}
			writeMessages(a.errOut, doc.Messages)
			return writeTree(a.out, format, doc.ToStripped())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: tree, text, yaml, json")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Report diagnostics; exit 1 when a document has errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reports []FileReport
			failed := false
			for _, path := range args {
				doc, err := a.parseInput(path)
				if err != nil {
					return err
				}
				if doc.Messages.HasErrors() {
					failed = true
				}
				if format == "text" {
					writeMessages(a.out, doc.Messages)
					continue
				}
				reports = append(reports, newFileReport(path, doc.Messages))
			}
			if format != "text" {
				if err := writeStructured(a.out, format, reports); err != nil {
					return err
				}
			}
			if failed {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, yaml, json")
	return cmd
}

func versionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "emark v%s\n", Version)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
