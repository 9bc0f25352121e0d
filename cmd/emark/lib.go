// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) libCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lib",
		Short: "Manage stored libraries",
	}

	add := &cobra.Command{
		Use:   "add NAME FILE",
		Short: "Store a library from a file (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[1] == "-" {
				data, err = io.ReadAll(a.in)
			} else {
				data, err = os.ReadFile(args[1])
			}
			if err != nil {
				return fmt.Errorf("read library: %w", err)
			}
			lib, msgs, err := a.runtime.AddLibrary(args[0], string(data))
			writeMessages(a.errOut, msgs)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s v%d %s\n", lib.Name, lib.Version, shortDigest(lib.Digest))
			if msgs.HasErrors() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			libs, err := a.runtime.Libraries()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tDIGEST\tUPDATED")
			for _, lib := range libs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", lib.Name, lib.Version, shortDigest(lib.Digest), lib.Updated.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a stored library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.runtime.Library(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = io.WriteString(a.out, lib.Source)
			return err
		},
	}

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a stored library and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.runtime.RemoveLibrary(args[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return nil
		},
	}

	var limit int
	history := &cobra.Command{
		Use:   "history NAME",
		Short: "List the stored versions of a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.runtime.History(args[0], limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(a.out, "v%d %s %s\n", e.Version, shortDigest(e.Digest), e.Ts.Format(time.RFC3339))
			}
			return nil
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n versions")

	cmd.AddCommand(add, list, show, rm, history)
	return cmd
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
