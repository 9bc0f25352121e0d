// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
)

// Report is the serializable form of one diagnostic.
type Report struct {
	File     string   `json:"file" yaml:"file"`
	Line     int      `json:"line" yaml:"line"`
	Column   int      `json:"column" yaml:"column"`
	Severity string   `json:"severity" yaml:"severity"`
	Code     int      `json:"code" yaml:"code"`
	Message  string   `json:"message" yaml:"message"`
	From     []string `json:"from,omitempty" yaml:"from,omitempty"`
}

// FileReport groups the diagnostics of one document.
type FileReport struct {
	File        string   `json:"file" yaml:"file"`
	Errors      int      `json:"errors" yaml:"errors"`
	Warnings    int      `json:"warnings" yaml:"warnings"`
	Diagnostics []Report `json:"diagnostics" yaml:"diagnostics"`
}

func newFileReport(file string, msgs diag.List) FileReport {
	fr := FileReport{File: file, Diagnostics: []Report{}}
	for _, m := range msgs.Sorted() {
		r := Report{
			File:     file,
			Severity: m.Severity.String(),
			Code:     int(m.Code),
			Message:  m.Text,
		}
		if m.Range.Source != nil {
			r.File = m.Range.Source.Name
			line, col := m.Range.Source.Position(m.Range.Start)
			r.Line, r.Column = line+1, col+1
		}
		for o := m.Range.Original; o != nil; o = o.Original {
			r.From = append(r.From, o.String())
		}
		switch m.Severity {
		case diag.Error:
			fr.Errors++
		case diag.Warning:
			fr.Warnings++
		}
		fr.Diagnostics = append(fr.Diagnostics, r)
	}
	return fr
}

// writeStructured encodes v as YAML or JSON.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown format %q", format)
}

// writeTree prints a document in the requested format.
func writeTree(w io.Writer, format string, doc *markup.Document) error {
	switch format {
	case "tree", "":
		_, err := io.WriteString(w, markup.Dump(doc.Root))
		return err
	case "text":
		blocks := make([]string, 0, len(doc.Root.Content))
		for _, n := range doc.Root.Content {
			blocks = append(blocks, markup.PlainText([]markup.Node{n}))
		}
		_, err := fmt.Fprintln(w, strings.Join(blocks, "\n\n"))
		return err
	}
	return writeStructured(w, format, markup.Describe(doc.Root))
}

func writeMessages(w io.Writer, msgs diag.List) {
	for _, m := range msgs.Sorted() {
		fmt.Fprintln(w, m)
	}
}
