// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nickandperla.net/emark/pkg/emark"
)

// Alt+key mappings: Alt+key sends ESC (0x1b) followed by the key byte
var altKeyMappings = map[byte]string{
	'.': "[.",  // Alt+. - block tag
	'/': "[/",  // Alt+/ - inline tag
	'-': "[-",  // Alt+- - system tag
	';': "[;]", // Alt+; - end of inline body
	'<': "<<<", // Alt+< - open group
	'>': ">>>", // Alt+> - close group
}

func (a *app) replCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Parse input interactively; definitions persist between inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := &repl{session: a.runtime.NewSession(), format: format}
			if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				r.printBanner(a.out)
				return r.runRaw(f, a.out)
			}
			return r.runBasic(a.in, a.out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: tree, text, yaml, json")
	return cmd
}

type repl struct {
	session *emark.Session
	format  string
}

func (r *repl) printBanner(out io.Writer) {
	fmt.Fprintln(out, "emark REPL (Ctrl+D to exit, end a line with \\ to continue it)")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Tags (use Alt+key):")
	fmt.Fprintln(out, "  Alt+. → [. (block)     Alt+/ → [/ (inline)")
	fmt.Fprintln(out, "  Alt+- → [- (system)    Alt+; → [;] (end inline)")
	fmt.Fprintln(out, "  Alt+< → <<< (group)    Alt+> → >>> (end group)")
	fmt.Fprintln(out)
}

// eval parses one input and writes the diagnostics and the stripped result.
func (r *repl) eval(out io.Writer, input string) {
	doc := r.session.Parse(input)
	writeMessages(out, doc.Messages)
	if err := writeTree(out, r.format, doc.ToStripped()); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

// lineJoiner assembles inputs from lines, joining those ending in "\".
type lineJoiner struct {
	buf    strings.Builder
	active bool
}

// add returns the complete input once a line does not continue.
func (j *lineJoiner) add(line string) (string, bool) {
	if strings.HasSuffix(line, "\\") && !strings.HasSuffix(line, "\\\\") {
		j.buf.WriteString(strings.TrimSuffix(line, "\\"))
		j.buf.WriteString("\n")
		j.active = true
		return "", false
	}
	j.buf.WriteString(line)
	input := j.buf.String()
	j.buf.Reset()
	j.active = false
	return input, true
}

func (j *lineJoiner) prompt() string {
	if j.active {
		return "... "
	}
	return ">>> "
}

// runBasic handles non-TTY input (piped input)
func (r *repl) runBasic(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	var j lineJoiner

	for {
		fmt.Fprint(out, j.prompt())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return nil
		}
		line = strings.TrimRight(line, "\r\n")

		input, ok := j.add(line)
		if ok && strings.TrimSpace(input) != "" {
			fmt.Fprintln(out)
			r.eval(out, input)
		}
		if err != nil {
			return nil
		}
	}
}

// crlfWriter translates "\n" to "\r\n" for raw mode display.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	_, err := io.WriteString(c.w, strings.ReplaceAll(string(p), "\n", "\r\n"))
	return len(p), err
}

// runRaw handles TTY input with Alt+key support
func (r *repl) runRaw(in *os.File, out io.Writer) error {
	fd := int(in.Fd())

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set raw mode: %v\n", err)
		return r.runBasic(in, out)
	}
	defer term.Restore(fd, oldState)

	raw := crlfWriter{w: out}
	var j lineJoiner
	for {
		fmt.Fprint(out, j.prompt())

		line, eof := readLineRaw(in, out)
		if eof {
			fmt.Fprint(out, "\r\n")
			return nil
		}

		input, ok := j.add(line)
		if ok && strings.TrimSpace(input) != "" {
			r.eval(raw, input)
		}
	}
}

// insertAt inserts s into line at cursor and returns the new line.
func insertAt(line []rune, cursor int, s []rune) []rune {
	newLine := make([]rune, 0, len(line)+len(s))
	newLine = append(newLine, line[:cursor]...)
	newLine = append(newLine, s...)
	newLine = append(newLine, line[cursor:]...)
	return newLine
}

// readLineRaw reads a line in raw mode with Alt+key support
// Returns the line and whether EOF was encountered
func readLineRaw(in io.Reader, out io.Writer) (string, bool) {
	var line []rune
	cursor := 0 // Position in line (for arrow key navigation)
	buf := make([]byte, 1)

	read := func() (byte, bool) {
		n, err := in.Read(buf)
		if err != nil || n == 0 {
			return 0, false
		}
		return buf[0], true
	}

	// Helper to redraw line from cursor position
	redrawFromCursor := func() {
		fmt.Fprint(out, "\x1b[K")
		fmt.Fprint(out, string(line[cursor:]))
		if cursor < len(line) {
			fmt.Fprintf(out, "\x1b[%dD", len(line)-cursor)
		}
	}

	insert := func(s string) {
		runes := []rune(s)
		line = insertAt(line, cursor, runes)
		cursor += len(runes)
		fmt.Fprint(out, s)
		if cursor < len(line) {
			redrawFromCursor()
		}
	}

	for {
		b, ok := read()
		if !ok {
			return string(line), true
		}

		switch b {
		case 0x04: // Ctrl+D
			if len(line) == 0 {
				return "", true
			}
			if cursor < len(line) {
				line = append(line[:cursor], line[cursor+1:]...)
				redrawFromCursor()
			}

		case 0x03: // Ctrl+C
			fmt.Fprint(out, "^C\r\n")
			return "", false

		case 0x0d, 0x0a: // Enter (CR or LF)
			fmt.Fprint(out, "\r\n")
			return string(line), false

		case 0x7f, 0x08: // Backspace (DEL or BS)
			if cursor > 0 {
				cursor--
				line = append(line[:cursor], line[cursor+1:]...)
				fmt.Fprint(out, "\b")
				redrawFromCursor()
			}

		case 0x1b: // ESC - could be Alt+key or arrow key sequence
			next, ok := read()
			if !ok {
				continue
			}
			if next != '[' {
				if tag, ok := altKeyMappings[next]; ok {
					insert(tag)
				}
				continue
			}
			arrow, ok := read()
			if !ok {
				continue
			}
			switch arrow {
			case 'C': // Right arrow
				if cursor < len(line) {
					cursor++
					fmt.Fprint(out, "\x1b[C")
				}
			case 'D': // Left arrow
				if cursor > 0 {
					cursor--
					fmt.Fprint(out, "\x1b[D")
				}
			case '3': // Delete key: ESC [ 3 ~
				if tilde, ok := read(); ok && tilde == '~' && cursor < len(line) {
					line = append(line[:cursor], line[cursor+1:]...)
					redrawFromCursor()
				}
			}

		case 0x01: // Ctrl+A - beginning of line
			if cursor > 0 {
				fmt.Fprintf(out, "\x1b[%dD", cursor)
				cursor = 0
			}

		case 0x05: // Ctrl+E - end of line
			if cursor < len(line) {
				fmt.Fprintf(out, "\x1b[%dC", len(line)-cursor)
				cursor = len(line)
			}

		case 0x0b: // Ctrl+K - kill to end of line
			if cursor < len(line) {
				line = line[:cursor]
				fmt.Fprint(out, "\x1b[K")
			}

		case 0x15: // Ctrl+U - kill to beginning of line
			if cursor > 0 {
				fmt.Fprintf(out, "\x1b[%dD", cursor)
				line = line[cursor:]
				cursor = 0
				redrawFromCursor()
			}

		default:
			if b >= 0x20 && b < 0x7f {
				insert(string(rune(b)))
			} else if b >= 0x80 {
				// UTF-8 multi-byte sequence - read remaining bytes
				utfBuf := []byte{b}
				numBytes := 0
				switch {
				case b&0xE0 == 0xC0:
					numBytes = 1
				case b&0xF0 == 0xE0:
					numBytes = 2
				case b&0xF8 == 0xF0:
					numBytes = 3
				}
				for i := 0; i < numBytes; i++ {
					c, ok := read()
					if !ok {
						break
					}
					utfBuf = append(utfBuf, c)
				}
				insert(string([]rune(string(utfBuf))[:1]))
			}
		}
	}
}
