package main

import (
	"fmt"
	"io"
	"os"
)

// ANSI styles for terminal output.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBold   = "\033[1m"
)

// style wraps text in an ANSI sequence unless --no-color (or NO_COLOR) is set.
func style(code, text string) string {
	if noColor {
		return text
	}
	return code + text + ansiReset
}

// console writes user-facing CLI lines. Status output goes to the command's
// writer so tests can capture it; errors from main go to stderr.
type console struct {
	w io.Writer
}

func newConsole(w io.Writer) console {
	if w == nil {
		w = os.Stderr
	}
	return console{w: w}
}

func (c console) line(code, mark, format string, args []any) {
	fmt.Fprintln(c.w, style(code, mark+" "+fmt.Sprintf(format, args...)))
}

func (c console) ok(format string, args ...any)   { c.line(ansiGreen, "✓", format, args) }
func (c console) fail(format string, args ...any) { c.line(ansiRed, "✗", format, args) }
func (c console) warn(format string, args ...any) { c.line(ansiYellow, "⚠", format, args) }

// field prints an indented "Label: value" row.
func (c console) field(label, format string, args ...any) {
	fmt.Fprintf(c.w, "  %s %s\n", style(ansiBold, label+":"), fmt.Sprintf(format, args...))
}
