package util

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

var (
	ErrorStyle = pterm.NewStyle(pterm.FgRed, pterm.Bold)
	WarnStyle  = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	InfoStyle  = pterm.NewStyle(pterm.FgLightGreen)
	NoteStyle  = pterm.NewStyle(pterm.FgCyan)
)

var (
	// Stderr receives every diagnostic
	Stderr io.Writer = os.Stderr
	// Prog prefixes diagnostics
	Prog = "gprev"

	exit = os.Exit
)

func init() {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		pterm.DisableColor()
	}
}

func report(style *pterm.Style, kind, format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "%s: %s %s\n", Prog, style.Sprint(kind+":"), fmt.Sprintf(format, args...))
}

// Error prints a formatted error message and exits the program
func Error(format string, args ...interface{}) {
	report(ErrorStyle, "error", format, args...)
	exit(1)
}

func Warn(format string, args ...interface{}) { report(WarnStyle, "warning", format, args...) }

func Info(format string, args ...interface{}) { report(InfoStyle, "info", format, args...) }

// Phase announces the start of a pipeline stage
func Phase(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, NoteStyle.Sprint(fmt.Sprintf(format, args...)))
}

// Bytes renders a byte count for humans, e.g. "1.0 MiB"
func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// Count renders an integer with thousands separators
func Count(n int64) string { return humanize.Comma(n) }
