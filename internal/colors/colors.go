// Package colors provides terminal color support for strata output.
//
// Colors are used only when enabled by configuration, NO_COLOR is unset and stdout is
// a terminal. FORCE_COLOR overrides the terminal check.
package colors

import (
	"os"

	"golang.org/x/term"

	"github.com/javanhut/strata/internal/diffmerge"
)

// ANSI color codes
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorRed    = "\033[31m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"

	BrightRed   = "\033[91m"
	BrightGreen = "\033[92m"
	BrightBlue  = "\033[94m"
)

var colorEnabled = false

// Configure enables color when ui is set and the output supports it.
func Configure(ui bool, out *os.File) {
	colorEnabled = ui && supportsColor(out)
}

func supportsColor(out *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if os.Getenv("TERM") == "dumb" || out == nil {
		return false
	}
	return term.IsTerminal(int(out.Fd()))
}

// SetColorEnabled allows manual control of color output
func SetColorEnabled(enabled bool) {
	colorEnabled = enabled
}

// IsColorEnabled returns whether colors are currently enabled
func IsColorEnabled() bool {
	return colorEnabled
}

func colorize(text, color string) string {
	if !colorEnabled {
		return text
	}
	return color + text + ColorReset
}

func Added(text string) string    { return colorize(text, BrightGreen) }
func Modified(text string) string { return colorize(text, BrightBlue) }
func Removed(text string) string  { return colorize(text, BrightRed) }
func Hash(text string) string     { return colorize(text, ColorYellow) }
func Branch(text string) string   { return colorize(text, ColorCyan) }
func Bold(text string) string     { return colorize(text, ColorBold) }
func Dim(text string) string      { return colorize(text, ColorDim) }
func Gray(text string) string     { return colorize(text, ColorGray) }

// Change renders one diff line, e.g. "M  src/main.go".
func Change(c diffmerge.Change) string {
	switch c.Kind {
	case diffmerge.Added:
		return Added("A  " + c.Path)
	case diffmerge.Removed:
		return Removed("D  " + c.Path)
	default:
		return Modified("M  " + c.Path)
	}
}

// Conflict renders one conflicted path.
func Conflict(c diffmerge.Conflict) string {
	return colorize("C  "+c.Path, ColorRed) + Gray(" ("+c.Kind.String()+")")
}

func ErrorText(text string) string   { return colorize(text, BrightRed) }
func SuccessText(text string) string { return colorize(text, BrightGreen) }
func WarningText(text string) string { return colorize(text, ColorYellow) }
