package main

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// colorEnabled reports whether w is a terminal that accepts ANSI colors.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type row struct {
	severity string
	code     string
	where    string
	message  string
}

// table writes rows as aligned columns. Widths are measured in terminal cells
// so wide runes in model names keep the columns straight.
func table(w io.Writer, rows []row) error {
	color := colorEnabled(w)
	var widths [3]int
	for _, r := range rows {
		for i, cell := range []string{r.severity, r.code, r.where} {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	var b strings.Builder
	for _, r := range rows {
		severity := runewidth.FillRight(r.severity, widths[0])
		if color {
			severity = paint(r.severity) + severity + colorReset
		}
		b.WriteString(severity)
		b.WriteString("  ")
		b.WriteString(runewidth.FillRight(r.code, widths[1]))
		b.WriteString("  ")
		b.WriteString(runewidth.FillRight(r.where, widths[2]))
		b.WriteString("  ")
		b.WriteString(r.message)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func paint(severity string) string {
	if severity == "error" {
		return colorRed
	}
	return colorYellow
}

func location(model, path string) string {
	switch {
	case path != "":
		return path
	case model != "":
		return model
	default:
		return "-"
	}
}
