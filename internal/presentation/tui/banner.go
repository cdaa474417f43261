package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the flowboard banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   __ _               _                         _ ", "#818cf8"},
		{"  / _| | _____      _| |__   ___   __ _ _ __ __| |", "#a78bfa"},
		{" | |_| |/ _ \\ \\ /\\ / / '_ \\ / _ \\ / _` | '__/ _` |", "#c084fc"},
		{" |  _| | (_) \\ V  V /| |_) | (_) | (_| | | | (_| |", "#e879f9"},
		{" |_| |_|\\___/ \\_/\\_/ |_.__/ \\___/ \\__,_|_|  \\__,_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
