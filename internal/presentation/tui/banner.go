package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Weave ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" __      __                     ", "#818cf8"},
		{" \\ \\    / /__  __ ___   _____  ", "#a78bfa"},
		{"  \\ \\/\\/ / -_)/ _` \\ \\ / / -_) ", "#c084fc"},
		{"   \\_/\\_/\\___|\\__,_|\\_/\\_/\\___| ", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
