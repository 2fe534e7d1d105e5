package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner shown before interactive runs.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`                        _ _`, "#4ade80"},
		{`   ___  ___ _ __   __ _| (_) ___ _ __`, "#34d399"},
		{`  / _ \/ __| '_ \ / _' | | |/ _ \ '__|`, "#2dd4bf"},
		{` |  __/\__ \ |_) | (_| | | |  __/ |`, "#22d3ee"},
		{`  \___||___/ .__/ \__,_|_|_|\___|_|`, "#38bdf8"},
		{`           |_|`, "#60a5fa"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Printf("  branching forms runtime %s\n\n", version)
}
