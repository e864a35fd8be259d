package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the GMP banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	s1 := termenv.String("   ____ __  __ ____  ").Foreground(p.Color("#38bdf8"))
	s2 := termenv.String("  / ___|  \\/  |  _ \\ ").Foreground(p.Color("#60a5fa"))
	s3 := termenv.String(" | |  _| |\\/| | |_) |").Foreground(p.Color("#818cf8"))
	s4 := termenv.String(" | |_| | |  | |  __/ ").Foreground(p.Color("#a78bfa"))
	s5 := termenv.String("  \\____|_|  |_|_|    ").Foreground(p.Color("#c084fc"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, s1)
	fmt.Fprintln(w, s2)
	fmt.Fprintln(w, s3)
	fmt.Fprintln(w, s4)
	fmt.Fprintln(w, s5, termenv.String(version).Faint())
	fmt.Fprintln(w)
}
