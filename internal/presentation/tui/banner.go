package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for Tessera.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Teal/Indigo)
	s1 := termenv.String("  _____").Foreground(p.Color("#2dd4bf"))
	s2 := termenv.String(" |_   _|__  ___ ___  ___ _ __ __ _").Foreground(p.Color("#22d3ee"))
	s3 := termenv.String("   | |/ _ \\/ __/ __|/ _ \\ '__/ _` |").Foreground(p.Color("#38bdf8"))
	s4 := termenv.String("   | |  __/\\__ \\__ \\  __/ | | (_| |").Foreground(p.Color("#818cf8"))
	s5 := termenv.String("   |_|\\___||___/___/\\___|_|  \\__,_|").Foreground(p.Color("#a78bfa"))
	v := termenv.String("   v" + version).Faint()

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(v)
	fmt.Println()
}
