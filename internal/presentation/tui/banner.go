package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{` __      __              __`, "#34d399"},
	{`/  \    /  \____  ___.__/ _|____ _______  ___________`, "#2dd4bf"},
	{`\   \/\/   |__  \<   |  \   __\\__  \_  __ \/ __ \_  __ \`, "#22d3ee"},
	{` \        / / __ \\___  ||  |   / __ \|  | \|  ___/|  | \/`, "#38bdf8"},
	{`  \__/\  / (____  / ____||__|  (____  /__|   \___  >__|`, "#60a5fa"},
	{`       \/       \/\/                \/           \/`, "#818cf8"},
}

// PrintBanner writes the wayfarer banner, colored when out supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
