package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const bannerDefaultWidth = 60

// PrintBanner renders a box-drawing banner around one or more centred lines.
func PrintBanner(lines ...string) {
	fmt.Print(renderBanner(bannerDefaultWidth, lines...))
}

// renderBanner draws the banner at width, growing it to fit the longest line.
func renderBanner(width int, lines ...string) string {
	if width < 10 {
		width = bannerDefaultWidth
	}

	inner := width - 2
	for _, line := range lines {
		if n := utf8.RuneCountInString(line) + 2; n > inner {
			inner = n
		}
	}

	edge := strings.Repeat("═", inner)
	var b strings.Builder
	fmt.Fprintf(&b, "╔%s╗\n", edge)
	for _, line := range lines {
		fmt.Fprintf(&b, "║%s║\n", padCenter(line, inner))
	}
	fmt.Fprintf(&b, "╚%s╝\n", edge)
	return b.String()
}

func padCenter(text string, width int) string {
	padTotal := width - utf8.RuneCountInString(text)
	if padTotal <= 0 {
		return text
	}
	left := padTotal / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", padTotal-left)
}
