package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// PadRight pads or truncates a string to a fixed display width.
func PadRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w > width {
		return runewidth.Truncate(str, width, "...")
	}
	return str + strings.Repeat(" ", width-w)
}

// Row lays values out in columns of the given widths. Values beyond the
// last width are dropped.
func Row(widths []int, values ...string) string {
	var b strings.Builder
	for i, width := range widths {
		if i > 0 {
			b.WriteByte(' ')
		}
		value := ""
		if i < len(values) {
			value = values[i]
		}
		b.WriteString(PadRight(value, width))
	}
	return strings.TrimRight(b.String(), " ")
}
