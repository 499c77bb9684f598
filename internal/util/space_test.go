package util

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		str      string
		width    int
		expected string
	}{
		{"Empty string", "", 5, "     "},
		{"Short string", "abc", 10, "abc       "},
		{"Exact width", "hello", 5, "hello"},
		{"String too long", "this is a very long string", 10, "this is..."},
		{"String slightly too long", "hello world", 10, "hello w..."},
		{"Chinese characters", "你好", 8, "你好    "},
		{"Mixed characters", "hello世界", 12, "hello世界   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PadRight(tt.str, tt.width)
			assert.Equal(t, tt.expected, result)
			assert.Equal(t, tt.width, runewidth.StringWidth(result))
		})
	}
}

func TestRow(t *testing.T) {
	widths := []int{8, 12, 4}
	assert.Equal(t, "Pixel 7  connected    4821", Row(widths, "Pixel 7", "connected", "4821"))
	assert.Equal(t, "Pixel 7  connected", Row(widths, "Pixel 7", "connected"))
	assert.Equal(t, "A very...", Row([]int{9}, "A very long name", "dropped"))
}
