package util

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count with binary units, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatRate renders a transfer rate in bytes per second.
func FormatRate(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}

// FormatETA renders the time left for remaining bytes at the given rate.
func FormatETA(remaining int64, bytesPerSecond float64) string {
	if remaining <= 0 || bytesPerSecond <= 0 {
		return "-"
	}
	eta := time.Duration(float64(remaining) / bytesPerSecond * float64(time.Second))
	return eta.Round(time.Second).String()
}
