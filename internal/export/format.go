package export

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// formatLatency formats a nanosecond value in a human-readable way.
func formatLatency(ns float64) string {
	if ns == 0 || math.IsNaN(ns) {
		return "0"
	}
	d := time.Duration(ns)
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		us := ns / 1e3
		if us < 100 {
			return fmt.Sprintf("%.1fµs", us)
		}
		return fmt.Sprintf("%dµs", int(us))
	}
	if d < time.Second {
		ms := ns / 1e6
		if ms < 10 {
			return fmt.Sprintf("%.2fms", ms)
		}
		if ms < 100 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	}
	s := d.Seconds()
	if s < 10 {
		return fmt.Sprintf("%.2fs", s)
	}
	return fmt.Sprintf("%.1fs", s)
}

// formatDuration formats a run duration.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %02dm %02ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes float64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", bytes/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", bytes/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", bytes/KB)
	default:
		return fmt.Sprintf("%.0f B", bytes)
	}
}

// formatMetric formats a metric value by the unit suffix of its name.
func formatMetric(name string, value float64) string {
	switch {
	case strings.HasSuffix(name, "_ms"):
		return formatLatency(value * float64(time.Millisecond))
	case strings.HasSuffix(name, "_bytes"):
		return formatBytes(value)
	case strings.HasSuffix(name, "_percent"):
		return fmt.Sprintf("%.1f%%", value)
	case value == math.Trunc(value) && math.Abs(value) < 1e15:
		return fmt.Sprintf("%.0f", value)
	default:
		return fmt.Sprintf("%.2f", value)
	}
}

// formatOverhead formats a percentage overhead with its sign.
func formatOverhead(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}

// sparkline renders histogram counts as block characters.
func sparkline(counts []int) string {
	const blocks = "▁▂▃▄▅▆▇█"
	levels := []rune(blocks)

	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}
	if peak == 0 {
		return ""
	}

	var b strings.Builder
	for _, c := range counts {
		if c == 0 {
			b.WriteRune(' ')
			continue
		}
		idx := (c*len(levels) - 1) / peak
		b.WriteRune(levels[min(idx, len(levels)-1)])
	}
	return b.String()
}
