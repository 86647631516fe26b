package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// syncTimeLayout renders absolute timestamps as dd/MM/yyyy HH:mm.
const syncTimeLayout = "02/01/2006 15:04"

// formatTimestamp renders t in local time, or "Never" when zero.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Local().Format(syncTimeLayout)
}

// formatRelative renders the distance from t to now in words.
func formatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < 0 {
		return "just now"
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	case d < 365*24*time.Hour:
		return plural(int(d/(30*24*time.Hour)), "month") + " ago"
	default:
		return plural(int(d/(365*24*time.Hour)), "year") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// formatRating renders a vote average with one decimal.
func formatRating(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// formatCount renders an integer with thousands separators.
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// formatPopularity renders popularity scores, which are unbounded floats.
func formatPopularity(v float64) string {
	if v >= 1000 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// formatDate keeps the date part of an API timestamp.
func formatDate(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 10 {
		return value[:10]
	}
	if value == "" {
		return "-"
	}
	return value
}

// bar renders a horizontal bar of width cells for value relative to maxValue.
func bar(value, maxValue float64, width int) string {
	if width <= 0 || maxValue <= 0 || value <= 0 {
		return ""
	}
	n := int(math.Round(value / maxValue * float64(width)))
	n = max(1, min(n, width))
	return strings.Repeat("█", n)
}

// percent renders part/total as a whole percentage.
func percent(part, total float64) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", part/total*100)
}
