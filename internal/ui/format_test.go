package ui

import (
	"math"
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp(time.Time{}); got != "Never" {
		t.Fatalf("formatTimestamp(zero) = %q, want Never", got)
	}
	ts := time.Date(2025, 3, 7, 9, 5, 0, 0, time.Local)
	if got := formatTimestamp(ts); got != "07/03/2025 09:05" {
		t.Fatalf("formatTimestamp = %q, want 07/03/2025 09:05", got)
	}
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"future", now.Add(time.Minute), "just now"},
		{"seconds", now.Add(-20 * time.Second), "just now"},
		{"one minute", now.Add(-time.Minute), "1 minute ago"},
		{"minutes", now.Add(-45 * time.Minute), "45 minutes ago"},
		{"hours", now.Add(-3 * time.Hour), "3 hours ago"},
		{"days", now.Add(-50 * time.Hour), "2 days ago"},
		{"months", now.Add(-65 * 24 * time.Hour), "2 months ago"},
		{"years", now.Add(-800 * 24 * time.Hour), "2 years ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelative(tt.at, now); got != tt.want {
				t.Errorf("formatRelative = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatNumbers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{formatCount(0), "0"},
		{formatCount(999), "999"},
		{formatCount(1000), "1,000"},
		{formatCount(1234567), "1,234,567"},
		{formatCount(-45000), "-45,000"},
		{formatRating(7.26), "7.3"},
		{formatRating(math.NaN()), "-"},
		{formatPopularity(12.345), "12.3"},
		{formatPopularity(4321.9), "4322"},
		{formatDate("2024-05-01T10:00:00Z"), "2024-05-01"},
		{formatDate(""), "-"},
		{percent(1, 4), "25%"},
		{percent(1, 0), "0%"},
	}
	for i, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("case %d: got %q, want %q", i, tt.got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	if got := bar(5, 10, 10); got != "█████" {
		t.Errorf("bar(5,10,10) = %q", got)
	}
	if got := bar(0.01, 10, 10); got != "█" {
		t.Errorf("tiny values still show one cell, got %q", got)
	}
	if got := bar(20, 10, 4); got != "████" {
		t.Errorf("bar is capped at width, got %q", got)
	}
	if got := bar(0, 10, 10); got != "" {
		t.Errorf("bar(0) = %q, want empty", got)
	}
}

func TestTruncateAndFit(t *testing.T) {
	if got := truncate("The Shawshank Redemption", 10); got != "The Sha..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncateMiddle("https://image.tmdb.org/t/p/w92/abcdef.jpg", 20); got != "https://i…abcdef.jpg" {
		t.Errorf("truncateMiddle = %q", got)
	}
	if got := fit("ab", 4); got != "ab  " {
		t.Errorf("fit = %q", got)
	}
	if got := fitRight("7", 3); got != "  7" {
		t.Errorf("fitRight = %q", got)
	}
}
