package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 2 {
		t.Fatalf("ThemeNames() returned %d names, want 2", len(names))
	}
	if names[0] != "Dracula" || names[1] != "Slate" {
		t.Fatalf("ThemeNames() = %v, want [Dracula Slate]", names)
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Dracula"); got != "Slate" {
		t.Fatalf("NextTheme(Dracula) = %q, want Slate", got)
	}
	if got := NextTheme("Slate"); got != "Dracula" {
		t.Fatalf("NextTheme(Slate) = %q, want Dracula", got)
	}
	if got := NextTheme("missing"); got != "Dracula" {
		t.Fatalf("NextTheme(missing) = %q, want Dracula", got)
	}
}

func TestGetTheme_FallsBack(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q", got)
	}
	if got := GetTheme("nope").Name; got != "Dracula" {
		t.Fatalf("GetTheme(nope).Name = %q, want Dracula", got)
	}
}

func TestSeriesColor_Cycles(t *testing.T) {
	th := GetTheme("Dracula")
	if len(th.Series) == 0 {
		t.Fatal("Dracula has no series colors")
	}
	if got := th.SeriesColor(len(th.Series)); got != th.Series[0] {
		t.Fatalf("SeriesColor wraps to %q, want %q", got, th.Series[0])
	}
	if got := (Theme{Accent: "#fff"}).SeriesColor(3); got != "#fff" {
		t.Fatalf("SeriesColor without series = %q, want accent", got)
	}
}

func TestStatusStyle_UnknownUsesIdle(t *testing.T) {
	styles := GetTheme("Slate").Styles()
	if got, want := styles.StatusStyle("bogus").GetBackground(), styles.StatusStyle("idle").GetBackground(); got != want {
		t.Fatalf("StatusStyle(bogus) background = %v, want %v", got, want)
	}
}
