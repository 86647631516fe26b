package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func writePrefs(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Default() {
		t.Fatalf("Load = %+v, want %+v", p, Default())
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writePrefs(t, filepath.Join(home, ".config", "marquee", "prefs.toml"), "theme = \"Slate\"\nsync_pages = 4\n")

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Slate" || p.SyncPages != 4 {
		t.Fatalf("Load = %+v, want Slate/4", p)
	}
}

func TestLoad_ClampsSyncPages(t *testing.T) {
	tmp := t.TempDir()
	tests := []struct {
		body string
		want int
	}{
		{"sync_pages = 0\n", 1},
		{"sync_pages = -3\n", 1},
		{"sync_pages = 25\n", 10},
		{"theme = \"Slate\"\n", 1},
	}
	for i, tt := range tests {
		path := filepath.Join(tmp, "p"+string(rune('a'+i))+".toml")
		writePrefs(t, path, tt.body)
		p, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if p.SyncPages != tt.want {
			t.Errorf("%q: SyncPages = %d, want %d", tt.body, p.SyncPages, tt.want)
		}
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(path, Prefs{Theme: "Slate", SyncPages: 3}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Theme != "Slate" || loaded.SyncPages != 3 {
		t.Fatalf("Load = %+v, want Slate/3", loaded)
	}
}

func TestLoad_EmptyThemeFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	writePrefs(t, path, "theme = \"  \"\n")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
}

func TestLoad_InvalidTOMLFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	writePrefs(t, path, "not valid toml {{{\n")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Default() {
		t.Fatalf("Load = %+v, want defaults", p)
	}
}
