package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Errorf("Read() = %v, want nil", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
		want  Entry
	}{
		{
			name:  "info with attrs",
			input: `time=2026-03-01T10:00:00.000Z level=INFO msg="movie saved" op=create id=12`,
			ok:    true,
			want: Entry{
				Time:  "2026-03-01T10:00:00.000Z",
				Level: "INFO",
				Msg:   "movie saved",
				Attrs: []Attr{{"op", "create"}, {"id", "12"}},
			},
		},
		{
			name:  "quoted attr with escapes",
			input: `time=2026-03-01T10:00:01Z level=WARN msg="mutation failed" error="catalog: \"boom\""`,
			ok:    true,
			want: Entry{
				Time:  "2026-03-01T10:00:01Z",
				Level: "WARN",
				Msg:   "mutation failed",
				Attrs: []Attr{{"error", `catalog: "boom"`}},
			},
		},
		{
			name:  "bare message",
			input: "time=2026-03-01T10:00:02Z level=DEBUG msg=tick",
			ok:    true,
			want:  Entry{Time: "2026-03-01T10:00:02Z", Level: "DEBUG", Msg: "tick"},
		},
		{name: "free text", input: "panic: something broke", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "unterminated quote", input: `level=INFO msg="oops`, ok: false},
		{name: "no level", input: "time=now msg=hello", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if ok != tt.ok {
				t.Fatalf("Parse() ok = %v, want %v", ok, tt.ok)
			}
			tt.want.Raw = tt.input
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEntryValue(t *testing.T) {
	e, ok := Parse("level=ERROR msg=x status=500")
	if !ok {
		t.Fatal("Parse() failed")
	}
	if v, found := e.Value("status"); !found || v != "500" {
		t.Errorf("Value(status) = %q, %v", v, found)
	}
	if _, found := e.Value("missing"); found {
		t.Error("Value(missing) found")
	}
}
