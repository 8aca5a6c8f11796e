package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.log"})
		// The ignore file itself is always the first pattern.
		if len(m.patterns) != 2 {
			t.Fatalf("expected 2 patterns, got %d", len(m.patterns))
		}
		if m.patterns[1].pattern != "*.log" {
			t.Errorf("expected *.log, got %s", m.patterns[1].pattern)
		}
	})

	t.Run("classifies path vs element patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.log", "legacy/build", "dist/"})
		if m.patterns[1].matchPath {
			t.Error("*.log should not be a path pattern")
		}
		if !m.patterns[2].matchPath {
			t.Error("legacy/build should be a path pattern")
		}
		if m.patterns[3].pattern != "dist" || m.patterns[3].matchPath {
			t.Errorf("dist/ should become element pattern dist, got %+v", m.patterns[3])
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{
			name:         "element glob matches file in project root",
			patterns:     []string{"*.log"},
			relativePath: filepath.Join("legacy", "app.log"),
			want:         true,
		},
		{
			name:         "element glob does not match different extension",
			patterns:     []string{"*.log"},
			relativePath: filepath.Join("legacy", "app.go"),
			want:         false,
		},
		{
			name:         "directory name matches at any depth",
			patterns:     []string{"node_modules"},
			relativePath: filepath.Join("web", "client", "node_modules", "left-pad", "index.js"),
			want:         true,
		},
		{
			name:         "directory name matches a whole project",
			patterns:     []string{"archive"},
			relativePath: "archive",
			want:         true,
		},
		{
			name:         "ignore file is always ignored",
			patterns:     nil,
			relativePath: IgnoreFileName,
			want:         true,
		},
		{
			name:         "path pattern matches exact relative path",
			patterns:     []string{"legacy/build"},
			relativePath: filepath.Join("legacy", "build"),
			want:         true,
		},
		{
			name:         "path pattern does not match another project",
			patterns:     []string{"legacy/build"},
			relativePath: filepath.Join("fresh", "build"),
			want:         false,
		},
		{
			name:         "path pattern with glob",
			patterns:     []string{"legacy/*.o"},
			relativePath: filepath.Join("legacy", "main.o"),
			want:         true,
		},
		{
			name:         "character class",
			patterns:     []string{"*.[oa]"},
			relativePath: "main.a",
			want:         true,
		},
		{
			name:         "bad pattern never matches",
			patterns:     []string{"[unterminated"},
			relativePath: "[unterminated",
			want:         false,
		},
		{
			name:         "no patterns matches ordinary files",
			patterns:     nil,
			relativePath: "anything.txt",
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		content := "*.log\n# comment\n\nvendor\nlegacy/build\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		// Raw lines include blanks and comments; NewIgnoreMatcher filters them.
		if len(patterns) != 5 {
			t.Fatalf("expected 5 raw lines, got %d", len(patterns))
		}
		if m := NewIgnoreMatcher(patterns); len(m.patterns) != 4 {
			t.Errorf("expected 4 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile("/nonexistent/" + IgnoreFileName)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
