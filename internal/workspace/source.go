package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cemetery-go/internal/cemetery"
)

// Source lists the projects of a local workspace as repository records.
// Every immediate subdirectory of the root is one project. A project's
// UpdatedAt is the newest modification time of its tracked files; it
// counts as "starred" once it has at least one tracked file, so empty
// skeleton directories are never declared dead.
type Source struct {
	root   string
	ignore []string
	logger cemetery.Logger
}

// NewSource creates a workspace source. ignore holds extra patterns on top
// of the workspace's .cemeteryignore file.
func NewSource(root string, ignore []string, logger cemetery.Logger) (*Source, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace path: %w", err)
	}
	return &Source{root: abs, ignore: ignore, logger: logger}, nil
}

func (s *Source) Name(cemetery.ScanTarget) string {
	return "workspace " + s.root
}

// ListRepositories walks every project. The target owner and token are
// not used. Cancellation is checked between projects.
func (s *Source) ListRepositories(ctx context.Context, _ cemetery.ScanTarget) ([]*cemetery.RepositoryRecord, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: workspace not found: %s", cemetery.ErrIO, s.root)
		}
		return nil, fmt.Errorf("%w: %w", cemetery.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: workspace is not a directory: %s", cemetery.ErrIO, s.root)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(s.root, IgnoreFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cemetery.ErrIO, err)
	}
	matcher := NewIgnoreMatcher(append(append([]string{}, s.ignore...), filePatterns...))

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: reading workspace: %w", cemetery.ErrIO, err)
	}

	var records []*cemetery.RepositoryRecord
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || matcher.Match(entry.Name()) {
			continue
		}
		rec, err := s.inspect(entry.Name(), matcher)
		if err != nil {
			return nil, fmt.Errorf("%w: inspecting %s: %w", cemetery.ErrIO, entry.Name(), err)
		}
		records = append(records, rec)
	}

	s.logger.Debug("workspace listed", "root", s.root, "projects", len(records))
	return records, nil
}

func (s *Source) inspect(project string, matcher *IgnoreMatcher) (*cemetery.RepositoryRecord, error) {
	dir := filepath.Join(s.root, project)
	dirInfo, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}

	rec := &cemetery.RepositoryRecord{
		ID:        "local:" + project,
		FullName:  filepath.Base(s.root) + "/" + project,
		URL:       "file://" + filepath.ToSlash(dir),
		UpdatedAt: dirInfo.ModTime().UTC(),
	}

	tracked := 0
	languageLines := make(map[string]uint64)
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if p != dir && matcher.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		if tracked == 0 || info.ModTime().After(rec.UpdatedAt) {
			rec.UpdatedAt = info.ModTime().UTC()
		}
		tracked++

		if lang := languageOf(d.Name()); lang != "" {
			lines, err := countLines(p)
			if err != nil {
				return fmt.Errorf("counting lines of %s: %w", rel, err)
			}
			languageLines[lang] += lines
			rec.LineCount += lines
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if tracked > 0 {
		rec.StargazersCount = 1
	}
	rec.Language = dominantLanguage(languageLines)
	return rec, nil
}

// dominantLanguage returns the language with the most lines; ties go to
// the alphabetically first name so results are stable.
func dominantLanguage(lines map[string]uint64) string {
	langs := make([]string, 0, len(lines))
	for lang := range lines {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if lines[langs[i]] != lines[langs[j]] {
			return lines[langs[i]] > lines[langs[j]]
		}
		return langs[i] < langs[j]
	})
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}

// countLines counts newline-terminated lines plus a final unterminated one.
func countLines(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var count uint64
	var last byte = '\n'
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			count += uint64(bytes.Count(buf[:n], []byte{'\n'}))
			last = buf[n-1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		count++
	}
	return count, nil
}

var _ cemetery.RepositorySource = (*Source)(nil)
