package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBoard and DefaultClassLevel are used when a student's board/class
	// pair has no syllabus on disk.
	DefaultBoard      = "CBSE"
	DefaultClassLevel = 10
)

// Loader loads and caches syllabi and the resource library from the filesystem.
type Loader struct {
	rootDir   string
	syllabi   map[string]Syllabus
	resources []Resource
	mu        sync.RWMutex
}

// NewLoader creates a new curriculum loader and loads all content.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		syllabi: make(map[string]Syllabus),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "syllabi", len(l.syllabi), "resources", len(l.resources))
	return l, nil
}

// Syllabus returns the syllabus for a board and class level.
func (l *Loader) Syllabus(board string, classLevel int) (Syllabus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.syllabi[syllabusKey(board, classLevel)]
	return s, ok
}

// Default returns the syllabus for a board and class level, falling back to
// DefaultBoard/DefaultClassLevel when the pair is unknown. The boolean is
// false only when neither exists.
func (l *Loader) Default(board string, classLevel int) (Syllabus, bool) {
	if s, ok := l.Syllabus(board, classLevel); ok {
		return s, true
	}
	return l.Syllabus(DefaultBoard, DefaultClassLevel)
}

// Boards returns the sorted list of "BOARD/level" keys that have a syllabus.
func (l *Loader) Boards() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.syllabi))
	for k := range l.syllabi {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resources returns library resources, optionally filtered by subject and type.
// Empty filters match everything.
func (l *Loader) Resources(subjectID string, typ ResourceType) []Resource {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []Resource{}
	for _, r := range l.resources {
		if subjectID != "" && r.SubjectID != subjectID {
			continue
		}
		if typ != "" && r.Type != typ {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".resources.yaml"):
			return l.loadResources(path)
		case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
			return l.loadSyllabus(path)
		}
		return nil
	})
}

func (l *Loader) loadSyllabus(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var s Syllabus
	if err := yaml.Unmarshal(data, &s); err != nil {
		slog.Warn("skipping invalid syllabus YAML", "path", path, "error", err)
		return nil
	}

	if s.Board == "" || s.ClassLevel == 0 {
		return nil // Not a syllabus file
	}
	if s.ID == "" {
		s.ID = syllabusKey(s.Board, s.ClassLevel)
	}

	l.mu.Lock()
	l.syllabi[syllabusKey(s.Board, s.ClassLevel)] = s
	l.mu.Unlock()

	return nil
}

func (l *Loader) loadResources(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var lib struct {
		Resources []Resource `yaml:"resources"`
	}
	if err := yaml.Unmarshal(data, &lib); err != nil {
		slog.Warn("skipping invalid resource YAML", "path", path, "error", err)
		return nil
	}

	l.mu.Lock()
	l.resources = append(l.resources, lib.Resources...)
	l.mu.Unlock()

	return nil
}

func syllabusKey(board string, classLevel int) string {
	return fmt.Sprintf("%s/%d", strings.ToUpper(board), classLevel)
}
