package sqlgen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Shortcut is a canned answer for an exact question.
type Shortcut struct {
	Question string   `yaml:"question"`
	SQL      string   `yaml:"sql"`
	Metadata Metadata `yaml:"metadata"`
}

// Shortcuts maps questions to canned answers. The zero value and nil are empty.
type Shortcuts struct {
	byQuestion map[string]Shortcut
}

// LoadShortcuts reads a YAML list of shortcuts. An empty path or a missing
// file yields an empty set.
func LoadShortcuts(path string) (*Shortcuts, error) {
	if path == "" {
		return &Shortcuts{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Shortcuts{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read shortcuts: %w", err)
	}

	var list []Shortcut
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse shortcuts: %w", err)
	}
	return NewShortcuts(list...), nil
}

// NewShortcuts indexes list by trimmed question text.
func NewShortcuts(list ...Shortcut) *Shortcuts {
	s := &Shortcuts{byQuestion: make(map[string]Shortcut, len(list))}
	for _, sc := range list {
		s.byQuestion[strings.TrimSpace(sc.Question)] = sc
	}
	return s
}

// Lookup returns a copy of the shortcut registered for question.
func (s *Shortcuts) Lookup(question string) (Shortcut, bool) {
	if s == nil {
		return Shortcut{}, false
	}
	sc, ok := s.byQuestion[strings.TrimSpace(question)]
	sc.Metadata = sc.Metadata.Clone()
	return sc, ok
}

// Len returns the number of registered shortcuts.
func (s *Shortcuts) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byQuestion)
}
