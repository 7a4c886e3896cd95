package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjannette/vitanova-gold/internal/models"
)

// MarkerStore persists the last month written to the monthly log as plain
// text MM/YYYY.
type MarkerStore struct {
	path string
}

func NewMarkerStore(path string) *MarkerStore {
	return &MarkerStore{path: path}
}

// Load returns nil when no month has been recorded yet.
func (s *MarkerStore) Load() (*models.MonthKey, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read marker: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, nil
	}
	m, err := models.ParseMonthKey(content)
	if err != nil {
		return nil, fmt.Errorf("parse marker: %w", err)
	}
	return &m, nil
}

func (s *MarkerStore) Save(m models.MonthKey) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(m.String()), 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace marker: %w", err)
	}
	return nil
}
