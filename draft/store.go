package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a draft id does not exist in the store.
var ErrNotFound = errors.New("draft not found")

// Store persists drafts as a JSON array in a single file. Every mutation is
// validated, then written through to disk atomically (temp file + rename) so
// a crash mid-save never corrupts the list.
type Store struct {
	mu     sync.Mutex
	path   string
	drafts []Draft
}

// NewStore creates a store backed by path. Call Load before first use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the draft list from disk. A missing file yields an empty list.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.drafts = nil
			return nil
		}
		return fmt.Errorf("read drafts file %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		s.drafts = nil
		return nil
	}

	var drafts []Draft
	if err := json.Unmarshal(raw, &drafts); err != nil {
		return fmt.Errorf("parse drafts file %s: %w", s.path, err)
	}
	s.drafts = drafts
	return nil
}

// List returns a copy of all drafts.
func (s *Store) List() []Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Draft, len(s.drafts))
	copy(out, s.drafts)
	return out
}

// Get returns the draft with the given id.
func (s *Store) Get(id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drafts {
		if d.ID == id {
			return d, nil
		}
	}
	return Draft{}, ErrNotFound
}

// Add validates and appends a draft, assigning an id when absent, and
// persists the list. The stored draft is returned.
func (s *Store) Add(d Draft) (Draft, error) {
	if d.WindowSeconds == 0 {
		d.WindowSeconds = DefaultWindowSeconds
	}
	if err := Validate(d); err != nil {
		return Draft{}, err
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, d)
	if err := s.save(); err != nil {
		// Roll back the in-memory append so memory and disk stay in sync.
		s.drafts = s.drafts[:len(s.drafts)-1]
		return Draft{}, err
	}
	return d, nil
}

// Delete removes a draft by id and persists the list.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.drafts {
		if d.ID == id {
			s.drafts = append(s.drafts[:i], s.drafts[i+1:]...)
			return s.save()
		}
	}
	return ErrNotFound
}

func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.drafts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode drafts: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".drafts-*.json")
	if err != nil {
		return fmt.Errorf("create temp drafts file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp drafts file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp drafts file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace drafts file: %w", err)
	}
	return nil
}
