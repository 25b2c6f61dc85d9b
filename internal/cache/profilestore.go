// Package cache holds the client's durable local state: the profile cache
// and the per-task last-visit timestamps. Both persist as JSON files and
// fail open — an unreadable or corrupt file starts an empty store instead
// of refusing to boot. The remote store stays authoritative; everything
// here is a copy.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
)

// ProfileStore maps user id to a full profile snapshot. Entries are replaced
// wholesale on every successful fetch or mutation; partial writes are not
// modeled. The file is rewritten after every put.
type ProfileStore struct {
	mu      sync.Mutex
	path    string
	log     *zap.Logger
	entries map[string]entities.Profile
}

func NewProfileStore(path string, log *zap.Logger) *ProfileStore {
	s := &ProfileStore{
		path:    path,
		log:     log,
		entries: make(map[string]entities.Profile),
	}
	s.load()
	return s
}

func (s *ProfileStore) Get(id string) (*entities.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	copied := entry
	return &copied, true
}

func (s *ProfileStore) Put(profile *entities.Profile) error {
	if profile == nil || profile.ID == "" {
		return fmt.Errorf("profile store: missing profile id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[profile.ID] = *profile
	return s.persistLocked()
}

func (s *ProfileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return nil
	}
	delete(s.entries, id)
	return s.persistLocked()
}

func (s *ProfileStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("profile cache unreadable, starting empty", zap.Error(err))
		}
		return
	}
	entries := make(map[string]entities.Profile)
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Warn("profile cache corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.entries = entries
}

func (s *ProfileStore) persistLocked() error {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("profile store: encode: %w", err)
	}
	return writeFileAtomic(s.path, raw)
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated cache behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
