package cache

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// VisitStore persists the "last opened this task's conversation" timestamps
// used for unread counting. Same fail-open file semantics as ProfileStore.
type VisitStore struct {
	mu     sync.Mutex
	path   string
	log    *zap.Logger
	visits map[string]time.Time
}

func NewVisitStore(path string, log *zap.Logger) *VisitStore {
	s := &VisitStore{
		path:   path,
		log:    log,
		visits: make(map[string]time.Time),
	}
	s.load()
	return s
}

func (s *VisitStore) LastVisit(taskID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.visits[taskID]
	return at, ok
}

func (s *VisitStore) Visit(taskID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits[taskID] = at
	raw, err := json.Marshal(s.visits)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, raw)
}

func (s *VisitStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("visit store unreadable, starting empty", zap.Error(err))
		}
		return
	}
	visits := make(map[string]time.Time)
	if err := json.Unmarshal(raw, &visits); err != nil {
		s.log.Warn("visit store corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.visits = visits
}
