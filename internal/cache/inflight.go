package cache

import "sync"

// InFlight tracks keys with a fetch currently in progress so near
// simultaneous loads for the same user don't each hit the remote store and
// race to create default profiles. This is best-effort de-duplication, not
// mutual exclusion: a loser simply returns and lets the winner's result
// land in the cache.
type InFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[string]struct{})}
}

// Begin marks id in flight. It returns false if id was already marked.
func (f *InFlight) Begin(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[id]; ok {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *InFlight) End(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}
