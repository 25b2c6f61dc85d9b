package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "profile_cache.json")
}

func TestProfileStorePutGet(t *testing.T) {
	s := NewProfileStore(storePath(t), zap.NewNop())

	_, ok := s.Get("u1")
	assert.False(t, ok)

	require.NoError(t, s.Put(&entities.Profile{ID: "u1", Name: "Alice", Rating: 4.5}))

	got, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name)

	// The store hands out copies; mutating one must not leak back.
	got.Name = "Mallory"
	again, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", again.Name)
}

func TestProfileStoreSurvivesReload(t *testing.T) {
	path := storePath(t)
	s := NewProfileStore(path, zap.NewNop())
	require.NoError(t, s.Put(&entities.Profile{ID: "u1", Name: "Alice"}))
	require.NoError(t, s.Put(&entities.Profile{ID: "u2", Name: "Bob", IsVerified: true}))

	reloaded := NewProfileStore(path, zap.NewNop())
	got, ok := reloaded.Get("u2")
	require.True(t, ok)
	assert.True(t, got.IsVerified)
}

func TestProfileStoreCorruptFileFailsOpen(t *testing.T) {
	path := storePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewProfileStore(path, zap.NewNop())
	_, ok := s.Get("u1")
	assert.False(t, ok)

	// Still writable after starting empty.
	require.NoError(t, s.Put(&entities.Profile{ID: "u1", Name: "Alice"}))
	_, ok = s.Get("u1")
	assert.True(t, ok)
}

func TestProfileStoreRejectsMissingID(t *testing.T) {
	s := NewProfileStore(storePath(t), zap.NewNop())
	assert.Error(t, s.Put(&entities.Profile{}))
	assert.Error(t, s.Put(nil))
}

func TestInFlight(t *testing.T) {
	f := NewInFlight()
	assert.True(t, f.Begin("u1"))
	assert.False(t, f.Begin("u1"))
	assert.True(t, f.Begin("u2"))
	f.End("u1")
	assert.True(t, f.Begin("u1"))
}

func TestVisitStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.json")
	s := NewVisitStore(path, zap.NewNop())

	_, ok := s.LastVisit("t1")
	assert.False(t, ok)

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Visit("t1", at))

	reloaded := NewVisitStore(path, zap.NewNop())
	got, ok := reloaded.LastVisit("t1")
	require.True(t, ok)
	assert.True(t, got.Equal(at))
}
