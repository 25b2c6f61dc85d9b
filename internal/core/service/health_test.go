package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
)

func newTestHealth(t *testing.T, auth *mockAuth, profiles *mockProfiles) *Health {
	t.Helper()
	h, err := NewHealth(auth, profiles, 30*time.Second, zap.NewNop())
	require.NoError(t, err)
	h.sleep = noTestSleep
	return h
}

func TestSubscribeDeliversCurrentStateImmediately(t *testing.T) {
	h := newTestHealth(t, &mockAuth{}, newMockProfiles())

	var states []entities.ConnectionState
	unsub := h.Subscribe(func(st entities.ConnectionState) { states = append(states, st) })
	defer unsub()

	require.Len(t, states, 1)
	assert.True(t, states[0].Connected)
}

func TestOfflineNotifiesSubscribers(t *testing.T) {
	h := newTestHealth(t, &mockAuth{}, newMockProfiles())

	var states []entities.ConnectionState
	unsub := h.Subscribe(func(st entities.ConnectionState) { states = append(states, st) })
	defer unsub()

	h.SetOnline(context.Background(), false)

	require.Len(t, states, 2)
	assert.False(t, states[1].Connected)
	assert.Error(t, states[1].LastError)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := newTestHealth(t, &mockAuth{}, newMockProfiles())

	calls := 0
	unsub := h.Subscribe(func(entities.ConnectionState) { calls++ })
	unsub()
	h.SetOnline(context.Background(), false)

	assert.Equal(t, 1, calls)
}

func TestOnlineWhileDisconnectedReconnects(t *testing.T) {
	auth := &mockAuth{session: &entities.Session{UserID: "u1"}}
	h := newTestHealth(t, auth, newMockProfiles())

	h.SetOnline(context.Background(), false)
	require.False(t, h.State().Connected)

	h.SetOnline(context.Background(), true)

	st := h.State()
	assert.True(t, st.Connected)
	assert.Zero(t, st.Attempts)
	assert.NoError(t, st.LastError)
}

func TestReconnectRetriesWithBackoff(t *testing.T) {
	auth := &mockAuth{transientErr: errors.New("unreachable"), failGets: 2, session: &entities.Session{UserID: "u1"}}
	h := newTestHealth(t, auth, newMockProfiles())
	h.markDisconnected(errors.New("offline"))

	h.Reconnect(context.Background())

	assert.True(t, h.State().Connected)
	assert.Equal(t, 3, auth.getCalls)
}

func TestReconnectGivesUpAfterCap(t *testing.T) {
	auth := &mockAuth{getErr: errors.New("unreachable")}
	h := newTestHealth(t, auth, newMockProfiles())
	h.markDisconnected(errors.New("offline"))

	h.Reconnect(context.Background())

	st := h.State()
	assert.False(t, st.Connected)
	assert.Equal(t, 5, auth.getCalls)
	assert.Error(t, st.LastError)
}

func TestProbeFlipsStateOnRemoteError(t *testing.T) {
	profiles := newMockProfiles()
	h := newTestHealth(t, &mockAuth{}, profiles)

	// Not-found still proves the backend answered.
	h.Probe(context.Background())
	assert.True(t, h.State().Connected)

	profiles.getErr = errors.New("i/o timeout")
	h.Probe(context.Background())
	assert.False(t, h.State().Connected)
}

func TestAuthSignInMarksConnected(t *testing.T) {
	auth := &mockAuth{}
	h := newTestHealth(t, auth, newMockProfiles())
	h.markDisconnected(errors.New("offline"))

	require.Len(t, auth.handlers, 1)
	auth.handlers[0]("SIGNED_IN", &entities.Session{UserID: "u1"})

	assert.True(t, h.State().Connected)
}
