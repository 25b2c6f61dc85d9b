package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microtask/internal/core/domain/exceptions"
)

func TestDoFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 42, nil
	}, Options{Sleep: noSleep(t)})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	var delays []time.Duration

	_, err := Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", boom
	}, Options{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, exceptions.ErrRetriesExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, calls)
	// min(1s*2^(k-1), 30s) for k = 1..4
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, delays)
}

func TestDoDelayCap(t *testing.T) {
	var delays []time.Duration
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("always")
	}, Options{
		MaxAttempts: 8,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	})

	require.Error(t, err)
	require.Len(t, delays, 7)
	assert.Equal(t, 16*time.Second, delays[4])
	assert.Equal(t, 30*time.Second, delays[5])
	assert.Equal(t, 30*time.Second, delays[6])
}

func TestDoRecoversMidway(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 7, nil
	}, Options{Sleep: countSleep(nil)})

	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 3, calls)
}

func TestDoContextCancelAbortsWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("fail")
	}, Options{})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoReportsState(t *testing.T) {
	var states []State
	boom := errors.New("boom")
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		return 0, boom
	}, Options{
		MaxAttempts: 2,
		Sleep:       countSleep(nil),
		OnState:     func(st State) { states = append(states, st) },
	})

	require.Error(t, err)
	require.Len(t, states, 2)
	assert.True(t, states[0].Retrying)
	assert.Equal(t, 1, states[0].Attempt)
	assert.False(t, states[1].Retrying)
	assert.Equal(t, boom, states[1].LastError)
}

func TestDelay(t *testing.T) {
	assert.Equal(t, time.Second, Delay(1, time.Second, 30*time.Second))
	assert.Equal(t, 8*time.Second, Delay(4, time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, Delay(6, time.Second, 30*time.Second))
	// Shift overflow collapses to the cap.
	assert.Equal(t, 30*time.Second, Delay(80, time.Second, 30*time.Second))
}

func noSleep(t *testing.T) func(context.Context, time.Duration) error {
	return func(context.Context, time.Duration) error {
		t.Fatal("unexpected sleep")
		return nil
	}
}

func countSleep(n *int) func(context.Context, time.Duration) error {
	return func(context.Context, time.Duration) error {
		if n != nil {
			*n++
		}
		return nil
	}
}
