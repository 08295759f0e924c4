package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReal_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := New().Sleep(ctx, time.Hour)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReal_SleepZero(t *testing.T) {
	require.NoError(t, New().Sleep(context.Background(), 0))
}

func TestFake_RecordsAndAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	require.NoError(t, f.Sleep(context.Background(), time.Second))
	require.NoError(t, f.Sleep(context.Background(), time.Second))
	require.NoError(t, f.Sleep(context.Background(), time.Hour))

	assert.Equal(t, start.Add(time.Hour+2*time.Second), f.Now())
	assert.Equal(t, 2, f.CountSleeps(time.Second))
	assert.Len(t, f.Sleeps(), 3)

	f.Reset()
	assert.Empty(t, f.Sleeps())
}
