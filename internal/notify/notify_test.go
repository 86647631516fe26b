package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenter_ActiveWithinLifetime(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := NewCenter(WithClock(func() time.Time { return now }))

	c.Success("Movie created successfully!")
	c.Error("Failed to delete movie")

	active := c.Active(now.Add(2 * time.Second))
	require.Len(t, active, 2)
	assert.Equal(t, LevelSuccess, active[0].Level)
	assert.Equal(t, LevelError, active[1].Level)
	assert.NotEqual(t, active[0].ID, active[1].ID)

	assert.Empty(t, c.Active(now.Add(DefaultLifetime)))
}

func TestCenter_PruneAndLatest(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := now
	c := NewCenter(WithClock(func() time.Time { return clock }), WithLifetime(time.Second))

	c.Info("first")
	clock = now.Add(2 * time.Second)
	c.Info("second")

	latest, ok := c.Latest(clock)
	require.True(t, ok)
	assert.Equal(t, "second", latest.Text)

	assert.Equal(t, 1, c.Prune(clock))
	assert.Len(t, c.Active(clock), 1)
	assert.Equal(t, 1, c.Prune(clock.Add(time.Minute)))
	_, ok = c.Latest(clock.Add(time.Minute))
	assert.False(t, ok)
}

func TestCenter_CapacityDropsOldest(t *testing.T) {
	c := NewCenter(WithCapacity(2))
	c.Info("a")
	c.Info("b")
	c.Info("c")
	active := c.Active(time.Now())
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].Text)
	assert.Equal(t, "c", active[1].Text)
}

func TestCenter_Dismiss(t *testing.T) {
	c := NewCenter()
	n := c.Push(LevelInfo, "hello")
	assert.True(t, c.Dismiss(n.ID))
	assert.False(t, c.Dismiss(n.ID))
	assert.Empty(t, c.Active(time.Now()))
}
