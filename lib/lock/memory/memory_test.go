package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/rpay/lib/lock"
)

func TestAcquire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New()
	m.now = func() time.Time { return now }

	release, ok, err := m.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = m.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lease is held")

	_, ok, _ = m.Acquire(ctx, "other", time.Minute)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, release(ctx))
	assert.ErrorIs(t, release(ctx), lock.ErrNotHeld)

	_, ok, _ = m.Acquire(ctx, "sweep", time.Minute)
	assert.True(t, ok, "released lease can be taken")
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New()
	m.now = func() time.Time { return now }

	old, ok, _ := m.Acquire(ctx, "sweep", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)

	_, ok, _ = m.Acquire(ctx, "sweep", time.Minute)
	require.True(t, ok, "expired lease can be taken")

	assert.ErrorIs(t, old(ctx), lock.ErrNotHeld, "expired owner cannot release the new lease")
}
