package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/rpay/lib/lock"
)

func TestAcquire(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	r, err := New(ctx, mr.Addr())
	require.NoError(t, err)
	defer r.Close()

	release, ok, err := r.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(Prefix+"sweep"))

	_, ok, err = r.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lease is held")

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(Prefix+"sweep"))
	assert.ErrorIs(t, release(ctx), lock.ErrNotHeld)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	r, err := New(ctx, mr.Addr())
	require.NoError(t, err)
	defer r.Close()

	old, ok, err := r.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = r.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lease can be taken")

	assert.ErrorIs(t, old(ctx), lock.ErrNotHeld, "expired owner cannot release the new lease")
}

func TestUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), addr)
	assert.ErrorContains(t, err, "ping")
}
