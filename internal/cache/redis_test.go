package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := Open(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestEventLog(t *testing.T) {
	ctx := context.Background()
	c, mr := setupTestCache(t)
	log := c.EventLog(time.Hour)

	seen, err := log.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, log.Mark(ctx, "evt_1"))
	require.NoError(t, log.Mark(ctx, "evt_1"))

	seen, err = log.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = log.Seen(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)

	mr.FastForward(2 * time.Hour)
	seen, err = log.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestEventLog_Unavailable(t *testing.T) {
	c, mr := setupTestCache(t)
	mr.Close()

	_, err := c.EventLog(time.Hour).Seen(context.Background(), "evt_1")
	assert.Error(t, err)
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), "://nope")
	assert.Error(t, err)
}
