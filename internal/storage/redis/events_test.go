package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLogClaimAndRelease(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	log, err := NewEventLog(ctx, srv.Addr(), time.Hour)
	require.NoError(t, err)
	defer log.Close()

	first, err := log.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := log.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, log.Release(ctx, "evt_1"))
	afterRelease, err := log.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, afterRelease)
}

func TestEventLogExpires(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	log, err := NewEventLog(ctx, srv.Addr(), time.Minute)
	require.NoError(t, err)
	defer log.Close()

	_, err = log.Claim(ctx, "evt_2")
	require.NoError(t, err)
	srv.FastForward(2 * time.Minute)

	ok, err := log.Claim(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewEventLogUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewEventLog(context.Background(), addr, time.Minute)
	assert.Error(t, err)
}
