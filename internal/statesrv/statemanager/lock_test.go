package statemanager

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/stately/internal/statesrv/config"
	"github.com/tansive/stately/internal/statesrv/db"
	"github.com/tansive/stately/internal/statesrv/db/dberror"
	"github.com/tansive/stately/pkg/api"
)

func TestAcquireAndReleaseLock(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	holder := api.LockHolder{
		Holder:    "alice@buildhost",
		Operation: "apply",
		Who:       "alice",
	}
	lock, err := AcquireLock(ctx, "networking-prod", holder, "")
	require.NoError(t, err)
	assert.NotEmpty(t, lock.LockID)
	assert.True(t, lock.ExpiresAt.IsZero())

	// The holder identity survives the round trip through storage.
	held, gotHolder, err := GetLockInfo(ctx, "networking-prod")
	require.NoError(t, err)
	assert.Equal(t, lock.LockID, held.LockID)
	assert.Equal(t, holder, gotHolder)

	// A competing acquire fails and names the current holder.
	_, err = AcquireLock(ctx, "networking-prod", api.LockHolder{Who: "bob"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrAlreadyLocked)
	assert.Contains(t, err.Error(), "alice@buildhost")
	assert.Contains(t, err.Error(), lock.LockID.String())

	err = ReleaseLock(ctx, "networking-prod", lock.LockID.String())
	assert.NoError(t, err)

	_, _, err = GetLockInfo(ctx, "networking-prod")
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestReleaseLockValidation(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	lock, err := AcquireLock(ctx, "app-prod", api.LockHolder{}, "")
	require.NoError(t, err)

	err = ReleaseLock(ctx, "app-prod", "garbage")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	other, err := AcquireLock(ctx, "app-staging", api.LockHolder{}, "")
	require.NoError(t, err)

	// A token from a different scope's lock does not release this one.
	err = ReleaseLock(ctx, "app-prod", other.LockID.String())
	assert.ErrorIs(t, err, dberror.ErrLockMismatch)

	err = ReleaseLock(ctx, "app-prod", lock.LockID.String())
	assert.NoError(t, err)
}

func TestAcquireLockTTL(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	lock, err := AcquireLock(ctx, "batch-jobs", api.LockHolder{}, "45m")
	require.NoError(t, err)
	require.False(t, lock.ExpiresAt.IsZero())
	assert.InDelta(t, 45*time.Minute, lock.ExpiresAt.Sub(lock.AcquiredAt), float64(time.Second))

	_, err = AcquireLock(ctx, "other-scope", api.LockHolder{}, "not-a-duration")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = AcquireLock(ctx, "other-scope", api.LockHolder{}, "-5s")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestResolveTTLPolicy(t *testing.T) {
	cfg := config.Config()
	savedDefault, savedMax := cfg.DefaultLockTTL, cfg.MaxLockTTL
	defer func() {
		cfg.DefaultLockTTL, cfg.MaxLockTTL = savedDefault, savedMax
	}()

	cfg.DefaultLockTTL = "30m"
	cfg.MaxLockTTL = "2h"

	// No TTL requested: the default applies.
	ttl, err := resolveTTL("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ttl)

	// Within bounds: taken as-is.
	ttl, err = resolveTTL("1h")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	// Above the maximum: clamped.
	ttl, err = resolveTTL("48h")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)

	// With no default, a configured maximum still bounds the no-expiry case.
	cfg.DefaultLockTTL = ""
	ttl, err = resolveTTL("")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)

	// With no policy configured, locks default to no expiry.
	cfg.DefaultLockTTL, cfg.MaxLockTTL = "", ""
	ttl, err = resolveTTL("")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)
}

func TestConcurrentAcquireLock(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	// Racing acquires on one scope: exactly one caller gets a token, every
	// other caller fails with the already-locked error.
	const racers = 32
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int64
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := AcquireLock(ctx, "contended", api.LockHolder{Who: "racer"}, "")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, dberror.ErrAlreadyLocked):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
	assert.Equal(t, int64(racers-1), conflicts.Load())
}

func TestForceUnlock(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	_, err := AcquireLock(ctx, "stuck-scope", api.LockHolder{Who: "crashed-runner"}, "")
	require.NoError(t, err)

	// Force unlock succeeds without the token.
	err = ForceUnlock(ctx, "stuck-scope", "")
	assert.NoError(t, err)

	err = ForceUnlock(ctx, "stuck-scope", "")
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	// The scope is lockable again.
	_, err = AcquireLock(ctx, "stuck-scope", api.LockHolder{}, "")
	assert.NoError(t, err)
}
