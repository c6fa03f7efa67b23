package db

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/stately/internal/statesrv/db/dberror"
	"github.com/tansive/stately/internal/statesrv/db/models"
)

func TestCreateLock(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	var holder pgtype.JSONB
	err := holder.Set(`{"holder": "alice@buildhost", "operation": "apply"}`)
	require.NoError(t, err)

	lock := &models.Lock{
		ScopeID: "networking-prod",
		LockID:  uuid.New(),
		Holder:  holder,
	}
	err = DB(ctx).CreateLock(ctx, lock)
	require.NoError(t, err)
	assert.False(t, lock.AcquiredAt.IsZero())

	got, err := DB(ctx).GetLock(ctx, "networking-prod")
	require.NoError(t, err)
	assert.Equal(t, lock.LockID, got.LockID)

	// A second acquire on the same scope fails while the first is held.
	second := &models.Lock{
		ScopeID: "networking-prod",
		LockID:  uuid.New(),
	}
	err = DB(ctx).CreateLock(ctx, second)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrAlreadyLocked)

	// Locks on other scopes are independent.
	other := &models.Lock{
		ScopeID: "networking-staging",
		LockID:  uuid.New(),
	}
	err = DB(ctx).CreateLock(ctx, other)
	assert.NoError(t, err)
}

func TestDeleteLock(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	lock := &models.Lock{ScopeID: "app-prod", LockID: uuid.New()}
	require.NoError(t, DB(ctx).CreateLock(ctx, lock))

	// Releasing with the wrong token fails and leaves the lock in place.
	err := DB(ctx).DeleteLock(ctx, "app-prod", uuid.New())
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrLockMismatch)

	_, err = DB(ctx).GetLock(ctx, "app-prod")
	assert.NoError(t, err)

	err = DB(ctx).DeleteLock(ctx, "app-prod", lock.LockID)
	assert.NoError(t, err)

	// The scope is immediately lockable again.
	relock := &models.Lock{ScopeID: "app-prod", LockID: uuid.New()}
	assert.NoError(t, DB(ctx).CreateLock(ctx, relock))

	// Releasing when nothing is held is a mismatch, not a not-found.
	require.NoError(t, DB(ctx).DeleteLock(ctx, "app-prod", relock.LockID))
	err = DB(ctx).DeleteLock(ctx, "app-prod", relock.LockID)
	assert.ErrorIs(t, err, dberror.ErrLockMismatch)
}

func TestLockExpiry(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	lock := &models.Lock{
		ScopeID:   "batch-jobs",
		LockID:    uuid.New(),
		ExpiresAt: time.Now().UTC().Add(30 * time.Millisecond),
	}
	require.NoError(t, DB(ctx).CreateLock(ctx, lock))

	_, err := DB(ctx).GetLock(ctx, "batch-jobs")
	assert.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	// An expired lock reads as absent.
	_, err = DB(ctx).GetLock(ctx, "batch-jobs")
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	// And no longer blocks a new acquire.
	relock := &models.Lock{ScopeID: "batch-jobs", LockID: uuid.New()}
	assert.NoError(t, DB(ctx).CreateLock(ctx, relock))
}

func TestLockExpiryUnblocksWrites(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	m := &models.Manifest{
		ScopeID:  "batch-jobs",
		Content:  []byte(`{}`),
		Checksum: "aa",
	}
	require.NoError(t, DB(ctx).PutManifest(ctx, m, 0, uuid.Nil))

	lock := &models.Lock{
		ScopeID:   "batch-jobs",
		LockID:    uuid.New(),
		ExpiresAt: time.Now().UTC().Add(30 * time.Millisecond),
	}
	require.NoError(t, DB(ctx).CreateLock(ctx, lock))

	err := DB(ctx).PutManifest(ctx, m, 1, uuid.Nil)
	assert.ErrorIs(t, err, dberror.ErrLockConflict)

	time.Sleep(50 * time.Millisecond)

	// Once the lock has lapsed, an unlocked write goes through. The stale
	// token of the lapsed lock does not.
	err = DB(ctx).PutManifest(ctx, m, 1, lock.LockID)
	assert.ErrorIs(t, err, dberror.ErrLockConflict)

	err = DB(ctx).PutManifest(ctx, m, 1, uuid.Nil)
	assert.NoError(t, err)
}

func TestForceDeleteLock(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	// Forcing an unlocked scope reports not found.
	err := DB(ctx).ForceDeleteLock(ctx, "stuck-scope")
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	lock := &models.Lock{ScopeID: "stuck-scope", LockID: uuid.New()}
	require.NoError(t, DB(ctx).CreateLock(ctx, lock))

	// Force removal does not need the token.
	err = DB(ctx).ForceDeleteLock(ctx, "stuck-scope")
	assert.NoError(t, err)

	_, err = DB(ctx).GetLock(ctx, "stuck-scope")
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestConcurrentAcquire(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	// All racers target one scope. The check-and-insert is a single critical
	// section, so exactly one acquire may win no matter how the goroutines
	// interleave.
	const racers = 64
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int64
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := &models.Lock{ScopeID: "contended", LockID: uuid.New()}
			err := DB(ctx).CreateLock(ctx, lock)
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

	// The winner's lock is the one on record.
	_, err := DB(ctx).GetLock(ctx, "contended")
	assert.NoError(t, err)
}

func TestGetLockNotHeld(t *testing.T) {
	ctx := newDb(t)
	defer DB(ctx).Close(ctx)

	l, err := DB(ctx).GetLock(ctx, "quiet-scope")
	assert.Error(t, err)
	assert.Nil(t, l)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}
