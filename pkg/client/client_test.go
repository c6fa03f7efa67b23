package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/stately/internal/statesrv/config"
	"github.com/tansive/stately/internal/statesrv/db"
	"github.com/tansive/stately/internal/statesrv/server"
	"github.com/tansive/stately/pkg/api"
)

func newTestClient(t *testing.T) (*Client, func()) {
	t.Helper()
	require.NoError(t, config.LoadConfig(""))
	ctx := log.Logger.WithContext(context.Background())
	require.NoError(t, db.Init(ctx))

	s, err := server.CreateNewServer()
	require.NoError(t, err)
	s.MountHandlers()

	ts := httptest.NewServer(s.Router)
	return New(ts.URL), ts.Close
}

func TestClientManifestRoundTrip(t *testing.T) {
	c, closeFn := newTestClient(t)
	defer closeFn()

	content := []byte(`{"version": 4, "outputs": {"vpc_id": "vpc-0a1b"}}`)
	meta, err := c.WriteManifest("networking-prod", 0, content, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Serial)

	m, err := c.ReadManifest("networking-prod")
	require.NoError(t, err)
	assert.Equal(t, content, m.Content)
	assert.Equal(t, meta.Checksum, m.Checksum)

	q, err := c.QueryManifest("networking-prod", "outputs.vpc_id")
	require.NoError(t, err)
	assert.Equal(t, "vpc-0a1b", q.Value)

	// Stale serial surfaces as a conflict the caller can test for.
	_, err = c.WriteManifest("networking-prod", 0, content, "")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.False(t, IsLocked(err))

	list, err := c.ListScopes()
	require.NoError(t, err)
	require.Len(t, list.Scopes, 1)
	assert.Equal(t, "networking-prod", list.Scopes[0].ScopeID)

	require.NoError(t, c.DeleteScope("networking-prod", ""))

	_, err = c.ReadManifest("networking-prod")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClientLockFlow(t *testing.T) {
	c, closeFn := newTestClient(t)
	defer closeFn()

	holder := DefaultHolder("apply")
	assert.NotEmpty(t, holder.Holder)

	lock, err := c.AcquireLock("app-prod", holder, 0)
	require.NoError(t, err)
	require.NotEmpty(t, lock.LockID)

	// A competing client sees the lock.
	_, err = c.AcquireLock("app-prod", api.LockHolder{Who: "bob"}, 0)
	require.Error(t, err)
	assert.True(t, IsLocked(err))

	got, err := c.GetLock("app-prod")
	require.NoError(t, err)
	assert.Equal(t, lock.LockID, got.LockID)
	assert.Equal(t, holder.Operation, got.Holder.Operation)

	// Writes carry the token; without it they are refused.
	_, err = c.WriteManifest("app-prod", 0, []byte(`{}`), "")
	require.Error(t, err)
	assert.True(t, IsLocked(err))

	meta, err := c.WriteManifest("app-prod", 0, []byte(`{}`), lock.LockID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Serial)

	require.NoError(t, c.ReleaseLock("app-prod", lock.LockID))

	_, err = c.GetLock("app-prod")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClientForceUnlock(t *testing.T) {
	c, closeFn := newTestClient(t)
	defer closeFn()

	lock, err := c.AcquireLock("stuck", DefaultHolder("apply"), 0)
	require.NoError(t, err)

	require.NoError(t, c.ForceUnlock("stuck", lock.LockID))

	_, err = c.GetLock("stuck")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestAcquireLockWithRetry(t *testing.T) {
	c, closeFn := newTestClient(t)
	defer closeFn()

	// Hold the lock with a short TTL so the retrying caller gets it once the
	// TTL lapses.
	_, err := c.AcquireLock("contended", api.LockHolder{Who: "first"}, 150*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	lock, err := c.AcquireLockWithRetry(context.Background(), "contended", api.LockHolder{Who: "second"}, 0, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, lock.LockID)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	// Non-contention errors are not retried.
	_, err = c.AcquireLockWithRetry(context.Background(), "bad..scope", api.LockHolder{}, 0, 5)
	require.Error(t, err)
	assert.False(t, IsLocked(err))
}
