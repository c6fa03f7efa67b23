package statemanager

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/stately/internal/statesrv/db"
	"github.com/tansive/stately/internal/statesrv/db/dberror"
	"github.com/tansive/stately/internal/statesrv/db/models"
	"github.com/tansive/stately/pkg/api"
)

func TestWriteAndReadManifest(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	content := []byte(`{"version": 4, "outputs": {"vpc_id": "vpc-0a1b"}}`)
	m, err := WriteManifest(ctx, &api.WriteManifestRequest{
		ScopeID:    "networking-prod",
		BaseSerial: 0,
		Content:    content,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Serial)
	assert.Equal(t, Checksum(content), m.Checksum)

	got, err := ReadManifest(ctx, "networking-prod")
	require.NoError(t, err)
	assert.Equal(t, content, got.Content)
	assert.Equal(t, int64(1), got.Serial)

	// Stale writers are told to re-read.
	_, err = WriteManifest(ctx, &api.WriteManifestRequest{
		ScopeID:    "networking-prod",
		BaseSerial: 0,
		Content:    []byte(`{"version": 4}`),
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrSerialConflict)
}

func TestWriteManifestValidation(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	// Scope ids are restricted to a filesystem- and URL-safe alphabet.
	_, err := WriteManifest(ctx, &api.WriteManifestRequest{
		ScopeID: "bad/scope",
		Content: []byte(`{}`),
	})
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = WriteManifest(ctx, &api.WriteManifestRequest{
		ScopeID: "ok-scope",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = WriteManifest(ctx, &api.WriteManifestRequest{
		ScopeID: "ok-scope",
		Content: []byte(`{}`),
		LockID:  "not-a-uuid",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ReadManifest(ctx, "no-such-scope")
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestReadManifestCorruption(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	// Plant a manifest whose stored checksum does not match its content, the
	// way a partial restore would.
	m := &models.Manifest{
		ScopeID:  "damaged",
		Content:  []byte(`{"k": "v"}`),
		Checksum: "0000000000000000000000000000000000000000000000000000000000000000",
	}
	require.NoError(t, db.DB(ctx).PutManifest(ctx, m, 0, uuid.Nil))

	_, err := ReadManifest(ctx, "damaged")
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestQueryManifest(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	content := []byte(`{"outputs": {"vpc_id": "vpc-0a1b", "az_count": 3}, "resources": ["a", "b"]}`)
	_, err := WriteManifest(ctx, &api.WriteManifestRequest{
		ScopeID: "networking-prod",
		Content: content,
	})
	require.NoError(t, err)

	rsp, err := QueryManifest(ctx, "networking-prod", "outputs.vpc_id")
	require.NoError(t, err)
	assert.Equal(t, "vpc-0a1b", rsp.Value)
	assert.Equal(t, int64(1), rsp.Serial)

	rsp, err = QueryManifest(ctx, "networking-prod", "resources.#")
	require.NoError(t, err)
	assert.Equal(t, float64(2), rsp.Value)

	_, err = QueryManifest(ctx, "networking-prod", "outputs.missing")
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = QueryManifest(ctx, "networking-prod", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// Manifests are opaque bytes; only JSON ones can be queried.
	_, err = WriteManifest(ctx, &api.WriteManifestRequest{
		ScopeID: "binary-scope",
		Content: []byte{0x1f, 0x8b, 0x08},
	})
	require.NoError(t, err)
	_, err = QueryManifest(ctx, "binary-scope", "anything")
	assert.ErrorIs(t, err, ErrNotJSON)
}

func TestDeleteScope(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)

	_, err := WriteManifest(ctx, &api.WriteManifestRequest{
		ScopeID: "ephemeral",
		Content: []byte(`{}`),
	})
	require.NoError(t, err)

	lock, err := AcquireLock(ctx, "ephemeral", api.LockHolder{Operation: "destroy"}, "")
	require.NoError(t, err)

	err = DeleteScope(ctx, "ephemeral", "")
	assert.ErrorIs(t, err, dberror.ErrLockConflict)

	err = DeleteScope(ctx, "ephemeral", lock.LockID.String())
	assert.NoError(t, err)

	_, err = ReadManifest(ctx, "ephemeral")
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}
