package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/stately/internal/common/apperrors"
	"github.com/tansive/stately/internal/statesrv/config"
	"github.com/tansive/stately/internal/statesrv/db/dbmanager"
	"github.com/tansive/stately/internal/statesrv/db/memory"
	"github.com/tansive/stately/internal/statesrv/db/models"
	"github.com/tansive/stately/internal/statesrv/db/postgresql"
)

// StateManager is the storage contract for manifests and locks. Every driver
// must evaluate the lock check and the serial check of a put as one atomic
// step together with the write itself.
type StateManager interface {
	// Manifest
	GetManifest(ctx context.Context, scopeID string) (*models.Manifest, apperrors.Error)
	// PutManifest atomically replaces the manifest for m.ScopeID. baseSerial
	// must equal the stored serial (0 when the scope has never been written),
	// and lockID must match the active lock when one is held. On success the
	// model is updated with the new serial and timestamps.
	PutManifest(ctx context.Context, m *models.Manifest, baseSerial int64, lockID uuid.UUID) apperrors.Error
	DeleteManifest(ctx context.Context, scopeID string, lockID uuid.UUID) apperrors.Error
	ListScopes(ctx context.Context) ([]*models.ScopeSummary, apperrors.Error)

	// Lock
	GetLock(ctx context.Context, scopeID string) (*models.Lock, apperrors.Error)
	CreateLock(ctx context.Context, lock *models.Lock) apperrors.Error
	DeleteLock(ctx context.Context, scopeID string, lockID uuid.UUID) apperrors.Error
	ForceDeleteLock(ctx context.Context, scopeID string) apperrors.Error
}

type ConnectionManager interface {
	// Close the connection to the database.
	Close(ctx context.Context)
}

type DB_ interface {
	StateManager
	ConnectionManager
}

var pool dbmanager.Db

// Init prepares the configured storage backend. For the memory backend this
// resets the shared in-process store, so tests get a clean slate per call.
func Init(ctx context.Context) error {
	switch config.Config().Storage {
	case "postgresql":
		pg := dbmanager.NewDb(ctx, "postgresql")
		if pg == nil {
			return fmt.Errorf("unable to create db pool")
		}
		pool = pg
	case "memory":
		pool = nil
		memory.Reset()
	default:
		return fmt.Errorf("unknown storage backend: %s", config.Config().Storage)
	}
	return nil
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "StatelyDb"

// ConnCtx attaches a storage handle to the context. For the Postgres backend
// this checks a connection out of the pool; the caller must Close it.
func ConnCtx(ctx context.Context) (context.Context, error) {
	if config.Config().Storage == "memory" {
		return context.WithValue(ctx, ctxDbKey, memory.NewStatelyDb()), nil
	}
	if pool == nil {
		return ctx, fmt.Errorf("db pool is not initialized")
	}
	conn, err := pool.Conn(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
		return ctx, err
	}
	return context.WithValue(ctx, ctxDbKey, postgresql.NewStatelyDb(conn)), nil
}

// DB returns the storage handle previously attached by ConnCtx.
func DB(ctx context.Context) DB_ {
	if d, ok := ctx.Value(ctxDbKey).(DB_); ok {
		return d
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}
