// Package postgresql is the durable storage driver. Writes and lock
// transitions for a scope are serialized with a transaction-scoped advisory
// lock on the scope id, so the lock check and the manifest replace of a put
// form one atomic step.
package postgresql

import (
	"context"
	"database/sql"

	"github.com/tansive/stately/internal/common/apperrors"
	"github.com/tansive/stately/internal/statesrv/db/dberror"
	"github.com/tansive/stately/internal/statesrv/db/dbmanager"
)

type statelyDb struct {
	c dbmanager.Conn
}

func NewStatelyDb(c dbmanager.Conn) *statelyDb {
	return &statelyDb{c: c}
}

func (s *statelyDb) conn() *sql.Conn {
	return s.c.Conn()
}

// Close returns the underlying connection back to the pool.
func (s *statelyDb) Close(ctx context.Context) {
	s.c.Close(ctx)
}

// lockScopeTx takes the per-scope advisory lock for the duration of the
// transaction. All mutating paths take it first, so concurrent acquires and
// writes on one scope serialize with exactly one winner.
func lockScopeTx(ctx context.Context, tx *sql.Tx, scopeID string) apperrors.Error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, scopeID); err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}
