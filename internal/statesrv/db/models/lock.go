package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
)

/*
  Table "public.locks"
    Column    |           Type           | Collation | Nullable | Default
--------------+--------------------------+-----------+----------+---------
 scope_id     | character varying(64)    |           | not null |
 lock_id      | uuid                     |           | not null |
 holder       | jsonb                    |           |          |
 acquired_at  | timestamp with time zone |           | not null | now()
 expires_at   | timestamp with time zone |           |          |
Indexes:
    "locks_pkey" PRIMARY KEY, btree (scope_id)
*/

// Lock is the advisory claim on a scope. At most one unexpired lock exists
// per scope. A zero ExpiresAt means the lock never expires on its own.
type Lock struct {
	ScopeID    string       `db:"scope_id"`
	LockID     uuid.UUID    `db:"lock_id"`
	Holder     pgtype.JSONB `db:"holder"`
	AcquiredAt time.Time    `db:"acquired_at"`
	ExpiresAt  time.Time    `db:"expires_at"`
}

// Expired reports whether the lock's TTL has elapsed. Expired locks are
// treated as absent everywhere; no sweeper removes them.
func (l *Lock) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}
