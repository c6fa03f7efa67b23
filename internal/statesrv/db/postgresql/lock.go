package postgresql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/stately/internal/common/apperrors"
	"github.com/tansive/stately/internal/statesrv/db/dberror"
	"github.com/tansive/stately/internal/statesrv/db/models"
)

func (s *statelyDb) GetLock(ctx context.Context, scopeID string) (*models.Lock, apperrors.Error) {
	if scopeID == "" {
		return nil, dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}

	query := `
		SELECT scope_id, lock_id, holder, acquired_at, expires_at
		FROM locks
		WHERE scope_id = $1 AND (expires_at IS NULL OR expires_at > NOW());
	`

	row := s.conn().QueryRowContext(ctx, query, scopeID)
	l := &models.Lock{}
	var expiresAt sql.NullTime
	err := row.Scan(&l.ScopeID, &l.LockID, &l.Holder, &l.AcquiredAt, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("no lock held on scope")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to retrieve lock")
		return nil, dberror.ErrDatabase.Err(err)
	}
	if expiresAt.Valid {
		l.ExpiresAt = expiresAt.Time
	}
	return l, nil
}

func (s *statelyDb) CreateLock(ctx context.Context, lock *models.Lock) (err apperrors.Error) {
	if lock.ScopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	if lock.LockID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("lock id cannot be empty")
	}

	tx, errDb := s.conn().BeginTx(ctx, &sql.TxOptions{})
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to start transaction")
		return dberror.ErrDatabase.Err(errDb)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = lockScopeTx(ctx, tx, lock.ScopeID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, held, lockErr := heldLock(ctx, tx, lock.ScopeID, now); lockErr != nil {
		err = lockErr
		return err
	} else if held {
		log.Ctx(ctx).Info().Str("scope_id", lock.ScopeID).Msg("scope already locked")
		err = dberror.ErrAlreadyLocked
		return err
	}

	if lock.AcquiredAt.IsZero() {
		lock.AcquiredAt = now
	}
	var expiresAt sql.NullTime
	if !lock.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: lock.ExpiresAt, Valid: true}
	}

	// The upsert replaces an expired row in place; the advisory lock
	// guarantees one winner among concurrent acquirers.
	query := `
		INSERT INTO locks (scope_id, lock_id, holder, acquired_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope_id) DO UPDATE
		SET lock_id = EXCLUDED.lock_id, holder = EXCLUDED.holder,
		    acquired_at = EXCLUDED.acquired_at, expires_at = EXCLUDED.expires_at;
	`
	if _, errDb = tx.ExecContext(ctx, query, lock.ScopeID, lock.LockID, lock.Holder, lock.AcquiredAt, expiresAt); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Str("scope_id", lock.ScopeID).Msg("failed to create lock")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}

	if errDb = tx.Commit(); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to commit transaction")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}
	return nil
}

func (s *statelyDb) DeleteLock(ctx context.Context, scopeID string, lockID uuid.UUID) (err apperrors.Error) {
	if scopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}

	tx, errDb := s.conn().BeginTx(ctx, &sql.TxOptions{})
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to start transaction")
		return dberror.ErrDatabase.Err(errDb)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = lockScopeTx(ctx, tx, scopeID); err != nil {
		return err
	}

	heldID, held, lockErr := heldLock(ctx, tx, scopeID, time.Now().UTC())
	if lockErr != nil {
		err = lockErr
		return err
	}
	if !held {
		err = dberror.ErrLockMismatch.Msg("no lock held on scope")
		return err
	}
	if heldID != lockID {
		log.Ctx(ctx).Info().Str("scope_id", scopeID).
			Str("lock_id", lockID.String()).
			Msg("lock id does not match held lock")
		err = dberror.ErrLockMismatch
		return err
	}

	if _, errDb = tx.ExecContext(ctx, `DELETE FROM locks WHERE scope_id = $1;`, scopeID); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to delete lock")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}

	if errDb = tx.Commit(); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to commit transaction")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}
	return nil
}

func (s *statelyDb) ForceDeleteLock(ctx context.Context, scopeID string) apperrors.Error {
	if scopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}

	result, errDb := s.conn().ExecContext(ctx, `
		DELETE FROM locks WHERE scope_id = $1
		AND (expires_at IS NULL OR expires_at > NOW());
	`, scopeID)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to force delete lock")
		return dberror.ErrDatabase.Err(errDb)
	}
	rowsAffected, errDb := result.RowsAffected()
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to retrieve result information")
		return dberror.ErrDatabase.Err(errDb)
	}
	if rowsAffected == 0 {
		return dberror.ErrNotFound.Msg("no lock held on scope")
	}
	return nil
}
