package postgresql

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/tansive/stately/internal/common/apperrors"
	"github.com/tansive/stately/internal/statesrv/db/config"
	"github.com/tansive/stately/internal/statesrv/db/dberror"
	"github.com/tansive/stately/internal/statesrv/db/models"
)

func (s *statelyDb) GetManifest(ctx context.Context, scopeID string) (*models.Manifest, apperrors.Error) {
	if scopeID == "" {
		return nil, dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}

	query := `
		SELECT scope_id, serial, content, checksum, compressed, created_at, updated_at
		FROM manifests
		WHERE scope_id = $1;
	`

	row := s.conn().QueryRowContext(ctx, query, scopeID)
	m := &models.Manifest{}
	var compressed bool
	err := row.Scan(&m.ScopeID, &m.Serial, &m.Content, &m.Checksum, &compressed, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("scope_id", scopeID).Msg("manifest not found")
			return nil, dberror.ErrNotFound.Msg("manifest not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to retrieve manifest")
		return nil, dberror.ErrDatabase.Err(err)
	}

	content, decodeErr := decodeContent(m.Content, compressed)
	if decodeErr != nil {
		log.Ctx(ctx).Error().Err(decodeErr).Str("scope_id", scopeID).Msg("failed to uncompress manifest content")
		return nil, decodeErr
	}
	m.Content = content

	return m, nil
}

// decodeContent reverses at-rest compression. A decode failure means the
// stored bytes are damaged, not that the database misbehaved.
func decodeContent(content []byte, compressed bool) ([]byte, apperrors.Error) {
	if !compressed {
		return content, nil
	}
	decoded, err := snappy.Decode(nil, content)
	if err != nil {
		return nil, dberror.ErrCorruption.MsgErr("failed to decompress manifest content; restore from a backup", err)
	}
	return decoded, nil
}

// heldLock fetches the active lock row for a scope inside tx, treating an
// expired row as absent.
func heldLock(ctx context.Context, tx *sql.Tx, scopeID string, now time.Time) (uuid.UUID, bool, apperrors.Error) {
	var lockID uuid.UUID
	var expiresAt sql.NullTime
	err := tx.QueryRowContext(ctx, `
		SELECT lock_id, expires_at FROM locks WHERE scope_id = $1;
	`, scopeID).Scan(&lockID, &expiresAt)
	if err == sql.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, dberror.ErrDatabase.Err(err)
	}
	if expiresAt.Valid && !now.Before(expiresAt.Time) {
		return uuid.Nil, false, nil
	}
	return lockID, true, nil
}

func checkLockForWrite(ctx context.Context, tx *sql.Tx, scopeID string, lockID uuid.UUID, now time.Time) apperrors.Error {
	heldID, held, err := heldLock(ctx, tx, scopeID, now)
	if err != nil {
		return err
	}
	if !held {
		if lockID != uuid.Nil {
			return dberror.ErrLockConflict.Msg("no lock is held on the scope")
		}
		return nil
	}
	if lockID != heldID {
		return dberror.ErrLockConflict
	}
	return nil
}

func (s *statelyDb) PutManifest(ctx context.Context, m *models.Manifest, baseSerial int64, lockID uuid.UUID) (err apperrors.Error) {
	if m.ScopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	if len(m.Content) == 0 {
		return dberror.ErrInvalidInput.Msg("content cannot be empty")
	}
	if baseSerial < 0 {
		return dberror.ErrInvalidInput.Msg("base serial cannot be negative")
	}

	content := m.Content
	compressed := config.CompressManifests()
	if compressed {
		contentZ := snappy.Encode(nil, m.Content)
		log.Ctx(ctx).Debug().Msgf("raw: %d, compressed: %d", len(m.Content), len(contentZ))
		content = contentZ
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

	if err = lockScopeTx(ctx, tx, m.ScopeID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err = checkLockForWrite(ctx, tx, m.ScopeID, lockID, now); err != nil {
		return err
	}

	var curSerial int64
	errDb = tx.QueryRowContext(ctx, `
		SELECT serial FROM manifests WHERE scope_id = $1 FOR UPDATE;
	`, m.ScopeID).Scan(&curSerial)

	exists := true
	if errDb == sql.ErrNoRows {
		exists = false
	} else if errDb != nil {
		return dberror.ErrDatabase.Err(errDb)
	}

	if exists {
		if baseSerial != curSerial {
			log.Ctx(ctx).Info().Str("scope_id", m.ScopeID).
				Int64("base_serial", baseSerial).
				Int64("current_serial", curSerial).
				Msg("stale base serial")
			err = dberror.ErrSerialConflict
			return err
		}
	} else if baseSerial != 0 {
		err = dberror.ErrSerialConflict.Msg("scope has no manifest; base serial must be 0")
		return err
	}

	m.Serial = baseSerial + 1

	query := `
		INSERT INTO manifests (scope_id, serial, content, checksum, compressed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope_id) DO UPDATE
		SET serial = EXCLUDED.serial, content = EXCLUDED.content,
		    checksum = EXCLUDED.checksum, compressed = EXCLUDED.compressed,
		    updated_at = NOW()
		RETURNING created_at, updated_at;
	`
	errDb = tx.QueryRowContext(ctx, query, m.ScopeID, m.Serial, content, m.Checksum, compressed).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	if errDb != nil {
		if pgErr, ok := errDb.(*pgconn.PgError); ok {
			if pgErr.Code == "23514" && pgErr.ConstraintName == "manifests_scope_id_check" {
				log.Ctx(ctx).Error().Str("scope_id", m.ScopeID).Msg("invalid scope id format")
				err = dberror.ErrInvalidInput.Msg("invalid scope id format")
				return err
			}
		}
		log.Ctx(ctx).Error().Err(errDb).Str("scope_id", m.ScopeID).Msg("failed to write manifest")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}

	// Success is acknowledged only after the commit makes the write durable.
	if errDb = tx.Commit(); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to commit transaction")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}
	return nil
}

func (s *statelyDb) DeleteManifest(ctx context.Context, scopeID string, lockID uuid.UUID) (err apperrors.Error) {
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
	if err = checkLockForWrite(ctx, tx, scopeID, lockID, time.Now().UTC()); err != nil {
		return err
	}

	result, errDb := tx.ExecContext(ctx, `DELETE FROM manifests WHERE scope_id = $1;`, scopeID)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to delete manifest")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}
	rowsAffected, errDb := result.RowsAffected()
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to retrieve result information")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}
	if rowsAffected == 0 {
		log.Ctx(ctx).Info().Str("scope_id", scopeID).Msg("manifest not found")
		err = dberror.ErrNotFound.Msg("manifest not found")
		return err
	}

	if errDb = tx.Commit(); errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to commit transaction")
		err = dberror.ErrDatabase.Err(errDb)
		return err
	}
	return nil
}

func (s *statelyDb) ListScopes(ctx context.Context) ([]*models.ScopeSummary, apperrors.Error) {
	query := `
		SELECT m.scope_id, m.serial, m.checksum, m.updated_at,
		       (l.scope_id IS NOT NULL AND (l.expires_at IS NULL OR l.expires_at > NOW())) AS locked
		FROM manifests m
		LEFT JOIN locks l ON l.scope_id = m.scope_id
		ORDER BY m.scope_id;
	`

	rows, errDb := s.conn().QueryContext(ctx, query)
	if errDb != nil {
		log.Ctx(ctx).Error().Err(errDb).Msg("failed to list scopes")
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	defer rows.Close()

	var summaries []*models.ScopeSummary
	for rows.Next() {
		sum := &models.ScopeSummary{}
		if err := rows.Scan(&sum.ScopeID, &sum.Serial, &sum.Checksum, &sum.UpdatedAt, &sum.Locked); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan scope summary")
			return nil, dberror.ErrDatabase.Err(err)
		}
		summaries = append(summaries, sum)
	}
	if errDb := rows.Err(); errDb != nil {
		return nil, dberror.ErrDatabase.Err(errDb)
	}
	return summaries, nil
}
