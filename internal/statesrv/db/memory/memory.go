// Package memory is an in-process storage driver. It backs the "memory"
// storage setting used in development and by the test suite, and emulates a
// single shared remote store: all handles in the process see the same data.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/stately/internal/common/apperrors"
	"github.com/tansive/stately/internal/statesrv/db/dberror"
	"github.com/tansive/stately/internal/statesrv/db/models"
)

// Package-level maps so every handle shares one store, the way separate
// connections share one database. One mutex guards both maps: the lock check
// and the manifest write of a put must be a single critical section.
var (
	mu        sync.Mutex
	manifests map[string]*models.Manifest
	locks     map[string]*models.Lock
)

func init() {
	Reset()
}

// Reset clears out all existing manifest and lock data. Used between tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	manifests = map[string]*models.Manifest{}
	locks = map[string]*models.Lock{}
}

type statelyDb struct{}

func NewStatelyDb() *statelyDb {
	return &statelyDb{}
}

// Close is a no-op; the memory store has no per-handle resources.
func (d *statelyDb) Close(ctx context.Context) {}

// activeLock returns the unexpired lock for a scope, dropping an expired row
// lazily. Callers must hold mu.
func activeLock(scopeID string, now time.Time) *models.Lock {
	l, ok := locks[scopeID]
	if !ok {
		return nil
	}
	if l.Expired(now) {
		delete(locks, scopeID)
		return nil
	}
	return l
}

// checkLockForWrite enforces the write gating rules. Callers must hold mu.
func checkLockForWrite(scopeID string, lockID uuid.UUID, now time.Time) apperrors.Error {
	held := activeLock(scopeID, now)
	if held == nil {
		if lockID != uuid.Nil {
			return dberror.ErrLockConflict.Msg("no lock is held on the scope")
		}
		return nil
	}
	if lockID != held.LockID {
		return dberror.ErrLockConflict
	}
	return nil
}

func (d *statelyDb) GetManifest(ctx context.Context, scopeID string) (*models.Manifest, apperrors.Error) {
	if scopeID == "" {
		return nil, dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	mu.Lock()
	defer mu.Unlock()

	m, ok := manifests[scopeID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("manifest not found")
	}
	cp := *m
	cp.Content = append([]byte(nil), m.Content...)
	return &cp, nil
}

func (d *statelyDb) PutManifest(ctx context.Context, m *models.Manifest, baseSerial int64, lockID uuid.UUID) apperrors.Error {
	if m.ScopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	if len(m.Content) == 0 {
		return dberror.ErrInvalidInput.Msg("content cannot be empty")
	}
	if baseSerial < 0 {
		return dberror.ErrInvalidInput.Msg("base serial cannot be negative")
	}
	now := time.Now().UTC()

	mu.Lock()
	defer mu.Unlock()

	if err := checkLockForWrite(m.ScopeID, lockID, now); err != nil {
		return err
	}

	cur, exists := manifests[m.ScopeID]
	if exists {
		if baseSerial != cur.Serial {
			log.Ctx(ctx).Info().Str("scope_id", m.ScopeID).
				Int64("base_serial", baseSerial).
				Int64("current_serial", cur.Serial).
				Msg("stale base serial")
			return dberror.ErrSerialConflict
		}
		m.CreatedAt = cur.CreatedAt
	} else {
		if baseSerial != 0 {
			return dberror.ErrSerialConflict.Msg("scope has no manifest; base serial must be 0")
		}
		m.CreatedAt = now
	}

	m.Serial = baseSerial + 1
	m.UpdatedAt = now

	cp := *m
	cp.Content = append([]byte(nil), m.Content...)
	manifests[m.ScopeID] = &cp
	return nil
}

func (d *statelyDb) DeleteManifest(ctx context.Context, scopeID string, lockID uuid.UUID) apperrors.Error {
	if scopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	now := time.Now().UTC()

	mu.Lock()
	defer mu.Unlock()

	if err := checkLockForWrite(scopeID, lockID, now); err != nil {
		return err
	}
	if _, ok := manifests[scopeID]; !ok {
		return dberror.ErrNotFound.Msg("manifest not found")
	}
	delete(manifests, scopeID)
	return nil
}

func (d *statelyDb) ListScopes(ctx context.Context) ([]*models.ScopeSummary, apperrors.Error) {
	now := time.Now().UTC()

	mu.Lock()
	defer mu.Unlock()

	summaries := make([]*models.ScopeSummary, 0, len(manifests))
	for _, m := range manifests {
		summaries = append(summaries, &models.ScopeSummary{
			ScopeID:   m.ScopeID,
			Serial:    m.Serial,
			Checksum:  m.Checksum,
			UpdatedAt: m.UpdatedAt,
			Locked:    activeLock(m.ScopeID, now) != nil,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ScopeID < summaries[j].ScopeID
	})
	return summaries, nil
}

func (d *statelyDb) GetLock(ctx context.Context, scopeID string) (*models.Lock, apperrors.Error) {
	if scopeID == "" {
		return nil, dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	mu.Lock()
	defer mu.Unlock()

	l := activeLock(scopeID, time.Now().UTC())
	if l == nil {
		return nil, dberror.ErrNotFound.Msg("no lock held on scope")
	}
	cp := *l
	return &cp, nil
}

func (d *statelyDb) CreateLock(ctx context.Context, lock *models.Lock) apperrors.Error {
	if lock.ScopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	if lock.LockID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("lock id cannot be empty")
	}
	now := time.Now().UTC()

	mu.Lock()
	defer mu.Unlock()

	if held := activeLock(lock.ScopeID, now); held != nil {
		log.Ctx(ctx).Info().Str("scope_id", lock.ScopeID).
			Str("held_lock_id", held.LockID.String()).
			Msg("scope already locked")
		return dberror.ErrAlreadyLocked
	}
	if lock.AcquiredAt.IsZero() {
		lock.AcquiredAt = now
	}
	cp := *lock
	locks[lock.ScopeID] = &cp
	return nil
}

func (d *statelyDb) DeleteLock(ctx context.Context, scopeID string, lockID uuid.UUID) apperrors.Error {
	if scopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	mu.Lock()
	defer mu.Unlock()

	held := activeLock(scopeID, time.Now().UTC())
	if held == nil {
		return dberror.ErrLockMismatch.Msg("no lock held on scope")
	}
	if held.LockID != lockID {
		return dberror.ErrLockMismatch
	}
	delete(locks, scopeID)
	return nil
}

func (d *statelyDb) ForceDeleteLock(ctx context.Context, scopeID string) apperrors.Error {
	if scopeID == "" {
		return dberror.ErrInvalidInput.Msg("scope id cannot be empty")
	}
	mu.Lock()
	defer mu.Unlock()

	if activeLock(scopeID, time.Now().UTC()) == nil {
		return dberror.ErrNotFound.Msg("no lock held on scope")
	}
	delete(locks, scopeID)
	return nil
}
