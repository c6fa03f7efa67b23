package statemanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/stately/internal/common/apperrors"
	"github.com/tansive/stately/internal/statesrv/config"
	"github.com/tansive/stately/internal/statesrv/db"
	"github.com/tansive/stately/internal/statesrv/db/dberror"
	"github.com/tansive/stately/internal/statesrv/db/models"
	"github.com/tansive/stately/internal/statesrv/stcommon"
	"github.com/tansive/stately/pkg/api"
)

// resolveTTL applies the configured TTL policy: requests without a TTL get
// the default, requests above the maximum are clamped.
func resolveTTL(ttlStr string) (time.Duration, apperrors.Error) {
	var ttl time.Duration
	if ttlStr != "" {
		d, err := time.ParseDuration(ttlStr)
		if err != nil || d < 0 {
			return 0, ErrInvalidRequest.Msg("invalid ttl")
		}
		ttl = d
	}
	cfg := config.Config()
	if ttl == 0 {
		ttl = cfg.DefaultLockTTLDuration()
	}
	if max := cfg.MaxLockTTLDuration(); max > 0 && (ttl == 0 || ttl > max) {
		ttl = max
	}
	return ttl, nil
}

// AcquireLock claims the scope for the caller. It never waits: when another
// unexpired lock is held it fails immediately, embedding the holder's
// identity in the error for diagnostics.
func AcquireLock(ctx context.Context, scopeID string, holder api.LockHolder, ttlStr string) (*models.Lock, apperrors.Error) {
	if !stcommon.IsValidScopeID(scopeID) {
		return nil, ErrInvalidScope
	}
	ttl, err := resolveTTL(ttlStr)
	if err != nil {
		return nil, err
	}
	if holder.Holder == "" {
		holder.Holder = stcommon.SubjectFromContext(ctx)
	}

	now := time.Now().UTC()
	lock := &models.Lock{
		ScopeID:    scopeID,
		LockID:     uuid.New(),
		AcquiredAt: now,
	}
	if ttl > 0 {
		lock.ExpiresAt = now.Add(ttl)
	}
	holderJson, errJson := json.Marshal(holder)
	if errJson != nil {
		return nil, ErrInvalidRequest.MsgErr("invalid holder info", errJson)
	}
	if errSet := lock.Holder.Set(holderJson); errSet != nil {
		return nil, ErrInvalidRequest.MsgErr("invalid holder info", errSet)
	}

	if dbErr := db.DB(ctx).CreateLock(ctx, lock); dbErr != nil {
		if errors.Is(dbErr, dberror.ErrAlreadyLocked) {
			return nil, alreadyLockedError(ctx, scopeID)
		}
		return nil, dbErr
	}
	log.Ctx(ctx).Info().Str("scope_id", scopeID).
		Str("lock_id", lock.LockID.String()).
		Dur("ttl", ttl).
		Msg("lock acquired")
	return lock, nil
}

// alreadyLockedError decorates the conflict with the current holder so the
// caller can tell who to chase. Best effort: the lock may be gone by the time
// we look it up.
func alreadyLockedError(ctx context.Context, scopeID string) apperrors.Error {
	held, holder, err := GetLockInfo(ctx, scopeID)
	if err != nil {
		return dberror.ErrAlreadyLocked
	}
	return dberror.ErrAlreadyLocked.Msg(fmt.Sprintf(
		"scope already locked: lock_id=%s holder=%s operation=%s who=%s acquired_at=%s",
		held.LockID, holder.Holder, holder.Operation, holder.Who,
		held.AcquiredAt.Format(time.RFC3339)))
}

// ReleaseLock removes the lock when the presented token matches.
func ReleaseLock(ctx context.Context, scopeID string, lockID string) apperrors.Error {
	if !stcommon.IsValidScopeID(scopeID) {
		return ErrInvalidScope
	}
	id, errParse := uuid.Parse(lockID)
	if errParse != nil {
		return ErrInvalidRequest.Msg("invalid lock id")
	}
	if err := db.DB(ctx).DeleteLock(ctx, scopeID, id); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("scope_id", scopeID).Str("lock_id", lockID).Msg("lock released")
	return nil
}

// ForceUnlock removes the lock without validating the presented token. It
// exists to recover from a crashed holder and bypasses the normal safety
// check, so it always logs a warning.
func ForceUnlock(ctx context.Context, scopeID string, presentedToken string) apperrors.Error {
	if !stcommon.IsValidScopeID(scopeID) {
		return ErrInvalidScope
	}
	if err := db.DB(ctx).ForceDeleteLock(ctx, scopeID); err != nil {
		return err
	}
	log.Ctx(ctx).Warn().Str("scope_id", scopeID).
		Str("presented_token", presentedToken).
		Str("subject", stcommon.SubjectFromContext(ctx)).
		Msg("lock force-unlocked; mutual exclusion bypassed")
	return nil
}

// GetLockInfo returns the active lock and its decoded holder identity. The
// lock does not need to be held by the caller.
func GetLockInfo(ctx context.Context, scopeID string) (*models.Lock, api.LockHolder, apperrors.Error) {
	var holder api.LockHolder
	if !stcommon.IsValidScopeID(scopeID) {
		return nil, holder, ErrInvalidScope
	}
	l, err := db.DB(ctx).GetLock(ctx, scopeID)
	if err != nil {
		return nil, holder, err
	}
	if len(l.Holder.Bytes) > 0 {
		if errJson := json.Unmarshal(l.Holder.Bytes, &holder); errJson != nil {
			log.Ctx(ctx).Error().Err(errJson).Str("scope_id", scopeID).Msg("failed to decode lock holder")
		}
	}
	return l, holder, nil
}
