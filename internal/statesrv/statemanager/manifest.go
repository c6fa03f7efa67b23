// Package statemanager implements the state store operations on top of the
// storage drivers: checksum bookkeeping, scope and request validation, lock
// token generation and TTL policy.
package statemanager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tansive/stately/internal/common/apperrors"
	"github.com/tansive/stately/internal/statesrv/db"
	"github.com/tansive/stately/internal/statesrv/db/models"
	"github.com/tansive/stately/internal/statesrv/stcommon"
	"github.com/tansive/stately/pkg/api"
)

var validate = validator.New()

// Checksum returns the hex sha256 of manifest content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func parseLockID(lockID string) (uuid.UUID, apperrors.Error) {
	if lockID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(lockID)
	if err != nil {
		return uuid.Nil, ErrInvalidRequest.Msg("invalid lock id")
	}
	return id, nil
}

// ReadManifest returns the manifest for a scope, verifying content integrity
// against the stored checksum. Reads never consult the lock table.
func ReadManifest(ctx context.Context, scopeID string) (*models.Manifest, apperrors.Error) {
	if !stcommon.IsValidScopeID(scopeID) {
		return nil, ErrInvalidScope
	}
	m, err := db.DB(ctx).GetManifest(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	if Checksum(m.Content) != m.Checksum {
		log.Ctx(ctx).Error().Str("scope_id", scopeID).
			Str("stored_checksum", m.Checksum).
			Msg("manifest checksum mismatch")
		return nil, ErrCorruption.Msg("manifest checksum mismatch; restore from a backup")
	}
	return m, nil
}

// QueryManifest extracts a value from a JSON manifest by gjson path.
func QueryManifest(ctx context.Context, scopeID string, path string) (*api.QueryResponse, apperrors.Error) {
	if path == "" {
		return nil, ErrInvalidRequest.Msg("path cannot be empty")
	}
	m, err := ReadManifest(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(m.Content) {
		return nil, ErrNotJSON
	}
	result := gjson.GetBytes(m.Content, path)
	if !result.Exists() {
		return nil, ErrPathNotFound
	}
	return &api.QueryResponse{
		ScopeID: m.ScopeID,
		Serial:  m.Serial,
		Path:    path,
		Value:   result.Value(),
	}, nil
}

// WriteManifest atomically replaces the manifest for a scope. The storage
// driver evaluates the base serial and lock checks together with the write.
func WriteManifest(ctx context.Context, req *api.WriteManifestRequest) (*models.Manifest, apperrors.Error) {
	if !stcommon.IsValidScopeID(req.ScopeID) {
		return nil, ErrInvalidScope
	}
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.MsgErr("invalid write request", err)
	}
	lockID, err := parseLockID(req.LockID)
	if err != nil {
		return nil, err
	}

	m := &models.Manifest{
		ScopeID:  req.ScopeID,
		Content:  req.Content,
		Checksum: Checksum(req.Content),
	}
	if err := db.DB(ctx).PutManifest(ctx, m, req.BaseSerial, lockID); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("scope_id", m.ScopeID).
		Int64("serial", m.Serial).
		Msg("manifest written")
	return m, nil
}

// DeleteScope removes a scope's manifest. The same lock gating as writes
// applies.
func DeleteScope(ctx context.Context, scopeID string, lockID string) apperrors.Error {
	if !stcommon.IsValidScopeID(scopeID) {
		return ErrInvalidScope
	}
	id, err := parseLockID(lockID)
	if err != nil {
		return err
	}
	if err := db.DB(ctx).DeleteManifest(ctx, scopeID, id); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("scope_id", scopeID).Msg("scope deleted")
	return nil
}

// ListScopes returns metadata for every scope with a manifest.
func ListScopes(ctx context.Context) ([]*models.ScopeSummary, apperrors.Error) {
	return db.DB(ctx).ListScopes(ctx)
}
