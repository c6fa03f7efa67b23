// Package api defines the wire types of the stately HTTP API. Request types
// implement httpx.Requester so the Go client can send them directly.
package api

import (
	"net/http"
	"time"
)

// LockHolder is the free-form identity attached to a lock for diagnostics.
type LockHolder struct {
	Holder    string `json:"holder,omitempty"`    // authenticated principal, if any
	Operation string `json:"operation,omitempty"` // what the holder is doing
	Who       string `json:"who,omitempty"`       // user@machine
}

type ManifestResponse struct {
	ScopeID   string    `json:"scope_id"`
	Serial    int64     `json:"serial"`
	Content   []byte    `json:"content,omitempty"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ManifestMeta is manifest metadata without the content payload.
type ManifestMeta struct {
	ScopeID   string    `json:"scope_id"`
	Serial    int64     `json:"serial"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QueryResponse is the result of a path query against a JSON manifest.
type QueryResponse struct {
	ScopeID string `json:"scope_id"`
	Serial  int64  `json:"serial"`
	Path    string `json:"path"`
	Value   any    `json:"value"`
}

type LockResponse struct {
	ScopeID    string     `json:"scope_id"`
	LockID     string     `json:"lock_id"`
	Holder     LockHolder `json:"holder"`
	AcquiredAt time.Time  `json:"acquired_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type ScopeSummary struct {
	ScopeID   string    `json:"scope_id"`
	Serial    int64     `json:"serial"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
	Locked    bool      `json:"locked"`
}

type ListScopesResponse struct {
	Scopes []ScopeSummary `json:"scopes"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type GetVersionResponse struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

// Requests

type ReadManifestRequest struct {
	ScopeID string `json:"scope_id"`
	Path    string `json:"path,omitempty"`
}

func (r *ReadManifestRequest) RequestMethod() (string, string) {
	return http.MethodGet, "/v1/scopes/{scope_id}/manifest"
}

type WriteManifestRequest struct {
	ScopeID    string `json:"scope_id"`
	BaseSerial int64  `json:"base_serial"`
	Content    []byte `json:"content" validate:"required"`
	LockID     string `json:"lock_id,omitempty" validate:"omitempty,uuid"`
}

func (r *WriteManifestRequest) RequestMethod() (string, string) {
	return http.MethodPut, "/v1/scopes/{scope_id}/manifest"
}

type AcquireLockRequest struct {
	ScopeID string     `json:"scope_id"`
	Holder  LockHolder `json:"holder"`
	TTL     string     `json:"ttl,omitempty"` // duration string, e.g. "30s"
}

func (r *AcquireLockRequest) RequestMethod() (string, string) {
	return http.MethodPost, "/v1/scopes/{scope_id}/lock"
}

type ReleaseLockRequest struct {
	ScopeID string `json:"scope_id"`
	LockID  string `json:"lock_id" validate:"required,uuid"`
}

func (r *ReleaseLockRequest) RequestMethod() (string, string) {
	return http.MethodDelete, "/v1/scopes/{scope_id}/lock"
}

type ForceUnlockRequest struct {
	ScopeID string `json:"scope_id"`
	LockID  string `json:"lock_id,omitempty"`
}

func (r *ForceUnlockRequest) RequestMethod() (string, string) {
	return http.MethodPost, "/v1/scopes/{scope_id}/lock/force"
}

type GetLockRequest struct {
	ScopeID string `json:"scope_id"`
}

func (r *GetLockRequest) RequestMethod() (string, string) {
	return http.MethodGet, "/v1/scopes/{scope_id}/lock"
}

type ListScopesRequest struct{}

func (r *ListScopesRequest) RequestMethod() (string, string) {
	return http.MethodGet, "/v1/scopes"
}

type DeleteScopeRequest struct {
	ScopeID string `json:"scope_id"`
	LockID  string `json:"lock_id,omitempty"`
}

func (r *DeleteScopeRequest) RequestMethod() (string, string) {
	return http.MethodDelete, "/v1/scopes/{scope_id}"
}

type GetVersionRequest struct{}

func (r *GetVersionRequest) RequestMethod() (string, string) {
	return http.MethodGet, "/version"
}
