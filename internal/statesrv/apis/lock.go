package apis

import (
	"fmt"
	"net/http"

	"github.com/tansive/stately/internal/common/httpx"
	"github.com/tansive/stately/internal/statesrv/db/models"
	"github.com/tansive/stately/internal/statesrv/statemanager"
	"github.com/tansive/stately/pkg/api"
)

func lockResponse(l *models.Lock, holder api.LockHolder) *api.LockResponse {
	rsp := &api.LockResponse{
		ScopeID:    l.ScopeID,
		LockID:     l.LockID.String(),
		Holder:     holder,
		AcquiredAt: l.AcquiredAt,
	}
	if !l.ExpiresAt.IsZero() {
		expiresAt := l.ExpiresAt
		rsp.ExpiresAt = &expiresAt
	}
	return rsp
}

func acquireLock(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	scopeID := scopeFromRequest(r)

	req := &api.AcquireLockRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}

	lock, err := statemanager.AcquireLock(ctx, scopeID, req.Holder, req.TTL)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   fmt.Sprintf("/v1/scopes/%s/lock", scopeID),
		Response:   lockResponse(lock, req.Holder),
	}, nil
}

func releaseLock(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	scopeID := scopeFromRequest(r)
	lockID := r.URL.Query().Get("lock_id")
	if lockID == "" {
		return nil, httpx.ErrInvalidRequest("lock_id is required")
	}

	if err := statemanager.ReleaseLock(ctx, scopeID, lockID); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &api.StatusResponse{Status: "unlocked"},
	}, nil
}

func forceUnlock(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	scopeID := scopeFromRequest(r)

	req := &api.ForceUnlockRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}

	if err := statemanager.ForceUnlock(ctx, scopeID, req.LockID); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &api.StatusResponse{Status: "unlocked"},
	}, nil
}

func getLock(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	scopeID := scopeFromRequest(r)

	lock, holder, err := statemanager.GetLockInfo(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   lockResponse(lock, holder),
	}, nil
}
