package apis

import (
	"net/http"

	"github.com/tansive/stately/internal/common/httpx"
	"github.com/tansive/stately/internal/statesrv/statemanager"
	"github.com/tansive/stately/pkg/api"
)

func getManifest(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	scopeID := scopeFromRequest(r)

	if path := r.URL.Query().Get("path"); path != "" {
		rsp, err := statemanager.QueryManifest(ctx, scopeID, path)
		if err != nil {
			return nil, err
		}
		return &httpx.Response{
			StatusCode: http.StatusOK,
			Response:   rsp,
		}, nil
	}

	m, err := statemanager.ReadManifest(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &api.ManifestResponse{
			ScopeID:   m.ScopeID,
			Serial:    m.Serial,
			Content:   m.Content,
			Checksum:  m.Checksum,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}, nil
}

func putManifest(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	req := &api.WriteManifestRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	req.ScopeID = scopeFromRequest(r)

	m, err := statemanager.WriteManifest(ctx, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &api.ManifestMeta{
			ScopeID:   m.ScopeID,
			Serial:    m.Serial,
			Checksum:  m.Checksum,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}, nil
}

func listScopes(r *http.Request) (*httpx.Response, error) {
	summaries, err := statemanager.ListScopes(r.Context())
	if err != nil {
		return nil, err
	}
	rsp := &api.ListScopesResponse{Scopes: []api.ScopeSummary{}}
	for _, s := range summaries {
		rsp.Scopes = append(rsp.Scopes, api.ScopeSummary{
			ScopeID:   s.ScopeID,
			Serial:    s.Serial,
			Checksum:  s.Checksum,
			UpdatedAt: s.UpdatedAt,
			Locked:    s.Locked,
		})
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

func deleteScope(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	scopeID := scopeFromRequest(r)
	lockID := r.URL.Query().Get("lock_id")

	if err := statemanager.DeleteScope(ctx, scopeID, lockID); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &api.StatusResponse{Status: "deleted"},
	}, nil
}
