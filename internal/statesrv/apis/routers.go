package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tansive/stately/internal/common/httpx"
)

var scopeHandlers = []httpx.ResponseHandlerParam{
	{
		Method:  http.MethodGet,
		Path:    "/scopes",
		Handler: listScopes,
	},
	{
		Method:  http.MethodDelete,
		Path:    "/scopes/{scopeID}",
		Handler: deleteScope,
	},
	{
		Method:  http.MethodGet,
		Path:    "/scopes/{scopeID}/manifest",
		Handler: getManifest,
	},
	{
		Method:  http.MethodPut,
		Path:    "/scopes/{scopeID}/manifest",
		Handler: putManifest,
	},
	{
		Method:  http.MethodGet,
		Path:    "/scopes/{scopeID}/lock",
		Handler: getLock,
	},
	{
		Method:  http.MethodPost,
		Path:    "/scopes/{scopeID}/lock",
		Handler: acquireLock,
	},
	{
		Method:  http.MethodDelete,
		Path:    "/scopes/{scopeID}/lock",
		Handler: releaseLock,
	},
	{
		Method:  http.MethodPost,
		Path:    "/scopes/{scopeID}/lock/force",
		Handler: forceUnlock,
	},
}

func Router(r chi.Router) {
	for _, handler := range scopeHandlers {
		r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
	}
}

func scopeFromRequest(r *http.Request) string {
	return chi.URLParam(r, "scopeID")
}
