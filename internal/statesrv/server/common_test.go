package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/stately/internal/statesrv/config"
	"github.com/tansive/stately/internal/statesrv/db"
)

// newTestServer builds a server on a fresh memory-backed store.
func newTestServer(t *testing.T) *StateServer {
	t.Helper()
	require.NoError(t, config.LoadConfig(""))
	ctx := log.Logger.WithContext(context.Background())
	require.NoError(t, db.Init(ctx))

	s, err := CreateNewServer()
	require.NoError(t, err, "create new server")
	s.MountHandlers()
	return s
}

func executeTestRequest(t *testing.T, s *StateServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func setRequestBodyAndHeader(t *testing.T, req *http.Request, data any) {
	t.Helper()
	var jsonData []byte
	if b, ok := data.([]byte); ok {
		jsonData = b
	} else {
		var err error
		jsonData, err = json.Marshal(data)
		assert.NoError(t, err, "marshal request body")
	}
	req.Body = io.NopCloser(bytes.NewReader(jsonData))
	req.ContentLength = int64(len(jsonData))
	req.Header.Set("Content-Type", "application/json")
}

func decodeRsp(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out),
		"decode response: %s", rr.Body.String())
}
