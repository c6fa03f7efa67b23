// Package client is a typed Go client for the stately HTTP API.
package client

import (
	"errors"
	"net/http"
	"time"

	"github.com/tansive/stately/internal/common/httpx"
	"github.com/tansive/stately/pkg/api"
)

type Client struct {
	baseURL   string
	token     string
	timeout   time.Duration
	transport http.RoundTripper
}

type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides the default 10s request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithTransport overrides the HTTP transport. Used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(reqObj httpx.Requester, respObj any) error {
	var opts []httpx.RequestOption
	if c.token != "" {
		opts = append(opts, httpx.WithBearerToken(c.token))
	}
	if c.transport != nil {
		opts = append(opts, httpx.WithTransport(c.transport))
	}
	return httpx.Fetch(c.baseURL, reqObj, respObj, c.timeout, opts...)
}

func (c *Client) ReadManifest(scopeID string) (*api.ManifestResponse, error) {
	rsp := &api.ManifestResponse{}
	if err := c.do(&api.ReadManifestRequest{ScopeID: scopeID}, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

// QueryManifest extracts a value from a JSON manifest by path without
// transferring the whole content.
func (c *Client) QueryManifest(scopeID, path string) (*api.QueryResponse, error) {
	rsp := &api.QueryResponse{}
	if err := c.do(&api.ReadManifestRequest{ScopeID: scopeID, Path: path}, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (c *Client) WriteManifest(scopeID string, baseSerial int64, content []byte, lockID string) (*api.ManifestMeta, error) {
	rsp := &api.ManifestMeta{}
	req := &api.WriteManifestRequest{
		ScopeID:    scopeID,
		BaseSerial: baseSerial,
		Content:    content,
		LockID:     lockID,
	}
	if err := c.do(req, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (c *Client) AcquireLock(scopeID string, holder api.LockHolder, ttl time.Duration) (*api.LockResponse, error) {
	rsp := &api.LockResponse{}
	req := &api.AcquireLockRequest{
		ScopeID: scopeID,
		Holder:  holder,
	}
	if ttl > 0 {
		req.TTL = ttl.String()
	}
	if err := c.do(req, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (c *Client) ReleaseLock(scopeID, lockID string) error {
	return c.do(&api.ReleaseLockRequest{ScopeID: scopeID, LockID: lockID}, &api.StatusResponse{})
}

func (c *Client) ForceUnlock(scopeID, lockID string) error {
	return c.do(&api.ForceUnlockRequest{ScopeID: scopeID, LockID: lockID}, &api.StatusResponse{})
}

func (c *Client) GetLock(scopeID string) (*api.LockResponse, error) {
	rsp := &api.LockResponse{}
	if err := c.do(&api.GetLockRequest{ScopeID: scopeID}, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (c *Client) ListScopes() (*api.ListScopesResponse, error) {
	rsp := &api.ListScopesResponse{}
	if err := c.do(&api.ListScopesRequest{}, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (c *Client) DeleteScope(scopeID, lockID string) error {
	return c.do(&api.DeleteScopeRequest{ScopeID: scopeID, LockID: lockID}, &api.StatusResponse{})
}

func (c *Client) Version() (*api.GetVersionResponse, error) {
	rsp := &api.GetVersionResponse{}
	if err := c.do(&api.GetVersionRequest{}, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

// IsLocked reports whether the error is a lock conflict: another caller
// holds the scope's lock.
func IsLocked(err error) bool {
	var httpErr *httpx.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusLocked
	}
	return false
}

// IsConflict reports whether the error is a serial or lock-token conflict.
// The caller should re-read and retry with fresh state.
func IsConflict(err error) bool {
	var httpErr *httpx.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusConflict
	}
	return false
}

// IsNotFound reports whether the scope has no manifest (or held lock).
func IsNotFound(err error) bool {
	var httpErr *httpx.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusNotFound
	}
	return false
}
