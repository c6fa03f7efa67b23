package httpx

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"
)

type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, e.Status, e.Message)
}

// RequestOption customizes an outgoing request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	transport http.RoundTripper
	token     string
}

// WithTransport overrides the HTTP transport. Used by tests to point the
// client at an httptest server handler.
func WithTransport(rt http.RoundTripper) RequestOption {
	return func(c *requestConfig) { c.transport = rt }
}

// WithBearerToken attaches an Authorization header to the request.
func WithBearerToken(token string) RequestOption {
	return func(c *requestConfig) { c.token = token }
}

func newClient(timeout time.Duration, cfg *requestConfig) *http.Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if cfg.transport != nil {
		client.Transport = cfg.transport
	}
	return client
}

func doRequest(request *http.Request, respObj interface{}, timeout time.Duration, cfg *requestConfig) error {
	if cfg.token != "" {
		request.Header.Set("Authorization", "Bearer "+cfg.token)
	}
	response, err := newClient(timeout, cfg).Do(request)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(response.Body)
		return &HTTPError{
			StatusCode: response.StatusCode,
			Status:     response.Status,
			Message:    string(body),
		}
	}
	if respObj == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(respObj); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func bodyRequest(method, url string, reqObj Requester, respObj interface{}, timeout time.Duration, opts ...RequestOption) error {
	cfg := &requestConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	reqBody, err := json.Marshal(reqObj)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	request, err := http.NewRequest(method, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	return doRequest(request, respObj, timeout, cfg)
}

func queryRequest(method, fullURL string, reqObj Requester, respObj interface{}, timeout time.Duration, opts ...RequestOption) error {
	cfg := &requestConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	q, err := structToQueryString(reqObj)
	if err != nil {
		return err
	}
	if q != "" {
		fullURL = fmt.Sprintf("%s?%s", fullURL, q)
	}
	request, err := http.NewRequest(method, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doRequest(request, respObj, timeout, cfg)
}

// structToQueryString encodes the request object's JSON fields as query
// parameters, skipping fields already consumed by the path template.
func structToQueryString(reqObj Requester) (string, error) {
	_, pathTemplate := reqObj.RequestMethod()
	pathKeys := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(pathTemplate, -1) {
		pathKeys[m[1]] = true
	}

	v := reflect.ValueOf(reqObj)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return "", fmt.Errorf("input must be a pointer to a struct")
	}
	v = v.Elem()
	t := v.Type()
	values := url.Values{}

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		tagParts := strings.Split(jsonTag, ",")
		jsonKey := tagParts[0]
		if pathKeys[jsonKey] {
			continue
		}

		fieldValue := v.Field(i)
		if fieldValue.Kind() == reflect.Ptr && fieldValue.IsNil() {
			continue
		}
		if fieldValue.IsZero() && strings.Contains(jsonTag, "omitempty") {
			continue
		}

		valueStr, err := json.Marshal(fieldValue.Interface())
		if err != nil {
			return "", fmt.Errorf("error marshaling field %s: %v", field.Name, err)
		}
		values.Add(jsonKey, strings.Trim(string(valueStr), "\""))
	}

	return values.Encode(), nil
}
