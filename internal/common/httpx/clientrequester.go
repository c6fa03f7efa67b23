package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Requester is implemented by request objects that know the HTTP method and
// path template they are sent with. Path placeholders like {scope_id} are
// resolved from the object's JSON fields.
type Requester interface {
	RequestMethod() (string, string)
}

func Fetch(baseURL string, reqObj Requester, respObj interface{}, timeout time.Duration, opts ...RequestOption) error {
	method, _ := reqObj.RequestMethod()
	path, err := resolvePath(reqObj)
	if err != nil {
		return err
	}
	// trim ending slash in baseURL
	fullURL := strings.TrimRight(baseURL, "/") + path
	switch method {
	case http.MethodPost, http.MethodPut:
		return bodyRequest(method, fullURL, reqObj, respObj, timeout, opts...)
	case http.MethodGet, http.MethodDelete:
		return queryRequest(method, fullURL, reqObj, respObj, timeout, opts...)
	}
	return errors.New("Fetch: method not supported")
}

var placeholderRe = regexp.MustCompile(`\{([^}]+)\}`)

func resolvePath(data Requester) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	var dataMap map[string]interface{}
	if err := json.Unmarshal(jsonData, &dataMap); err != nil {
		return "", err
	}
	_, requestPathTemplate := data.RequestMethod()
	replacedPath := placeholderRe.ReplaceAllStringFunc(requestPathTemplate, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := dataMap[key]; ok {
			return fmt.Sprintf("%v", value)
		}
		return match
	})
	if strings.Contains(replacedPath, "{") || strings.Contains(replacedPath, "//") {
		return "", errors.New("unable to determine request path")
	}
	return replacedPath, nil
}
