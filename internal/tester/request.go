package tester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/moamenhredeen/oascov/internal/models"
)

const userAgent = "oascov/1.0"

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodPatch:   true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// RequestBuilder builds HTTP requests from test cases
type RequestBuilder struct {
	headers   map[string]string
	authToken string
}

// NewRequestBuilder creates a new request builder adding headers and an optional bearer token to every request
func NewRequestBuilder(headers map[string]string, authToken string) *RequestBuilder {
	return &RequestBuilder{
		headers:   headers,
		authToken: authToken,
	}
}

// BuildRequest builds an HTTP request from a test case.
// Unsupported methods and unbuildable URLs are reported as ExecutionError.
func (rb *RequestBuilder) BuildRequest(ctx context.Context, baseURL string, tc models.TestCase) (*http.Request, error) {
	method := strings.ToUpper(tc.Method)
	if !supportedMethods[method] {
		return nil, &ExecutionError{Test: tc.Name, Err: fmt.Errorf("%w: %q", ErrUnsupportedMethod, tc.Method)}
	}

	// Build URL with path parameters
	fullPath := tc.Endpoint
	for _, name := range tc.Params.Names(models.LocationPath) {
		val := formatValue(tc.Params[models.LocationPath][name].Example)
		fullPath = strings.ReplaceAll(fullPath, "{"+name+"}", url.PathEscape(val))
	}
	fullURL := strings.TrimRight(baseURL, "/") + fullPath

	// Add query parameters
	queryParams := url.Values{}
	for _, name := range tc.Params.Names(models.LocationQuery) {
		example := tc.Params[models.LocationQuery][name].Example
		if list, ok := example.([]any); ok {
			for _, item := range list {
				queryParams.Add(name, formatValue(item))
			}
			continue
		}
		queryParams.Add(name, formatValue(example))
	}
	if len(queryParams) > 0 {
		fullURL += "?" + queryParams.Encode()
	}

	var body io.Reader
	if tc.Body != nil {
		bodyBytes, err := json.Marshal(tc.Body)
		if err != nil {
			return nil, &ExecutionError{Test: tc.Name, Err: fmt.Errorf("failed to encode request body: %w", err)}
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, &ExecutionError{Test: tc.Name, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	// Set default headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range rb.headers {
		req.Header.Set(k, v)
	}
	if rb.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+rb.authToken)
	}

	// Add header and cookie parameters
	for _, name := range tc.Params.Names(models.LocationHeader) {
		req.Header.Set(name, formatValue(tc.Params[models.LocationHeader][name].Example))
	}
	for _, name := range tc.Params.Names(models.LocationCookie) {
		req.AddCookie(&http.Cookie{Name: name, Value: formatValue(tc.Params[models.LocationCookie][name].Example)})
	}

	return req, nil
}

// formatValue renders a parameter value as it appears in a URL or header
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ",")
	case map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}
