// Package httprequest provides the outbound HTTP action handler.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// Failure classes reported by RequestError.
const (
	FailureTimeout   = "timeout"
	FailureTransport = "transport"
	FailureHTTP      = "http"
)

// RequestError classifies an HTTP action failure. Retrying is the job
// queue's responsibility, never the handler's, so the class is purely
// diagnostic.
type RequestError struct {
	Class      string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Class == FailureHTTP {
		return fmt.Sprintf("http error: status %d", e.StatusCode)
	}

	return fmt.Sprintf("%s error: %v", e.Class, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Handler performs one HTTP request with templated URL, headers and body.
// The executor bounds every call with the node's timeout context.
type Handler struct {
	client *http.Client
}

func NewHandler(client *http.Client) *Handler {
	if client == nil {
		client = http.DefaultClient
	}

	return &Handler{client: client}
}

func (h *Handler) Kinds() []string {
	return []string{"http_request", "http"}
}

func (h *Handler) Validate(config map[string]any) error {
	rawURL, _ := config["url"].(string)
	if rawURL == "" {
		return errors.New("missing required field 'url'")
	}

	if method, ok := config["method"].(string); ok && method != "" {
		if !allowedMethods[strings.ToUpper(method)] {
			return fmt.Errorf("unsupported method %q", method)
		}
	}

	return nil
}

func (h *Handler) Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	rawURL, _ := config["url"].(string)

	resolvedURL := template.Resolve(rawURL, ectx)
	if _, err := url.ParseRequestURI(resolvedURL); err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", resolvedURL, err)
	}

	method := http.MethodGet
	if configured, ok := config["method"].(string); ok && configured != "" {
		method = strings.ToUpper(configured)
	}

	var body io.Reader

	if rawBody, ok := config["body"].(string); ok && rawBody != "" {
		body = strings.NewReader(template.Resolve(rawBody, ectx))
	}

	request, err := http.NewRequestWithContext(ctx, method, resolvedURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for key, value := range headers {
			if str, ok := value.(string); ok {
				request.Header.Set(key, template.Resolve(str, ectx))
			}
		}
	}

	if body != nil && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := h.client.Do(request)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer func() { _ = response.Body.Close() }()

	rawResponse, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &RequestError{Class: FailureTransport, Err: err}
	}

	if response.StatusCode >= http.StatusBadRequest {
		return nil, &RequestError{Class: FailureHTTP, StatusCode: response.StatusCode}
	}

	parsedBody := parseBody(rawResponse)

	responseHeaders := make(map[string]any, len(response.Header))
	for key := range response.Header {
		responseHeaders[key] = response.Header.Get(key)
	}

	output := map[string]any{
		"status_code": response.StatusCode,
		"body":        parsedBody,
		"headers":     responseHeaders,
		"success":     true,
	}

	if outputVariable, ok := config["output_variable"].(string); ok && outputVariable != "" {
		ectx.SetVariable(outputVariable, parsedBody)
	}

	return &models.NodeResult{Output: output}, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &RequestError{Class: FailureTimeout, Err: err}
	}

	return &RequestError{Class: FailureTransport, Err: err}
}

// parseBody keeps JSON responses structured and everything else as text.
func parseBody(raw []byte) any {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			return parsed
		}
	}

	return string(raw)
}
