// Package http_request performs one HTTP exchange and returns the
// response as a structured value for downstream steps.
package http_request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// client is shared across invocations. Per-attempt deadlines come from
// the step context, not the client.
var client = &http.Client{}

// Invoke sends the request described by the arguments and returns a map
// with status_code, body and headers. A JSON response body is also
// decoded under the 'json' key. Non-2xx statuses are returned, not
// failed; recipes decide via conditions what counts as an error.
func Invoke(ctx context.Context, call *registry.Call) (any, error) {
	url, err := call.String("url")
	if err != nil {
		return nil, err
	}
	method, err := call.StringOr("method", http.MethodGet)
	if err != nil {
		return nil, err
	}
	body, err := call.StringOr("body", "")
	if err != nil {
		return nil, err
	}
	headers, err := call.Object("headers")
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx).With("capability", "http_request", "step", call.Step)
	logger.Info("Making HTTP request.", "method", method, "url", url)

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for name, value := range headers {
		req.Header.Set(name, fmt.Sprintf("%v", value))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	logger.Info("Received HTTP response.", "status", resp.Status)

	respHeaders := make(map[string]any, len(resp.Header))
	for name := range resp.Header {
		respHeaders[name] = resp.Header.Get(name)
	}

	result := map[string]any{
		"status_code": int64(resp.StatusCode),
		"body":        string(respBody),
		"headers":     respHeaders,
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var decoded any
		if err := json.Unmarshal(respBody, &decoded); err == nil {
			result["json"] = decoded
		}
	}
	return result, nil
}

// Register registers the capability with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("http_request", registry.Func(Invoke))
}
