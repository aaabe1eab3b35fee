package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/auth"
	"github.com/jusdesk/portal-sync/internal/config"
	"github.com/jusdesk/portal-sync/internal/observability"
)

// Error is the failure surface of the REST client. Stores convert it
// into an empty result plus a user-facing notice; it never propagates
// past the store boundary.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// envelope is the backend's uniform response shape.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Status  int             `json:"status,omitempty"`
}

// Dependencies bundles collaborators for the REST client.
type Dependencies struct {
	Credentials    *auth.CredentialStore
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	OnUnauthorized func()
}

// Client calls the portal backend. It attaches the bearer token to
// every request and reacts to 401 responses by clearing the credential
// and invoking the unauthorized hook exactly once per expiry episode:
// once the credential is gone, further 401s do not re-fire the hook.
type Client struct {
	baseURL   string
	loginPath string
	http      *http.Client
	creds     *auth.CredentialStore
	logger    *zap.Logger
	metrics   *observability.Metrics
	onUnauth  func()
}

// New builds the client. The HTTP timeout applies to every call and is
// routed through the same error path as a server failure.
func New(cfg config.APIConfig, deps Dependencies) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		loginPath: cfg.LoginPath,
		http:      &http.Client{Timeout: cfg.RequestTimeout()},
		creds:     deps.Credentials,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		onUnauth:  deps.OnUnauthorized,
	}
}

// Get issues a GET and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// Upload issues a multipart POST carrying one file plus form fields.
func (c *Client) Upload(ctx context.Context, path, field, fileName string, content io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, fileName)
	if err != nil {
		return &Error{Message: "failed to build upload", Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return &Error{Message: "failed to read upload content", Err: err}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return &Error{Message: "failed to build upload", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return &Error{Message: "failed to build upload", Err: err}
	}
	return c.do(ctx, http.MethodPost, path, &buf, writer.FormDataContentType(), out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(raw)
	}
	return c.do(ctx, method, path, reader, "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Message: "failed to build request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token, ok := c.creds.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.metrics.Inc(observability.MetricRESTRequests)
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Inc(observability.MetricRESTErrors)
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &Error{Message: "could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.Inc(observability.MetricRESTErrors)
		return &Error{Message: "failed to read response", Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized && path != c.loginPath {
		c.handleUnauthorized(ctx)
	}

	if resp.StatusCode >= 400 {
		c.metrics.Inc(observability.MetricRESTErrors)
		return &Error{StatusCode: resp.StatusCode, Message: serverMessage(raw, resp.StatusCode)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "unexpected response shape", Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "unexpected response shape", Err: err}
	}
	return nil
}

// handleUnauthorized clears the credential and fires the hook. The
// hook fires only when a credential was actually present, so repeated
// 401s inside the same expiry episode trigger a single redirect.
func (c *Client) handleUnauthorized(ctx context.Context) {
	if _, ok := c.creds.Get(); !ok {
		return
	}
	c.creds.Clear(ctx)
	c.logger.Info("session expired, credential cleared")
	if c.onUnauth != nil {
		c.onUnauth()
	}
}

func serverMessage(raw []byte, status int) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fmt.Sprintf("server returned status %d", status)
}
