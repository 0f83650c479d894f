package crm_client

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	headerTraceID       = "X-Trace-ID"
	headerUserAgent     = "User-Agent"
	contentTypeJSON     = "application/json"

	userAgent = "brokerage-backoffice/1.0"
	// maxErrorBody - сколько байт тела ошибки сохраняется в APIError.
	maxErrorBody = 4 << 10
)

// APIError - ответ удаленного API со статусом не 2xx.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap сопоставляет статус с доменной ошибкой, чтобы работал errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	case e.StatusCode >= http.StatusInternalServerError:
		return domain.ErrRemoteUnavailable
	}
	return nil
}

var (
	_ port.PipelineGatewayPort  = (*Client)(nil)
	_ port.DealGatewayPort      = (*Client)(nil)
	_ port.LeadGatewayPort      = (*Client)(nil)
	_ port.ListingGatewayPort   = (*Client)(nil)
	_ port.FavoritesGatewayPort = (*Client)(nil)
)

// Client - единственное место сервиса, где выполняется сетевой I/O к CRM API.
// Один метод - один HTTP-вызов, без повторов.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient - конструктор. token используется, если в контексте запроса нет собственного.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// credential берется в момент вызова: сначала токен пользователя из контекста, затем сервисный.
func (c *Client) credential(ctx context.Context) string {
	if token := contextkeys.CredentialFromContext(ctx); token != "" {
		return token
	}
	return c.token
}

// do выполняет запрос и декодирует JSON-ответ в out (если out не nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "CRMClient",
		"method":    method,
		"path":      path,
	})

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerAccept, contentTypeJSON)
	req.Header.Set(headerUserAgent, userAgent)
	if in != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set(headerTraceID, traceID)
	}
	if token := c.credential(ctx); token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Remote call aborted", port.Fields{"error": err.Error()})
			return err
		}
		logger.Error("Failed to perform request to remote API", err, nil)
		return fmt.Errorf("%w: %s %s: %w", domain.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	logger.Debug("Remote call finished", port.Fields{
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
		if resp.StatusCode == http.StatusUnauthorized {
			logger.Warn("Remote API rejected credentials", port.Fields{"status_code": resp.StatusCode})
		} else {
			logger.Error("Received non-2xx response from remote API", apiErr, port.Fields{"status_code": resp.StatusCode})
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		logger.Error("Failed to decode response from remote API", err, nil)
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

func idPath(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return fmt.Sprintf(format, escaped...)
}
