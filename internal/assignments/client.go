package assignments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omarvelez/fleetdriver-app/internal/session"
	pkgerrors "github.com/omarvelez/fleetdriver-app/pkg/errors"
)

const (
	listPath     = "/api/drivers/temp-assignments"
	extendPath   = "/api/drivers/temp-assignments/extend"
	completePath = "/api/drivers/temp-assignments/complete"

	errorBodyReadLimit int64 = 4096
)

// APIClient talks to the fleet backend's temp-assignment endpoints.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	tokens     session.TokenSource
}

// Option configures optional client behavior.
type Option func(*APIClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *APIClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *APIClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewAPIClient builds a backend client for the given base URL.
func NewAPIClient(baseURL string, tokens session.TokenSource, opts ...Option) (*APIClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("backend base url is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	client := &APIClient{
		baseURL:    trimmed,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// List fetches the driver's current assignments. The backend scopes the
// result by the bearer token.
func (c *APIClient) List(ctx context.Context) ([]TempAssignment, error) {
	resp, err := c.do(ctx, http.MethodGet, listPath, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, "list assignments"); err != nil {
		return nil, err
	}

	var apiResp struct {
		Assignments []TempAssignment `json:"assignments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeServer, err, "decode assignments response")
	}
	return apiResp.Assignments, nil
}

// Extend submits an extension request. The server is authoritative on
// conflicts; its reason text is surfaced verbatim.
func (c *APIClient) Extend(ctx context.Context, req ExtensionRequest) error {
	resp, err := c.do(ctx, http.MethodPost, extendPath, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.checkStatus(resp, "extend assignment")
}

type completeRequest struct {
	AssignmentID    uuid.UUID `json:"assignment_id"`
	CompletionNotes string    `json:"completion_notes,omitempty"`
}

// Complete asks the backend to end the assignment early.
func (c *APIClient) Complete(ctx context.Context, assignmentID uuid.UUID, notes string) error {
	resp, err := c.do(ctx, http.MethodPost, completePath, completeRequest{
		AssignmentID:    assignmentID,
		CompletionNotes: strings.TrimSpace(notes),
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.checkStatus(resp, "complete assignment")
}

func (c *APIClient) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "backend unreachable")
	}
	return resp, nil
}

// checkStatus maps a non-2xx response to the error taxonomy, preserving the
// server-supplied message.
func (c *APIClient) checkStatus(resp *http.Response, action string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	message := serverMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if message == "" {
			message = "session rejected by backend"
		}
		return pkgerrors.New(pkgerrors.CodeUnauthorized, message)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		if message == "" {
			message = fmt.Sprintf("%s rejected", action)
		}
		return pkgerrors.New(pkgerrors.CodeConflict, message)
	default:
		if message == "" {
			message = fmt.Sprintf("%s failed with status %d", action, resp.StatusCode)
		}
		return pkgerrors.New(pkgerrors.CodeServer, message).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
}

func serverMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, errorBodyReadLimit))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
