package switchboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client is the switchboard API client.
type Client struct {
	baseURL     string
	reviewerKey string
	timeout     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a switchboard client. It reads configuration from
// SWITCHBOARD_* environment variables by default; options override them.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     envOrDefault("SWITCHBOARD_API_URL", "http://localhost:8000"),
		reviewerKey: os.Getenv("SWITCHBOARD_REVIEWER_KEY"),
		timeout:     parseDurationEnv("SWITCHBOARD_CLIENT_TIMEOUT", 10*time.Second),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// routeEnvelope wraps an action request for /route and /policy/check.
type routeEnvelope struct {
	Request ActionRequest `json:"request"`
}

// verifyEnvelope is the body of /audit/verify.
type verifyEnvelope struct {
	Record      json.RawMessage `json:"record"`
	VerifyRekor bool            `json:"verify_rekor"`
}

// Route submits an action request for policy evaluation and dispatch. All
// three routing outcomes decode into RouteResult: executed (200), pending
// approval (202) and blocked (403). Other statuses return an *APIError.
func (c *Client) Route(ctx context.Context, req ActionRequest) (*RouteResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/route", routeEnvelope{Request: req})
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK, http.StatusAccepted, http.StatusForbidden:
		var result RouteResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route result: %w", err)
		}
		result.StatusCode = status
		return &result, nil
	default:
		return nil, apiError(status, body)
	}
}

// Approve resolves a held request with a reviewer decision. Unknown ids
// answer ErrApprovalNotFound; double resolution ErrApprovalAlreadyResolved.
func (c *Client) Approve(ctx context.Context, decision ApprovalDecision) (*ApprovalResult, error) {
	var result ApprovalResult
	if err := c.doJSON(ctx, http.MethodPost, "/approve", decision, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PolicyCheck evaluates a request without auditing or dispatching it.
func (c *Client) PolicyCheck(ctx context.Context, req ActionRequest) (*PolicyDecision, error) {
	var result struct {
		Policy PolicyDecision `json:"policy"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/policy/check", routeEnvelope{Request: req}, &result); err != nil {
		return nil, err
	}
	return &result.Policy, nil
}

// PendingApprovals lists every request awaiting human review, oldest first.
func (c *Client) PendingApprovals(ctx context.Context) ([]PendingApproval, error) {
	var result []PendingApproval
	if err := c.doJSON(ctx, http.MethodGet, "/approvals/pending", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyAudit checks an audit record's signature and, when verifyRekor is
// set, its transparency-log inclusion.
func (c *Client) VerifyAudit(ctx context.Context, record json.RawMessage, verifyRekor bool) (*VerifyResult, error) {
	var result VerifyResult
	if err := c.doJSON(ctx, http.MethodPost, "/audit/verify", verifyEnvelope{Record: record, VerifyRekor: verifyRekor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health probes the API's liveness endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var result Health
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doJSON performs a request and unmarshals 2xx responses into result.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	status, respBody, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return apiError(status, respBody)
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// do performs an HTTP request and returns the status code and body.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	url := strings.TrimRight(c.baseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.reviewerKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.reviewerKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return httpResp.StatusCode, respBody, nil
}

// apiError extracts the server's error message from a failure body.
func apiError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	return &APIError{StatusCode: status, Message: message}
}

// Helper functions for env var parsing.

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	// Try parsing as seconds (integer).
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	// Try parsing as duration string.
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}
