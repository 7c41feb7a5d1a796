// Package opa queries an Open Policy Agent data endpoint for action
// decisions.
package opa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/policy"
	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// DefaultURL is the conventional local OPA data endpoint for the
// switchboard authz document.
const DefaultURL = "http://localhost:8181/v1/data/switchboard/authz"

// DefaultTimeout bounds one policy query.
const DefaultTimeout = 5 * time.Second

// ErrMissingResult is returned when OPA answers without a result document,
// which means the policy bundle is not loaded.
var ErrMissingResult = errors.New("OPA response missing result")

const maxResponseBytes = 1 << 20

// Client evaluates requests against a remote OPA instance.
type Client struct {
	url        string
	httpClient *http.Client
}

var _ outbound.RemoteEvaluator = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a client for the given data endpoint, falling back to
// the local default when url is empty.
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryInput struct {
	Context  action.Context `json:"context"`
	Request  queryRequest   `json:"request"`
	Activity queryActivity  `json:"activity"`
	Policy   queryPolicy    `json:"policy"`
}

type queryRequest struct {
	ToolName   string         `json:"tool_name"`
	ToolAction string         `json:"tool_action"`
	Arguments  map[string]any `json:"arguments"`
}

type queryActivity struct {
	WindowCount int `json:"window_count"`
}

type queryPolicy struct {
	RateLimit int `json:"rate_limit"`
}

type queryResult struct {
	Allow            bool     `json:"allow"`
	RequiresApproval bool     `json:"requires_approval"`
	Reason           *string  `json:"reason"`
	PolicyIDs        []string `json:"policy_ids"`
	RiskLevel        *string  `json:"risk_level"`
}

// Evaluate posts the request as an OPA input document and maps the result
// document onto a decision. Absent result fields get the conventional
// defaults.
func (c *Client) Evaluate(ctx context.Context, req *action.Request) (policy.Decision, error) {
	payload := map[string]any{
		"input": queryInput{
			Context: req.Context,
			Request: queryRequest{
				ToolName:   req.ToolName,
				ToolAction: req.ToolAction,
				Arguments:  req.Arguments.Data,
			},
			Activity: queryActivity{},
			Policy:   queryPolicy{},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return policy.Decision{}, fmt.Errorf("encode policy query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return policy.Decision{}, fmt.Errorf("build policy query: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return policy.Decision{}, fmt.Errorf("query policy engine: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return policy.Decision{}, fmt.Errorf("read policy response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return policy.Decision{}, fmt.Errorf("OPA error %d: %s", resp.StatusCode, text)
	}

	var envelope struct {
		Result *queryResult `json:"result"`
	}
	if err := json.Unmarshal(text, &envelope); err != nil {
		return policy.Decision{}, fmt.Errorf("decode policy response: %w", err)
	}
	if envelope.Result == nil {
		return policy.Decision{}, ErrMissingResult
	}

	result := envelope.Result
	reason := "denied"
	if result.Allow {
		reason = "allowed"
	}
	if result.Reason != nil {
		reason = *result.Reason
	}
	risk := policy.RiskMedium
	if result.RiskLevel != nil {
		risk = *result.RiskLevel
	}
	ids := result.PolicyIDs
	if ids == nil {
		ids = []string{}
	}
	return policy.Decision{
		Allowed:          result.Allow,
		RequiresApproval: result.RequiresApproval,
		Reason:           reason,
		PolicyIDs:        ids,
		RiskLevel:        risk,
	}, nil
}
