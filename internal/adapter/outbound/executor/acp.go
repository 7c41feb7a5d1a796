package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/routing"
	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// DefaultACPEndpoint is the partner gateway used when none is configured.
const DefaultACPEndpoint = "http://localhost:8082"

// acpMaxResponseBytes caps how much of a forward response is read.
const acpMaxResponseBytes = 1 << 20

// ACPAdapter forwards actions to a peer agent gateway over the
// agent-communication endpoint.
type ACPAdapter struct {
	endpoint   string
	httpClient *http.Client
}

// ACPOption configures an ACPAdapter.
type ACPOption func(*ACPAdapter)

// WithACPHTTPClient overrides the HTTP client.
func WithACPHTTPClient(client *http.Client) ACPOption {
	return func(a *ACPAdapter) { a.httpClient = client }
}

// NewACPAdapter builds an adapter for the given gateway endpoint, falling
// back to the default when endpoint is empty.
func NewACPAdapter(endpoint string, opts ...ACPOption) *ACPAdapter {
	if endpoint == "" {
		endpoint = DefaultACPEndpoint
	}
	a := &ACPAdapter{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements outbound.ToolAdapter.
func (a *ACPAdapter) Name() string { return routing.AdapterACP }

// acpForward is the payload posted to the gateway's forward endpoint.
type acpForward struct {
	RequestID string         `json:"request_id"`
	FromAgent string         `json:"from_agent"`
	Tool      string         `json:"tool"`
	Action    string         `json:"action"`
	Arguments map[string]any `json:"arguments"`
	Metadata  map[string]any `json:"metadata"`
}

// acpReply is the gateway's answer.
type acpReply struct {
	Accepted bool           `json:"accepted"`
	Detail   string         `json:"detail"`
	Data     map[string]any `json:"data"`
}

// Execute posts the action to the gateway and maps its accepted flag onto
// the adapter result.
func (a *ACPAdapter) Execute(ctx context.Context, request *action.Request) (*routing.AdapterResult, error) {
	payload := acpForward{
		RequestID: request.Context.RequestID.String(),
		FromAgent: request.Context.AgentID,
		Tool:      request.ToolName,
		Action:    request.ToolAction,
		Arguments: request.Arguments.Data,
		Metadata:  request.Context.Metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode forward payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/forward", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward action: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, acpMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read forward response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("ACP error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var reply acpReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("invalid response from ACP endpoint: %w", err)
	}
	if reply.Data == nil {
		reply.Data = map[string]any{}
	}

	return &routing.AdapterResult{
		Success:  reply.Accepted,
		Detail:   reply.Detail,
		Response: reply.Data,
	}, nil
}

var _ outbound.ToolAdapter = (*ACPAdapter)(nil)
