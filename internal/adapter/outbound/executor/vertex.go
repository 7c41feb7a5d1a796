package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/routing"
	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// ErrVertexProject reports a live Vertex adapter configured without a
// project or location.
var ErrVertexProject = errors.New("vertex live mode requires a project and location")

// defaultVertexModel is echoed in dry-run mode when the caller names no
// model.
const defaultVertexModel = "vertex-demo-model"

// generateAPI is the slice of the genai models client the adapter uses.
type generateAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// VertexConfig carries the Vertex adapter settings resolved at startup.
type VertexConfig struct {
	// Mode selects dry-run or live operation. Empty means dry-run.
	Mode string
	// Project is the Google Cloud project for live calls.
	Project string
	// Location is the Vertex region for live calls.
	Location string
	// Model is the model used when the request names none.
	Model string
}

// VertexAdapter invokes Vertex AI models through the GenAI SDK. In dry-run
// mode it echoes the request so demos and tests run without credentials.
type VertexAdapter struct {
	mode     string
	project  string
	location string
	model    string
	models   generateAPI
}

// NewVertexAdapter builds a Vertex adapter. Live mode constructs a GenAI
// client against the Vertex backend and fails without project and location.
func NewVertexAdapter(ctx context.Context, cfg VertexConfig) (*VertexAdapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeDryRun
	}

	a := &VertexAdapter{
		mode:     mode,
		project:  cfg.Project,
		location: cfg.Location,
		model:    cfg.Model,
	}
	if mode != ModeLive {
		return a, nil
	}

	if cfg.Project == "" || cfg.Location == "" {
		return nil, ErrVertexProject
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  cfg.Project,
		Location: cfg.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("create Vertex client: %w", err)
	}
	a.models = client.Models
	return a, nil
}

// Name implements outbound.ToolAdapter.
func (a *VertexAdapter) Name() string { return routing.AdapterVertex }

// Execute echoes the request in dry-run mode and generates content in live
// mode. Generation failures map to success=false rather than errors.
func (a *VertexAdapter) Execute(ctx context.Context, request *action.Request) (*routing.AdapterResult, error) {
	if a.mode != ModeLive || a.models == nil {
		project := a.project
		if project == "" {
			project = "vertex-demo"
		}
		return &routing.AdapterResult{
			Success: true,
			Detail:  "vertex dry-run",
			Response: map[string]any{
				"echo":    request.Arguments.Data,
				"project": project,
				"model":   a.resolveModel(request),
				"mode":    a.mode,
			},
		}, nil
	}

	model := a.resolveModel(request)
	resp, err := a.models.GenerateContent(ctx, model, genai.Text(promptText(request)), nil)
	if err != nil {
		return &routing.AdapterResult{
			Success:  false,
			Detail:   fmt.Sprintf("vertex invoke failed: %v", err),
			Response: map[string]any{},
		}, nil
	}

	return &routing.AdapterResult{
		Success: true,
		Detail:  "vertex invoke success",
		Response: map[string]any{
			"output":  resp.Text(),
			"model":   model,
			"project": a.project,
		},
	}, nil
}

// resolveModel prefers the request's model argument over the configured
// default.
func (a *VertexAdapter) resolveModel(request *action.Request) string {
	if id, ok := request.Arguments.Data["model"].(string); ok && id != "" {
		return id
	}
	if a.model != "" {
		return a.model
	}
	return defaultVertexModel
}

var _ outbound.ToolAdapter = (*VertexAdapter)(nil)
