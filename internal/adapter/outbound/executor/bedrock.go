package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/routing"
	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// Adapter modes. Dry-run echoes the request without touching the vendor
// API; live performs the real call.
const (
	ModeDryRun = "dry-run"
	ModeLive   = "live"
)

// ErrBedrockRegion reports a live Bedrock adapter configured without an
// AWS region.
var ErrBedrockRegion = errors.New("bedrock live mode requires an AWS region")

// defaultBedrockModelID is echoed in dry-run mode when the caller names no
// model.
const defaultBedrockModelID = "bedrock-demo-model"

// converseAPI is the slice of the Bedrock runtime client the adapter uses.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockConfig carries the Bedrock adapter settings resolved at startup.
type BedrockConfig struct {
	// Mode selects dry-run or live operation. Empty means dry-run.
	Mode string
	// Region is the AWS region for live calls.
	Region string
	// ModelID is the model used when the request names none.
	ModelID string
}

// BedrockAdapter invokes Amazon Bedrock models through the Converse API.
// In dry-run mode it echoes the request so demos and tests run without AWS
// credentials.
type BedrockAdapter struct {
	mode    string
	modelID string
	client  converseAPI
}

// NewBedrockAdapter builds a Bedrock adapter. Live mode loads the AWS
// configuration chain and fails without a region.
func NewBedrockAdapter(ctx context.Context, cfg BedrockConfig) (*BedrockAdapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeDryRun
	}

	a := &BedrockAdapter{mode: mode, modelID: cfg.ModelID}
	if mode != ModeLive {
		return a, nil
	}

	if cfg.Region == "" {
		return nil, ErrBedrockRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	a.client = bedrockruntime.NewFromConfig(awsCfg)
	return a, nil
}

// Name implements outbound.ToolAdapter.
func (a *BedrockAdapter) Name() string { return routing.AdapterBedrock }

// Execute echoes the request in dry-run mode and calls Converse in live
// mode. Invoke failures map to success=false rather than errors.
func (a *BedrockAdapter) Execute(ctx context.Context, request *action.Request) (*routing.AdapterResult, error) {
	if a.mode != ModeLive || a.client == nil {
		return &routing.AdapterResult{
			Success: true,
			Detail:  "bedrock dry-run",
			Response: map[string]any{
				"echo":     request.Arguments.Data,
				"model_id": a.resolveModel(request),
				"mode":     a.mode,
			},
		}, nil
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(a.resolveModel(request)),
		Messages: []brtypes.Message{{
			Role: brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: promptText(request)},
			},
		}},
	}

	out, err := a.client.Converse(ctx, input)
	if err != nil {
		return &routing.AdapterResult{
			Success:  false,
			Detail:   fmt.Sprintf("bedrock invoke failed: %v", err),
			Response: map[string]any{},
		}, nil
	}

	return &routing.AdapterResult{
		Success: true,
		Detail:  "bedrock invoke success",
		Response: map[string]any{
			"output":      converseText(out),
			"stop_reason": string(out.StopReason),
			"model_id":    a.resolveModel(request),
		},
	}, nil
}

// resolveModel prefers the request's model_id argument over the configured
// default.
func (a *BedrockAdapter) resolveModel(request *action.Request) string {
	if id, ok := request.Arguments.Data["model_id"].(string); ok && id != "" {
		return id
	}
	if a.modelID != "" {
		return a.modelID
	}
	return defaultBedrockModelID
}

// promptText takes the input_text argument, falling back to the whole
// argument object encoded as JSON.
func promptText(request *action.Request) string {
	if text, ok := request.Arguments.Data["input_text"].(string); ok && text != "" {
		return text
	}
	raw, err := json.Marshal(request.Arguments.Data)
	if err != nil {
		return ""
	}
	return string(raw)
}

// converseText flattens the text blocks of a Converse response.
func converseText(out *bedrockruntime.ConverseOutput) string {
	message, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var parts []string
	for _, block := range message.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			parts = append(parts, text.Value)
		}
	}
	return strings.Join(parts, "\n")
}

var _ outbound.ToolAdapter = (*BedrockAdapter)(nil)
