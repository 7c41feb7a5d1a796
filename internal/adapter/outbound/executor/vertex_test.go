package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/jlov7/Switchboard/internal/domain/action"
)

// fakeGenerate records the last call and returns a canned reply or error.
type fakeGenerate struct {
	model  string
	prompt string
	reply  string
	err    error
}

func (f *fakeGenerate) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestVertexAdapter_DryRunEchoes(t *testing.T) {
	t.Parallel()
	adapter, err := NewVertexAdapter(context.Background(), VertexConfig{})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	result, err := adapter.Execute(context.Background(), execRequest(t, nil))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success || result.Detail != "vertex dry-run" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Response["project"] != "vertex-demo" {
		t.Fatalf("unexpected project %v", result.Response["project"])
	}
	if result.Response["model"] != defaultVertexModel {
		t.Fatalf("unexpected model %v", result.Response["model"])
	}
}

func TestVertexAdapter_LiveRequiresProject(t *testing.T) {
	t.Parallel()
	_, err := NewVertexAdapter(context.Background(), VertexConfig{Mode: ModeLive, Location: "us-central1"})
	if !errors.Is(err, ErrVertexProject) {
		t.Fatalf("expected ErrVertexProject, got %v", err)
	}
}

func TestVertexAdapter_LiveGenerate(t *testing.T) {
	t.Parallel()
	fake := &fakeGenerate{reply: "summary drafted"}
	adapter := &VertexAdapter{mode: ModeLive, project: "proj-1", model: "gemini-test", models: fake}

	req := execRequest(t, func(r *action.Request) {
		r.Arguments.Data["input_text"] = "draft a summary"
	})
	result, err := adapter.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success || result.Detail != "vertex invoke success" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Response["output"] != "summary drafted" {
		t.Fatalf("unexpected output %v", result.Response["output"])
	}
	if fake.model != "gemini-test" || fake.prompt != "draft a summary" {
		t.Fatalf("unexpected call model=%q prompt=%q", fake.model, fake.prompt)
	}
}

func TestVertexAdapter_LiveFailureMapsToResult(t *testing.T) {
	t.Parallel()
	fake := &fakeGenerate{err: errors.New("quota exceeded")}
	adapter := &VertexAdapter{mode: ModeLive, project: "proj-1", models: fake}

	result, err := adapter.Execute(context.Background(), execRequest(t, nil))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Success {
		t.Fatal("expected generate failure to map to success=false")
	}
	if !strings.HasPrefix(result.Detail, "vertex invoke failed:") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}
