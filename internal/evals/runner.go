// Package evals runs YAML task suites against a live Switchboard API and
// summarizes how each routed action fared: executed, blocked or held for
// approval. Optional per-task expect expressions turn a suite into a
// pass/fail regression harness for policy changes.
package evals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/jlov7/Switchboard/pkg/switchboard"
)

// TaskResult is the observed outcome of one routed task.
type TaskResult struct {
	Name             string         `json:"name"`
	LatencyMS        float64        `json:"latency_ms"`
	StatusCode       int            `json:"status_code"`
	Payload          map[string]any `json:"payload"`
	Executed         bool           `json:"executed,omitempty"`
	Blocked          bool           `json:"blocked,omitempty"`
	RequiresApproval bool           `json:"requires_approval,omitempty"`
	Expect           string         `json:"expect,omitempty"`
	Passed           *bool          `json:"passed,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// Summary aggregates a suite run. Passed and Failed only count tasks that
// carried an expect expression.
type Summary struct {
	Total            int          `json:"total"`
	Executed         int          `json:"executed"`
	Blocked          int          `json:"blocked"`
	RequiresApproval int          `json:"requires_approval"`
	Passed           int          `json:"passed,omitempty"`
	Failed           int          `json:"failed,omitempty"`
	Results          []TaskResult `json:"results"`
}

// Runner routes suite tasks through a Switchboard client and checks their
// expectations.
type Runner struct {
	client  *switchboard.Client
	expects *ExpectEvaluator
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a suite runner around an API client.
func NewRunner(client *switchboard.Client, opts ...RunnerOption) (*Runner, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	expects, err := NewExpectEvaluator()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		client:  client,
		expects: expects,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type compiledTask struct {
	task Task
	prg  cel.Program
}

// prepare validates and compiles every expect expression before any request
// is sent, so an authoring mistake fails the run instead of half of it.
func (r *Runner) prepare(tasks []Task) ([]compiledTask, error) {
	compiled := make([]compiledTask, 0, len(tasks))
	for _, task := range tasks {
		ct := compiledTask{task: task}
		if task.Expect != "" {
			if err := r.expects.ValidateExpression(task.Expect); err != nil {
				return nil, fmt.Errorf("task %q: %w", task.Name, err)
			}
			prg, err := r.expects.Compile(task.Expect)
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", task.Name, err)
			}
			ct.prg = prg
		}
		compiled = append(compiled, ct)
	}
	return compiled, nil
}

// Run routes every task in order and returns the aggregated summary. A
// transport failure aborts the run; expectation failures are recorded and
// the run continues.
func (r *Runner) Run(ctx context.Context, tasks []Task) (*Summary, error) {
	compiled, err := r.prepare(tasks)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Total:   len(tasks),
		Results: make([]TaskResult, 0, len(tasks)),
	}
	for _, ct := range compiled {
		result, err := r.runTask(ctx, ct)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", ct.task.Name, err)
		}

		switch {
		case result.Executed:
			summary.Executed++
		case result.Blocked:
			summary.Blocked++
		case result.RequiresApproval:
			summary.RequiresApproval++
		}
		if result.Passed != nil {
			if *result.Passed {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
		summary.Results = append(summary.Results, *result)
	}

	r.logger.Info("suite completed",
		"total", summary.Total,
		"executed", summary.Executed,
		"blocked", summary.Blocked,
		"requires_approval", summary.RequiresApproval,
		"failed", summary.Failed)
	return summary, nil
}

func (r *Runner) runTask(ctx context.Context, ct compiledTask) (*TaskResult, error) {
	req, err := ct.task.ActionRequest()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	routed, err := r.client.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	result := &TaskResult{
		Name:       ct.task.Name,
		LatencyMS:  float64(latency.Nanoseconds()) / 1e6,
		StatusCode: routed.StatusCode,
		Payload:    resultPayload(routed),
	}
	switch routed.StatusCode {
	case http.StatusAccepted:
		result.RequiresApproval = true
	case http.StatusForbidden:
		result.Blocked = true
	default:
		result.Executed = true
	}

	if ct.prg != nil {
		result.Expect = ct.task.Expect
		passed, evalErr := r.expects.Evaluate(ct.prg, result.StatusCode, string(routed.Outcome), result.Payload)
		if evalErr != nil {
			passed = false
			result.Error = evalErr.Error()
		}
		result.Passed = &passed
	}

	r.logger.Debug("task routed",
		"task", ct.task.Name,
		"status_code", result.StatusCode,
		"latency_ms", result.LatencyMS)
	return result, nil
}

// resultPayload re-derives the response body map from the decoded result so
// expect expressions and the results file see what the server answered.
func resultPayload(result *switchboard.RouteResult) map[string]any {
	raw, err := json.Marshal(result)
	if err != nil {
		return map[string]any{}
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return map[string]any{}
	}
	return payload
}

// WriteSummary writes the summary as indented JSON.
func WriteSummary(path string, summary *Summary) error {
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write results to %s: %w", path, err)
	}
	return nil
}
