package evals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// maxExpressionLength is the maximum allowed length for expect expressions.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit for a single expectation.
const maxCostBudget = 100_000

// maxNestingDepth is the maximum allowed parenthesis/bracket nesting depth.
const maxNestingDepth = 50

// expectTimeout is the maximum time allowed for a single expectation check.
const expectTimeout = 5 * time.Second

// interruptCheckFreq is how often (in comprehension iterations) context
// cancellation is checked.
const interruptCheckFreq = 100

// ExpectEvaluator compiles and evaluates per-task expect expressions. The
// expressions see three variables: status (the HTTP status code), outcome
// (the result discriminator, e.g. "executed") and payload (the decoded
// response body).
type ExpectEvaluator struct {
	env *cel.Env
}

// NewExpectEnvironment creates a CEL environment exposing the task-result
// variables checked by eval suites.
func NewExpectEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		cel.Variable("status", cel.IntType),
		cel.Variable("outcome", cel.StringType),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// NewExpectEvaluator creates an evaluator with the task-result environment.
func NewExpectEvaluator() (*ExpectEvaluator, error) {
	env, err := NewExpectEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create expect environment: %w", err)
	}
	return &ExpectEvaluator{env: env}, nil
}

// Compile parses and type-checks an expect expression, returning a compiled
// program.
func (e *ExpectEvaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}

	return prg, nil
}

// validateNesting checks that the expression does not exceed the maximum
// allowed nesting depth for parentheses, brackets, and braces.
func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// ValidateExpression checks that an expect expression is syntactically valid
// and within the safety limits (expression length, nesting depth).
func (e *ExpectEvaluator) ValidateExpression(expr string) error {
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}

	if expr == "" {
		return errors.New("expression is empty")
	}

	if err := validateNesting(expr); err != nil {
		return err
	}

	if _, err := e.Compile(expr); err != nil {
		return fmt.Errorf("invalid expect expression: %w", err)
	}

	return nil
}

// Evaluate runs a compiled expect program against one task result. Returns
// true if the expression evaluates to true, false otherwise. ContextEval runs
// under a timeout so a pathological expression cannot hang the suite.
func (e *ExpectEvaluator) Evaluate(prg cel.Program, status int, outcome string, payload map[string]any) (bool, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	activation := map[string]any{
		"status":  int64(status),
		"outcome": outcome,
		"payload": payload,
	}

	ctx, cancel := context.WithTimeout(context.Background(), expectTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}

	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return a boolean, got %T", result.Value())
	}

	return boolResult, nil
}
