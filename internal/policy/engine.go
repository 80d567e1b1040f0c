// Package policy evaluates the local consequence of a button press on the
// paired device.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

// Decision is the result of evaluating a button press.
type Decision string

const (
	DecisionContinue   Decision = "continue"
	DecisionEndSession Decision = "end_session"
)

// Engine is the OPA policy engine.
type Engine struct {
	query     rego.PreparedEvalQuery
	endButton string
}

// NewEngine creates a new policy engine with the given policy content.
// endButton is passed to the policy as input.end_button.
func NewEngine(ctx context.Context, policyContent, endButton string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.button_policy.decision"),
		rego.Module("button_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, endButton: endButton}, nil
}

// Evaluate decides what a button press means for the call.
func (e *Engine) Evaluate(ctx context.Context, msg domain.Message) (Decision, error) {
	input := map[string]interface{}{
		"button_number": msg.ButtonNumber,
		"button_name":   msg.ButtonName,
		"end_button":    e.endButton,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionContinue, nil
	}

	switch v := results[0].Expressions[0].Value.(type) {
	case string:
		if Decision(v) == DecisionEndSession {
			return DecisionEndSession, nil
		}
		return DecisionContinue, nil
	default:
		return "", fmt.Errorf("unexpected policy result type %T", v)
	}
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package button_policy

default decision = "continue"

# The demo page's end button closes the visual session.
decision = "end_session" {
	input.end_button != ""
	input.button_number == input.end_button
}
`
