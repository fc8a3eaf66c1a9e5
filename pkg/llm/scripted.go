package llm

import (
	"context"
	"sync"

	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// ScriptedOracle replays canned responses in order and records every
// prompt it receives. Once the script runs out the last response repeats.
// Tests use it in place of a provider.
type ScriptedOracle struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	// Respond, when set, computes the response from the prompt and takes
	// precedence over the script.
	Respond func(prompt string) (string, error)
}

// NewScriptedOracle creates an oracle that answers with responses in order.
func NewScriptedOracle(responses ...string) *ScriptedOracle {
	return &ScriptedOracle{responses: responses}
}

// NewFailingOracle creates an oracle whose every call fails with err.
func NewFailingOracle(err error) *ScriptedOracle {
	return &ScriptedOracle{err: err}
}

// Name implements Oracle.
func (o *ScriptedOracle) Name() string {
	return "scripted"
}

// Complete implements Oracle.
func (o *ScriptedOracle) Complete(_ context.Context, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	call := len(o.prompts)
	o.prompts = append(o.prompts, prompt)

	if o.Respond != nil {
		return o.Respond(prompt)
	}
	if o.err != nil {
		return "", o.err
	}
	if len(o.responses) == 0 {
		return "", nil
	}
	if call >= len(o.responses) {
		call = len(o.responses) - 1
	}
	return o.responses[call], nil
}

// Stream implements Oracle by delivering the whole response as one delta.
func (o *ScriptedOracle) Stream(ctx context.Context, prompt string, handler llmtypes.StreamHandler) (string, error) {
	text, err := o.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if handler != nil {
		handler.HandleTextDelta(text)
		handler.HandleDone()
	}
	return text, nil
}

// Calls returns how many times the oracle has been consulted.
func (o *ScriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.prompts)
}

// Prompts returns a copy of every prompt received so far.
func (o *ScriptedOracle) Prompts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.prompts...)
}
