package codegen

import (
	"fmt"

	"github.com/jingkaihe/skillet/pkg/runner"
)

// Attempt records one pass through the loop.
type Attempt struct {
	Number    int               `json:"number"`
	Code      string            `json:"code,omitempty"`
	Execution *runner.Execution `json:"execution,omitempty"`
	Failure   FailureKind       `json:"failure,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Result is the outcome of Loop.Run.
type Result struct {
	Status    Status    `json:"status"`
	Output    string    `json:"output,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Attempts  []Attempt `json:"attempts"`
}

// Succeeded reports whether a script exited 0.
func (r Result) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Summary renders the result text shown to the user.
func (r Result) Summary() string {
	if r.Succeeded() {
		return "Success! Output:\n" + r.Output
	}
	return fmt.Sprintf("Failed after %d attempts. Last error:\n%s", len(r.Attempts), r.LastError)
}
