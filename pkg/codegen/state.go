package codegen

// State names a step of the generate-and-run loop.
type State string

// Loop states. Each attempt walks AwaitGeneration through Evaluate; an
// attempt that fails early skips straight to the next attempt.
const (
	StateComposePrompt      State = "compose_prompt"
	StateAwaitGeneration    State = "await_generation"
	StateExtractCode        State = "extract_code"
	StatePrepareEnvironment State = "prepare_environment"
	StateRunning            State = "running"
	StateEvaluate           State = "evaluate"
	StateSucceeded          State = "succeeded"
	StateRetriesExhausted   State = "retries_exhausted"
)

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateRetriesExhausted
}

// Status is the outcome of a finished loop.
type Status string

const (
	StatusSucceeded        Status = "succeeded"
	StatusRetriesExhausted Status = "retries_exhausted"
)

// FailureKind classifies why an attempt did not succeed.
type FailureKind string

const (
	FailureNone FailureKind = ""
	// FailureGeneration means the response held no usable code block.
	FailureGeneration FailureKind = "generation"
	// FailureExecution means the script exited non-zero.
	FailureExecution FailureKind = "execution"
	// FailureTimeout means the script was killed for running too long.
	FailureTimeout FailureKind = "timeout"
	// FailureError covers oracle, filesystem and process start errors.
	FailureError FailureKind = "error"
)
