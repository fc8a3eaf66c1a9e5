// Package codegen asks the oracle for a script that fulfils a task with a
// skill's instructions, runs it, and feeds failures back into the next
// prompt until a run succeeds or the attempt budget is spent.
package codegen

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillet/pkg/llm"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/prompts"
	"github.com/jingkaihe/skillet/pkg/runner"
	"github.com/jingkaihe/skillet/pkg/telemetry"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// DefaultMaxAttempts is the attempt budget when a request does not set one.
const DefaultMaxAttempts = 3

// Request describes one task to fulfil with a loaded skill.
type Request struct {
	Task         string
	SkillName    string
	Instructions string
	SkillPath    string
	MaxAttempts  int
}

// Executor is the part of runner.Runner the loop needs.
type Executor interface {
	WriteScript(code string) error
	Run(ctx context.Context, skillPath string) (runner.Execution, error)
}

// Loop drives generation and execution attempts.
type Loop struct {
	oracle   llm.Oracle
	executor Executor
	language string
	out      io.Writer
}

// Option configures a Loop.
type Option func(*Loop)

// WithLanguage sets the fence tag requested from the oracle, "python" by
// default.
func WithLanguage(language string) Option {
	return func(l *Loop) {
		if language != "" {
			l.language = language
		}
	}
}

// WithOutput echoes streamed generation to w.
func WithOutput(w io.Writer) Option {
	return func(l *Loop) {
		l.out = w
	}
}

// NewLoop creates a loop over oracle and executor.
func NewLoop(oracle llm.Oracle, executor Executor, opts ...Option) *Loop {
	l := &Loop{
		oracle:   oracle,
		executor: executor,
		language: "python",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type run struct {
	req         Request
	maxAttempts int
	basePrompt  string
	prompt      string
	attempt     Attempt
	response    string
	lastError   string
	output      string
	attempts    []Attempt
	span        trace.Span
	// spanCtx carries the current attempt's span to the oracle and runner.
	spanCtx context.Context
}

// Run executes the loop to a terminal state. It never fails: every problem
// is folded into the returned Result.
func (l *Loop) Run(ctx context.Context, req Request) Result {
	r := &run{req: req, maxAttempts: req.MaxAttempts}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}

	ctx, span := telemetry.StartSpan(ctx, "codegen.run",
		attribute.String("skill.name", req.SkillName),
		attribute.Int("codegen.max_attempts", r.maxAttempts),
	)
	defer span.End()

	state := StateComposePrompt
	for !state.Terminal() {
		state = l.step(ctx, r, state)
	}

	result := Result{LastError: r.lastError, Output: r.output, Attempts: r.attempts}
	if state == StateSucceeded {
		result.Status = StatusSucceeded
	} else {
		result.Status = StatusRetriesExhausted
		logger.G(ctx).WithField("attempts", len(r.attempts)).Error(result.Summary())
	}
	span.SetAttributes(attribute.String("codegen.status", string(result.Status)))
	return result
}

// step performs the work of state and returns the state that follows.
func (l *Loop) step(ctx context.Context, r *run, state State) State {
	log := logger.G(ctx).WithField("attempt", r.attempt.Number).WithField("max_attempts", r.maxAttempts)

	switch state {
	case StateComposePrompt:
		base, err := prompts.Generate(prompts.GenerateContext{
			SkillName:    r.req.SkillName,
			Instructions: r.req.Instructions,
			Task:         r.req.Task,
			Language:     l.languageName(),
		})
		if err != nil {
			r.lastError = err.Error()
			return StateRetriesExhausted
		}
		r.basePrompt = base
		r.prompt = base
		logger.G(ctx).WithField("skill", r.req.SkillName).Debugf("generation prompt:\n%s", base)
		return l.beginAttempt(ctx, r, 1)

	case StateAwaitGeneration:
		log.Info("calling oracle for code generation")
		response, err := l.oracle.Stream(r.spanCtx, r.prompt, l.streamHandler())
		if err != nil {
			return l.failWithError(ctx, r, err)
		}
		r.response = response
		return StateExtractCode

	case StateExtractCode:
		code, ok := ExtractCode(r.response, l.language)
		if !ok {
			msg := fmt.Sprintf("No valid %s code block found in LLM output.", l.languageName())
			log.Warn(msg)
			return l.retry(ctx, r, FailureGeneration, msg, prompts.RetryErrorContext{
				Error:       msg,
				MissingCode: true,
				Fence:       l.language,
			})
		}
		r.attempt.Code = code
		return StatePrepareEnvironment

	case StatePrepareEnvironment:
		if err := l.executor.WriteScript(r.attempt.Code); err != nil {
			return l.failWithError(ctx, r, err)
		}
		return StateRunning

	case StateRunning:
		execution, err := l.executor.Run(r.spanCtx, r.req.SkillPath)
		if err != nil {
			return l.failWithError(ctx, r, err)
		}
		r.attempt.Execution = &execution
		return StateEvaluate

	case StateEvaluate:
		execution := r.attempt.Execution
		if execution.Succeeded() {
			log.Info("script succeeded")
			r.output = execution.Stdout
			r.lastError = ""
			r.finishAttempt(FailureNone, "")
			return StateSucceeded
		}

		kind, msg := FailureExecution, execution.Stderr
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", execution.ExitCode)
		}
		if execution.TimedOut {
			kind = FailureTimeout
			note := fmt.Sprintf("Script timed out after %s and was terminated.", execution.Duration.Round(time.Millisecond))
			msg = strings.TrimSpace(strings.Join([]string{execution.Stderr, note}, "\n"))
		}
		log.WithField("exit_code", execution.ExitCode).Warnf("script failed:\n%s", msg)
		return l.retry(ctx, r, kind, msg, prompts.RetryFailedContext{
			Code:     r.attempt.Code,
			Error:    msg,
			Language: l.languageName(),
			Fence:    l.language,
		})
	}

	return StateRetriesExhausted
}

func (l *Loop) beginAttempt(ctx context.Context, r *run, n int) State {
	r.attempt = Attempt{Number: n}
	r.response = ""
	r.spanCtx, r.span = telemetry.StartSpan(ctx, "codegen.attempt", attribute.Int("codegen.attempt", n))
	return StateAwaitGeneration
}

func (r *run) finishAttempt(kind FailureKind, msg string) {
	r.attempt.Failure = kind
	r.attempt.Error = msg
	r.attempts = append(r.attempts, r.attempt)
	if r.span != nil {
		r.span.SetAttributes(attribute.String("codegen.failure", string(kind)))
		r.span.End()
		r.span = nil
	}
}

func (l *Loop) failWithError(ctx context.Context, r *run, err error) State {
	logger.G(ctx).WithError(err).WithField("attempt", r.attempt.Number).Error("attempt failed")
	if r.span != nil {
		r.span.RecordError(err)
	}
	return l.retry(ctx, r, FailureError, err.Error(), prompts.RetryErrorContext{Error: err.Error()})
}

// retry records the failed attempt and, while budget remains, rebuilds the
// prompt as the base prompt plus the rendered corrective section.
func (l *Loop) retry(ctx context.Context, r *run, kind FailureKind, msg string, section any) State {
	r.lastError = msg
	r.finishAttempt(kind, msg)

	if ctx.Err() != nil || r.attempt.Number >= r.maxAttempts {
		return StateRetriesExhausted
	}

	var (
		text string
		err  error
	)
	switch s := section.(type) {
	case prompts.RetryFailedContext:
		text, err = prompts.RetryFailed(s)
	case prompts.RetryErrorContext:
		text, err = prompts.RetryError(s)
	}
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to render retry prompt, reusing base prompt")
		r.prompt = r.basePrompt
	} else {
		r.prompt = r.basePrompt + "\n\n" + text
	}

	return l.beginAttempt(ctx, r, r.attempt.Number+1)
}

func (l *Loop) languageName() string {
	return prompts.LanguageName(l.language)
}

func (l *Loop) streamHandler() llmtypes.StreamHandler {
	if l.out == nil {
		return &llmtypes.StringCollector{}
	}
	return &llmtypes.ConsoleStreamHandler{Out: l.out}
}
