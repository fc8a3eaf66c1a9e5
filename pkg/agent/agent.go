// Package agent runs each task through the progressive-disclosure pipeline:
// discover a skill from metadata alone, load its instructions, then generate
// and execute code with it.
package agent

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillet/pkg/codegen"
	"github.com/jingkaihe/skillet/pkg/llm"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/runner"
	"github.com/jingkaihe/skillet/pkg/selector"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/telemetry"
)

// Agent owns the collaborators of the pipeline and the current catalog.
type Agent struct {
	config   Config
	selector *selector.Selector
	loader   *skills.Loader
	loop     *codegen.Loop

	mu      sync.RWMutex
	catalog skills.Catalog
}

type options struct {
	executor codegen.Executor
	output   io.Writer
	loader   *skills.Loader
}

// Option configures an Agent.
type Option func(*options)

// WithExecutor replaces the script runner built from Config.Execution.
func WithExecutor(executor codegen.Executor) Option {
	return func(o *options) {
		o.executor = executor
	}
}

// WithOutput echoes generated code to w as it streams in.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithLoader replaces the default instruction loader.
func WithLoader(loader *skills.Loader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

// New wires an agent around oracle. The catalog starts empty; call Reload
// to scan the skills directory.
func New(oracle llm.Oracle, config Config, opts ...Option) *Agent {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.executor == nil {
		o.executor = runner.New(config.Execution)
	}
	if o.loader == nil {
		o.loader = skills.NewLoader()
	}

	loopOpts := []codegen.Option{codegen.WithLanguage(config.Language)}
	if o.output != nil {
		loopOpts = append(loopOpts, codegen.WithOutput(o.output))
	}

	return &Agent{
		config:   config,
		selector: selector.New(oracle),
		loader:   o.loader,
		loop:     codegen.NewLoop(oracle, o.executor, loopOpts...),
	}
}

// Reload rescans the skills directory and swaps in the new catalog.
func (a *Agent) Reload(ctx context.Context) skills.Catalog {
	catalog := skills.LoadAll(ctx, a.config.SkillsDir)
	catalog = skills.FilterByAllowlist(catalog, a.config.Skills.Allowed)

	a.mu.Lock()
	a.catalog = catalog
	a.mu.Unlock()

	logger.G(ctx).WithField("skills", catalog.Names()).Info("skill catalog loaded")
	return catalog
}

// Catalog returns the current catalog.
func (a *Agent) Catalog() skills.Catalog {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.catalog
}

// Handle runs task through the pipeline. It always returns a finished
// TaskState with a result.
func (a *Agent) Handle(ctx context.Context, task string) (state TaskState) {
	catalog := a.Catalog()
	state = TaskState{
		ID:      uuid.New().String(),
		Task:    task,
		Catalog: append([]skills.Metadata(nil), catalog.Skills...),
		Stage:   StageDiscover,
		Started: time.Now(),
	}

	ctx = logger.WithFields(ctx, logrus.Fields{"task_id": state.ID})
	ctx, span := telemetry.StartSpan(ctx, "agent.handle", attribute.String("task.id", state.ID))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.G(ctx).WithField("panic", r).Error("task pipeline panicked")
			state.Result = fmt.Sprintf("Task failed: %v", r)
			state.Stage = StageDone
		}
		state.Finished = time.Now()
		span.SetAttributes(attribute.String("skill.name", state.SelectedSkill()))
	}()

	logger.G(ctx).WithField("task", task).Info("handling task")
	for state.Stage != StageDone {
		state = a.step(ctx, state)
	}
	return state
}

// step runs the current stage and returns the state for the next one.
func (a *Agent) step(ctx context.Context, state TaskState) TaskState {
	log := logger.G(ctx).WithField("stage", state.Stage)

	switch state.Stage {
	case StageDiscover:
		selected := a.selector.Select(ctx, state.Task, state.Catalog)
		if selected == nil {
			state.Selected = nil
			state.Stage = StageExecute
			return state
		}
		state.Selected = &skills.Skill{Metadata: *selected}
		state.Stage = StageLoad
		return state

	case StageLoad:
		skill, err := a.loader.Hydrate(ctx, state.Selected.Metadata)
		if err != nil {
			log.WithError(err).WithField("skill", state.Selected.Name).Warn("failed to load skill, continuing without it")
			state.Selected = nil
		} else {
			state.Selected = skill
		}
		state.Stage = StageExecute
		return state

	case StageExecute:
		if state.Selected == nil {
			log.Info("no specialized skill matched")
			state.Result = GeneralReasoningResult
			state.Stage = StageDone
			return state
		}

		result := a.loop.Run(ctx, codegen.Request{
			Task:         state.Task,
			SkillName:    state.Selected.Name,
			Instructions: state.Selected.Instructions,
			SkillPath:    state.Selected.Path,
			MaxAttempts:  a.config.MaxAttempts,
		})
		state.Outcome = &result
		state.Result = result.Summary()
		state.Stage = StageDone
		return state
	}

	log.Error("unknown pipeline stage")
	state.Stage = StageDone
	return state
}
