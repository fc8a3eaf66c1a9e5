package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/history"
	"github.com/jingkaihe/skillet/pkg/llm"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/skills"
)

// newAgent builds an agent from the current configuration and loads the
// skill catalog.
func newAgent(ctx context.Context) (*agent.Agent, error) {
	llmConfig, err := llm.GetConfigFromViper()
	if err != nil {
		return nil, err
	}
	oracle, err := llm.NewOracle(llmConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM client")
	}

	agentConfig, err := agent.GetConfigFromViper()
	if err != nil {
		return nil, err
	}

	var opts []agent.Option
	if viper.GetBool("stream") {
		opts = append(opts, agent.WithOutput(os.Stdout))
	}

	a := agent.New(oracle, agentConfig, opts...)
	catalog := a.Reload(ctx)
	reportSkipped(ctx, catalog)

	logger.G(ctx).WithField("oracle", oracle.Name()).Debug("agent ready")
	return a, nil
}

func reportSkipped(ctx context.Context, catalog skills.Catalog) {
	if catalog.Skipped == nil {
		return
	}
	for _, err := range catalog.Skipped.Errors {
		logger.G(ctx).WithError(err).Warn("skill skipped")
	}
}

func viperSkillsDir() string {
	if dir := viper.GetString("skills_dir"); dir != "" {
		return dir
	}
	return "."
}

// session pairs an agent with the task history it records into.
type session struct {
	agent   *agent.Agent
	history *history.Store
}

// newSession builds the agent and, when keepHistory is set, an in-memory
// log of the tasks it handles. Tasks still run if the log cannot be created.
func newSession(ctx context.Context, keepHistory bool) (*session, error) {
	a, err := newAgent(ctx)
	if err != nil {
		return nil, err
	}

	s := &session{agent: a}
	if keepHistory {
		store, err := history.NewStore(ctx)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("task history disabled")
		} else {
			s.history = store
		}
	}
	return s, nil
}

func (s *session) handle(ctx context.Context, task string) agent.TaskState {
	state := s.agent.Handle(ctx, task)
	if s.history != nil {
		if err := s.history.Save(ctx, history.FromTaskState(state)); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to record task")
		}
	}
	return state
}

func (s *session) Close() {
	if s.history != nil {
		s.history.Close()
	}
}
