package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive task loop",
	Long: `Read tasks one line at a time and run each through the skill pipeline.

Type exit, quit or q to leave. The tasks of the session are kept in memory:
"history" lists them and "show <id>" prints one with its attempts.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sess, err := newSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close()

		watch, _ := cmd.Flags().GetBool("watch")
		if watch {
			if err := startWatch(ctx, sess.agent); err != nil {
				presenter.Warning("skill watching disabled: " + err.Error())
			}
		}

		return chatLoop(ctx, sess)
	},
}

func init() {
	chatCmd.Flags().Bool("watch", false, "Reload the skill catalog when the skills directory changes")
}

func chatLoop(ctx context.Context, sess *session) error {
	presenter.Section("skillet")
	presenter.Info("Loaded skills: " + formatNames(sess.agent.Catalog().Names()))
	presenter.Info("Type 'history' to list this session's tasks, 'show <id>' for details, 'exit' to leave.")
	presenter.Separator()

	for {
		input, err := promptContext(ctx, "> ")
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to read input")
		}

		if input == "" {
			continue
		}
		if isExitCommand(input) {
			presenter.Info("Goodbye!")
			return nil
		}

		handled, err := sessionCommand(ctx, os.Stdout, sess.history, input)
		if err != nil {
			presenter.Error(err, "")
			continue
		}
		if handled {
			continue
		}

		state := sess.handle(ctx, input)
		presenter.Info("task " + shortID(state.ID))
		presentState(state)
	}
}

// promptContext is presenter.Prompt that gives up when ctx is done. The
// pending read is abandoned.
func promptContext(ctx context.Context, question string) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := presenter.Prompt(question)
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

func formatNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

// startWatch reloads the agent's catalog in the background whenever the
// skills root changes.
func startWatch(ctx context.Context, a *agent.Agent) error {
	root := skills.ResolveRoot(viperSkillsDir())
	w, err := newSkillWatcher(root)
	if err != nil {
		return err
	}

	changed := make(chan struct{})
	go w.Run(ctx, changed)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				catalog := a.Reload(ctx)
				reportSkipped(ctx, catalog)
				logger.G(ctx).WithField("root", root).Debug("skills directory changed")
			}
		}
	}()

	logger.G(ctx).WithField("root", root).Info("watching skills directory")
	return nil
}
