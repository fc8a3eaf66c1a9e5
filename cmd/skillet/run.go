package main

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run a single task",
	Long: `Run a single task through the skill pipeline and print the response.

The task is taken from the arguments. When stdin is piped its content is
appended, so "cat data.csv | skillet run summarise this" works.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		task, err := readTask(args, os.Stdin)
		if err != nil {
			return err
		}

		sess, err := newSession(ctx, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		state := sess.handle(ctx, task)
		presentState(state)
		return nil
	},
}

// readTask joins args with piped stdin content. stdin is ignored when it is
// a terminal.
func readTask(args []string, stdin *os.File) (string, error) {
	task := strings.TrimSpace(strings.Join(args, " "))

	if stdin != nil {
		stat, err := stdin.Stat()
		if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			piped, err := io.ReadAll(stdin)
			if err != nil {
				return "", errors.Wrap(err, "failed to read from stdin")
			}
			if content := strings.TrimSpace(string(piped)); content != "" {
				if task == "" {
					task = content
				} else {
					task = task + "\n" + content
				}
			}
		}
	}

	if task == "" {
		return "", errors.New("no task provided, pass it as arguments or through stdin")
	}
	return task, nil
}

func presentState(state agent.TaskState) {
	title := "skillet"
	if name := state.SelectedSkill(); name != "" {
		title = "skillet · " + name
	}
	ok := state.Outcome == nil || state.Outcome.Succeeded()
	presenter.Response(title, state.Result, ok)
}
