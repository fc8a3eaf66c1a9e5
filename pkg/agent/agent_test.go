package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/codegen"
	"github.com/jingkaihe/skillet/pkg/llm"
	"github.com/jingkaihe/skillet/pkg/runner"
)

type recordingExecutor struct {
	scripts    []string
	skillPaths []string
	execution  runner.Execution
}

func (e *recordingExecutor) WriteScript(code string) error {
	e.scripts = append(e.scripts, code)
	return nil
}

func (e *recordingExecutor) Run(_ context.Context, skillPath string) (runner.Execution, error) {
	e.skillPaths = append(e.skillPaths, skillPath)
	return e.execution, nil
}

func writeSkill(t *testing.T, root, name, description, body string) string {
	t.Helper()
	dir := filepath.Join(root, "skills", name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
	return dir
}

func isDiscovery(prompt string) bool {
	return strings.Contains(prompt, "skill discovery system")
}

func newTestAgent(t *testing.T, root string, oracle llm.Oracle, executor codegen.Executor) *Agent {
	t.Helper()
	config := DefaultConfig()
	config.SkillsDir = root
	a := New(oracle, config, WithExecutor(executor))
	a.Reload(context.Background())
	return a
}

func TestHandleGeneralReasoningWhenNoSkillMatches(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "excel", "spreadsheet skill", "Use openpyxl.")
	oracle := llm.NewScriptedOracle("NONE")
	executor := &recordingExecutor{}

	state := newTestAgent(t, root, oracle, executor).Handle(context.Background(), "summarize quarterly earnings")

	assert.Equal(t, GeneralReasoningResult, state.Result)
	assert.Nil(t, state.Selected)
	assert.Empty(t, state.SelectedSkill())
	assert.Nil(t, state.Outcome)
	assert.Equal(t, StageDone, state.Stage)
	assert.Equal(t, 1, oracle.Calls(), "only the discovery call is made")
	assert.Empty(t, executor.scripts)

	_, err := uuid.Parse(state.ID)
	assert.NoError(t, err)
}

func TestHandleRunsSelectedSkill(t *testing.T) {
	root := t.TempDir()
	skillDir := writeSkill(t, root, "pdf", "PDF toolkit", "Read [`forms.md`] first.")
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "forms.md"), []byte("Fill forms with pypdf."), 0o644))
	writeSkill(t, root, "docx", "Word toolkit", "Use python-docx.")

	oracle := &llm.ScriptedOracle{Respond: func(prompt string) (string, error) {
		if isDiscovery(prompt) {
			return "pdf", nil
		}
		return "```python\nprint('merged')\n```", nil
	}}
	executor := &recordingExecutor{execution: runner.Execution{Stdout: "merged\n"}}

	state := newTestAgent(t, root, oracle, executor).Handle(context.Background(), "merge the PDFs")

	require.NotNil(t, state.Selected)
	assert.Equal(t, "pdf", state.SelectedSkill())
	assert.Contains(t, state.Selected.Instructions, "=== ATTACHED DOC: forms.md ===\nFill forms with pypdf.")
	assert.Equal(t, "Success! Output:\nmerged\n", state.Result)
	assert.Equal(t, []string{"print('merged')"}, executor.scripts)
	assert.Equal(t, []string{skillDir}, executor.skillPaths)
	require.Len(t, state.Attempts(), 1)

	prompts := oracle.Prompts()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0], "Read [`forms.md`]", "discovery sees metadata only")
	assert.Contains(t, prompts[1], "Fill forms with pypdf.")
	assert.False(t, state.Finished.Before(state.Started))
}

func TestHandleDegradesWhenInstructionsVanish(t *testing.T) {
	root := t.TempDir()
	skillDir := writeSkill(t, root, "pptx", "slides", "Use python-pptx.")
	oracle := llm.NewScriptedOracle("pptx")
	executor := &recordingExecutor{}

	a := newTestAgent(t, root, oracle, executor)
	require.NoError(t, os.Remove(filepath.Join(skillDir, "SKILL.md")))

	state := a.Handle(context.Background(), "make slides")

	assert.Equal(t, GeneralReasoningResult, state.Result)
	assert.Nil(t, state.Selected)
	assert.Empty(t, executor.scripts)
}

func TestHandleEmptyCatalog(t *testing.T) {
	oracle := llm.NewScriptedOracle("pdf")

	state := newTestAgent(t, t.TempDir(), oracle, &recordingExecutor{}).Handle(context.Background(), "anything")

	assert.Equal(t, GeneralReasoningResult, state.Result)
	assert.Zero(t, oracle.Calls())
}

func TestHandleDiscoveryFailureFailsOpen(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "pdf", "PDF toolkit", "body")
	oracle := llm.NewFailingOracle(errors.New("network down"))

	state := newTestAgent(t, root, oracle, &recordingExecutor{}).Handle(context.Background(), "merge PDFs")

	assert.Equal(t, GeneralReasoningResult, state.Result)
}

func TestHandleRetriesExhausted(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "xlsx", "spreadsheets", "Use openpyxl.")
	oracle := &llm.ScriptedOracle{Respond: func(prompt string) (string, error) {
		if isDiscovery(prompt) {
			return "xlsx", nil
		}
		return "```python\nraise SystemExit(1)\n```", nil
	}}
	executor := &recordingExecutor{execution: runner.Execution{ExitCode: 1, Stderr: "SystemExit: 1"}}

	state := newTestAgent(t, root, oracle, executor).Handle(context.Background(), "build a sheet")

	assert.Equal(t, "Failed after 3 attempts. Last error:\nSystemExit: 1", state.Result)
	assert.Len(t, executor.scripts, 3)
	assert.Equal(t, 4, oracle.Calls())
}

func TestReloadAppliesAllowlist(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "pdf", "PDF", "body")
	writeSkill(t, root, "docx", "Word", "body")

	config := DefaultConfig()
	config.SkillsDir = root
	config.Skills.Allowed = []string{"docx"}
	a := New(llm.NewScriptedOracle(), config, WithExecutor(&recordingExecutor{}))

	assert.Zero(t, a.Catalog().Len())
	catalog := a.Reload(context.Background())
	assert.Equal(t, []string{"docx"}, catalog.Names())
	assert.Equal(t, []string{"docx"}, a.Catalog().Names())
}

func TestStepIsCopyOnWrite(t *testing.T) {
	a := New(llm.NewScriptedOracle("NONE"), DefaultConfig(), WithExecutor(&recordingExecutor{}))
	before := TaskState{Task: "t", Stage: StageExecute}

	after := a.step(context.Background(), before)

	assert.Equal(t, StageExecute, before.Stage)
	assert.Empty(t, before.Result)
	assert.Equal(t, StageDone, after.Stage)
	assert.Equal(t, GeneralReasoningResult, after.Result)
}

func TestGetConfigFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	config, err := GetConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)

	viper.Set("skills_dir", "/opt/skills")
	viper.Set("max_attempts", 5)
	viper.Set("language", "sh")
	viper.Set("skills", map[string]any{"allowed": []string{"pdf"}})
	viper.Set("execution", map[string]any{
		"interpreter": "/bin/sh",
		"timeout":     "30s",
	})

	config, err = GetConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, "/opt/skills", config.SkillsDir)
	assert.Equal(t, 5, config.MaxAttempts)
	assert.Equal(t, "sh", config.Language)
	assert.Equal(t, []string{"pdf"}, config.Skills.Allowed)
	assert.Equal(t, "/bin/sh", config.Execution.Interpreter)
	assert.Equal(t, "30s", config.Execution.Timeout.String())
}

func TestGetConfigFromViperTimeout(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	config, err := GetConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, runner.DefaultTimeout, config.Execution.Timeout)

	viper.Set("execution", map[string]any{"timeout": "0"})
	config, err = GetConfigFromViper()
	require.NoError(t, err)
	assert.Zero(t, config.Execution.Timeout)
	assert.Zero(t, runner.New(config.Execution).Config().Timeout)
}
