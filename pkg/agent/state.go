package agent

import (
	"time"

	"github.com/jingkaihe/skillet/pkg/codegen"
	"github.com/jingkaihe/skillet/pkg/skills"
)

// Stage names a step of the discover, load, execute pipeline.
type Stage string

const (
	StageDiscover Stage = "discover"
	StageLoad     Stage = "load"
	StageExecute  Stage = "execute"
	StageDone     Stage = "done"
)

// GeneralReasoningResult is the result when no skill applies to a task.
const GeneralReasoningResult = "Using general reasoning (no specialized skill matched)."

// TaskState is the working record of one task. Stages receive a copy and
// return an updated copy.
type TaskState struct {
	ID       string            `json:"id"`
	Task     string            `json:"task"`
	Catalog  []skills.Metadata `json:"-"`
	Selected *skills.Skill     `json:"selected_skill,omitempty"`
	Result   string            `json:"result"`
	Outcome  *codegen.Result   `json:"outcome,omitempty"`
	Stage    Stage             `json:"stage"`
	Started  time.Time         `json:"started"`
	Finished time.Time         `json:"finished"`
}

// SelectedSkill returns the selected skill's name, or "" when none was
// selected.
func (s TaskState) SelectedSkill() string {
	if s.Selected == nil {
		return ""
	}
	return s.Selected.Name
}

// Attempts returns the generation attempts made for the task.
func (s TaskState) Attempts() []codegen.Attempt {
	if s.Outcome == nil {
		return nil
	}
	return s.Outcome.Attempts
}
