// Package history keeps a queryable log of the tasks finished during one
// session.
package history

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/codegen"
)

// StatusGeneral marks a task answered without a skill.
const StatusGeneral = "general"

// Record is a stored task.
type Record struct {
	ID         string            `json:"id"`
	Task       string            `json:"task"`
	Skill      string            `json:"skill,omitempty"`
	Status     string            `json:"status"`
	Result     string            `json:"result"`
	Attempts   []codegen.Attempt `json:"attempts,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Duration is the wall time the task took.
func (r Record) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FromTaskState converts a finished task into a record.
func FromTaskState(state agent.TaskState) Record {
	status := StatusGeneral
	if state.Outcome != nil {
		status = string(state.Outcome.Status)
	}
	return Record{
		ID:         state.ID,
		Task:       state.Task,
		Skill:      state.SelectedSkill(),
		Status:     status,
		Result:     state.Result,
		Attempts:   state.Attempts(),
		StartedAt:  state.Started.UTC(),
		FinishedAt: state.Finished.UTC(),
	}
}

// jsonField stores T as a JSON text column.
type jsonField[T any] struct {
	Data T
}

func (j *jsonField[T]) Scan(value any) error {
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into jsonField", value)
	}
	return json.Unmarshal(raw, &j.Data)
}

func (j jsonField[T]) Value() (driver.Value, error) {
	raw, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

type dbTask struct {
	ID         string                       `db:"id"`
	Task       string                       `db:"task"`
	Skill      string                       `db:"skill"`
	Status     string                       `db:"status"`
	Result     string                       `db:"result"`
	Attempts   jsonField[[]codegen.Attempt] `db:"attempts"`
	StartedAt  time.Time                    `db:"started_at"`
	FinishedAt time.Time                    `db:"finished_at"`
}

func toDB(r Record) dbTask {
	attempts := r.Attempts
	if attempts == nil {
		attempts = []codegen.Attempt{}
	}
	return dbTask{
		ID:         r.ID,
		Task:       r.Task,
		Skill:      r.Skill,
		Status:     r.Status,
		Result:     r.Result,
		Attempts:   jsonField[[]codegen.Attempt]{Data: attempts},
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
	}
}

func (t dbTask) record() Record {
	return Record{
		ID:         t.ID,
		Task:       t.Task,
		Skill:      t.Skill,
		Status:     t.Status,
		Result:     t.Result,
		Attempts:   t.Attempts.Data,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
	}
}
