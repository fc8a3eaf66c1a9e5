package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/codegen"
	"github.com/jingkaihe/skillet/pkg/runner"
	"github.com/jingkaihe/skillet/pkg/skills"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id, skill, status string, started time.Time) Record {
	return Record{
		ID:         id,
		Task:       "task " + id,
		Skill:      skill,
		Status:     status,
		Result:     "result " + id,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}
}

func TestFromTaskState(t *testing.T) {
	started := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	t.Run("general reasoning", func(t *testing.T) {
		r := FromTaskState(agent.TaskState{
			ID: "a", Task: "hello", Result: agent.GeneralReasoningResult,
			Started: started, Finished: started.Add(time.Second),
		})
		assert.Equal(t, StatusGeneral, r.Status)
		assert.Empty(t, r.Skill)
		assert.Empty(t, r.Attempts)
		assert.Equal(t, time.Second, r.Duration())
	})

	t.Run("skill execution", func(t *testing.T) {
		outcome := &codegen.Result{
			Status: codegen.StatusSucceeded,
			Output: "done",
			Attempts: []codegen.Attempt{
				{Number: 1, Code: "print('done')", Execution: &runner.Execution{Stdout: "done"}},
			},
		}
		r := FromTaskState(agent.TaskState{
			ID: "b", Task: "make a doc",
			Selected: &skills.Skill{Metadata: skills.Metadata{Name: "docx"}},
			Result:   outcome.Summary(), Outcome: outcome,
			Started: started, Finished: started,
		})
		assert.Equal(t, "docx", r.Skill)
		assert.Equal(t, string(codegen.StatusSucceeded), r.Status)
		require.Len(t, r.Attempts, 1)
	})
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	started := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	r := record("3f2a9c1e-0000-4000-8000-000000000001", "pdf", string(codegen.StatusRetriesExhausted), started)
	r.Attempts = []codegen.Attempt{
		{Number: 1, Failure: codegen.FailureGeneration, Error: "No valid python code block found in LLM output."},
		{Number: 2, Code: "raise SystemExit(1)", Failure: codegen.FailureExecution,
			Execution: &runner.Execution{Stderr: "boom", ExitCode: 1, Duration: 30 * time.Millisecond}},
	}
	require.NoError(t, store.Save(ctx, r))

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Task, got.Task)
	assert.Equal(t, r.Status, got.Status)
	assert.True(t, r.StartedAt.Equal(got.StartedAt))
	require.Len(t, got.Attempts, 2)
	assert.Equal(t, codegen.FailureExecution, got.Attempts[1].Failure)
	assert.Equal(t, 1, got.Attempts[1].Execution.ExitCode)

	byPrefix, err := store.Get(ctx, "3f2a9c1e")
	require.NoError(t, err)
	assert.Equal(t, r.ID, byPrefix.ID)

	r.Result = "updated"
	require.NoError(t, store.Save(ctx, r))
	got, err = store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Result)
}

func TestStore_GetErrors(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.Save(ctx, record("abc-1", "", StatusGeneral, now)))
	require.NoError(t, store.Save(ctx, record("abc-2", "", StatusGeneral, now)))

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrAmbiguous)
	assert.Contains(t, err.Error(), "ambiguous")

	assert.Error(t, store.Save(ctx, Record{}), "records need an ID")
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, record("1", "docx", "succeeded", base)))
	require.NoError(t, store.Save(ctx, record("2", "pdf", "retries_exhausted", base.Add(time.Minute))))
	require.NoError(t, store.Save(ctx, record("3", "docx", "retries_exhausted", base.Add(2*time.Minute))))
	require.NoError(t, store.Save(ctx, record("4", "", StatusGeneral, base.Add(3*time.Minute))))

	ids := func(records []Record) []string {
		var out []string
		for _, r := range records {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"newest first", ListOptions{}, []string{"4", "3", "2", "1"}},
		{"by skill", ListOptions{Skill: "docx"}, []string{"3", "1"}},
		{"by status", ListOptions{Status: "retries_exhausted"}, []string{"3", "2"}},
		{"skill and status", ListOptions{Skill: "docx", Status: "succeeded"}, []string{"1"}},
		{"limit", ListOptions{Limit: 2}, []string{"4", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.Save(ctx, record("gone", "", StatusGeneral, time.Now())))
	require.NoError(t, store.Delete(ctx, "gone"))

	_, err := store.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "gone"), ErrNotFound)
}

func TestStore_IsPerSession(t *testing.T) {
	ctx := context.Background()
	first := openStore(t)
	require.NoError(t, first.Save(ctx, record("only-here", "", StatusGeneral, time.Now())))

	second := openStore(t)
	records, err := second.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
