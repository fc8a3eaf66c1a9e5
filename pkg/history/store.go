package history

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/db"
	"github.com/jingkaihe/skillet/pkg/db/migrations"
	"github.com/jingkaihe/skillet/pkg/logger"
)

// ErrNotFound is returned when no task has the requested ID.
var ErrNotFound = errors.New("task not found")

// ErrAmbiguous is returned when an ID prefix matches more than one task.
var ErrAmbiguous = errors.New("task ID prefix is ambiguous")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// Store reads and writes task records in SQLite.
type Store struct {
	db *sqlx.DB
}

// NewStore creates an empty in-memory store. Records are gone once the
// store is closed.
func NewStore(ctx context.Context) (*Store, error) {
	conn, err := db.Open(ctx, db.MemoryDSN, migrations.All())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open task history")
	}
	logger.G(ctx).Debug("task history opened")
	return &Store{db: conn}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces r.
func (s *Store) Save(ctx context.Context, r Record) error {
	if r.ID == "" {
		return errors.New("task record has no ID")
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO tasks (id, task, skill, status, result, attempts, started_at, finished_at)
		VALUES (:id, :task, :skill, :status, :result, :attempts, :started_at, :finished_at)
	`, toDB(r))
	return errors.Wrapf(err, "failed to save task %s", r.ID)
}

// Get returns the task with id. A unique ID prefix is also accepted.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var rows []dbTask
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM tasks WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2",
		id, stripWildcards(id)+"%", id)
	if err != nil {
		return Record{}, errors.Wrapf(err, "failed to load task %s", id)
	}

	switch {
	case len(rows) == 0:
		return Record{}, errors.Wrapf(ErrNotFound, "no task matches %q", id)
	case rows[0].ID == id || len(rows) == 1:
		return rows[0].record(), nil
	default:
		return Record{}, errors.Wrapf(ErrAmbiguous, "%q", id)
	}
}

// ListOptions filters List.
type ListOptions struct {
	Skill  string
	Status string
	Limit  int
}

// List returns the most recent tasks first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if opts.Skill != "" {
		where = append(where, "skill = ?")
		args = append(args, opts.Skill)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := "SELECT * FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	var rows []dbTask
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

// Delete removes the task with exactly id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete task %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to count deleted tasks")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "no task with ID %q", id)
	}
	return nil
}

func stripWildcards(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
