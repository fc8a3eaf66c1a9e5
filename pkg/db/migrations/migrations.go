// Package migrations lists the schema migrations for the history database.
package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/db"
)

// All returns every migration. Append new ones here.
func All() []db.Migration {
	return []db.Migration{
		createTasks(),
	}
}

func createTasks() db.Migration {
	return db.Migration{
		Version:     20261018090000,
		Description: "Create tasks table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS tasks (
					id TEXT PRIMARY KEY,
					task TEXT NOT NULL,
					skill TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL,
					result TEXT NOT NULL,
					attempts TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create tasks table")
			}

			if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_started_at ON tasks(started_at DESC)`); err != nil {
				return errors.Wrap(err, "failed to create started_at index")
			}
			if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_skill ON tasks(skill)`); err != nil {
				return errors.Wrap(err, "failed to create skill index")
			}
			return nil
		},
	}
}
