package store

import (
	"fmt"

	"tasksync/internal/model"
)

// migrate runs all database migrations in order, then seeds the
// reserved inbox project.
func (s *Store) migrate() error {
	migrations := []string{
		migrationCreateProjects,
		migrationCreateTasks,
		migrationCreateTimeEntries,
	}

	for i, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return s.seedInbox()
}

// seedInbox inserts the protected inbox row once, taking its values
// from the model so the literals live in exactly one place.
func (s *Store) seedInbox() error {
	inbox := model.DefaultInboxProject()
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO projects (id, name, color, "order", is_synced, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inbox.ID, inbox.Name, inbox.Color, inbox.Order, inbox.IsSynced,
		formatTime(inbox.CreatedAt), formatTime(inbox.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inbox seed failed: %w", err)
	}
	return nil
}

const migrationCreateProjects = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL,
    "order" INTEGER NOT NULL DEFAULT 0,
    is_synced INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// Cascade rules live here, not in application code: deleting a project
// removes its tasks, deleting a task removes its subtasks and entries.
const migrationCreateTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    due_date TEXT,
    priority INTEGER NOT NULL DEFAULT 1,
    is_completed INTEGER NOT NULL DEFAULT 0,
    parent_id TEXT REFERENCES tasks(id) ON DELETE CASCADE,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    is_synced INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date);
`

const migrationCreateTimeEntries = `
CREATE TABLE IF NOT EXISTS time_entries (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    start_time TEXT NOT NULL,
    end_time TEXT
);

CREATE INDEX IF NOT EXISTS idx_time_entries_task ON time_entries(task_id);
`
