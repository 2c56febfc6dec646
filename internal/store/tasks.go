package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tasksync/internal/model"
)

const taskColumns = `id, title, description, due_date, priority, is_completed, parent_id, project_id, is_synced, created_at, updated_at`

// TaskLoad controls which associations a task read fetches. Loading is
// explicit so list endpoints that only need the raw rows stay cheap.
type TaskLoad struct {
	TimeEntries bool
	Subtasks    bool
}

// TaskFilter narrows and shapes a task listing.
type TaskFilter struct {
	// ProjectID, when non-empty, restricts to one project.
	ProjectID string
	// DueOn, when set, restricts to tasks whose due date falls on the
	// calendar day containing the instant, in server-local time.
	DueOn *time.Time

	Include TaskLoad
}

// TaskUpsertFields is the full set of client-writable task columns.
var TaskUpsertFields = []string{
	"title", "description", "due_date", "priority",
	"is_completed", "parent_id", "project_id", "is_synced",
}

// UpsertTask inserts the task or, when a row with the same id already
// exists, overwrites only the named columns. Columns the client did
// not send keep their stored values, and created_at survives the
// update branch either way.
func (s *Store) UpsertTask(ctx context.Context, t model.Task, fields []string) (model.Task, error) {
	sets := []string{"updated_at = excluded.updated_at"}
	for _, field := range fields {
		col, ok := taskPatchColumns[field]
		if !ok {
			return model.Task{}, fmt.Errorf("upsert task: unknown field %q", field)
		}
		sets = append(sets, col+" = excluded."+col)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, due_date, priority, is_completed,
		                   parent_id, project_id, is_synced, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET `+strings.Join(sets, ", "),
		t.ID, t.Title, t.Description, formatNullTime(t.DueDate), t.Priority, t.IsCompleted,
		t.ParentID, t.ProjectID, t.IsSynced,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("upsert task %s: %w", t.ID, err)
	}
	return s.GetTask(ctx, t.ID, TaskLoad{})
}

// GetTask returns the task with the given id, loading the associations
// named in load.
func (s *Store) GetTask(ctx context.Context, id string, load TaskLoad) (model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}

	tasks := []model.Task{t}
	if err := s.loadTaskChildren(ctx, tasks, load); err != nil {
		return model.Task{}, err
	}
	return tasks[0], nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	where := []string{}
	args := []any{}

	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.DueOn != nil {
		// Half-open bounds of the local calendar day, compared as
		// RFC3339 UTC text.
		ref := filter.DueOn.In(time.Local)
		start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.Local)
		end := start.AddDate(0, 0, 1)
		where = append(where, "due_date >= ? AND due_date < ?")
		args = append(args, formatTime(start), formatTime(end))
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadTaskChildren(ctx, tasks, filter.Include); err != nil {
		return nil, err
	}
	return tasks, nil
}

// taskPatchColumns maps patchable JSON fields to their columns.
var taskPatchColumns = map[string]string{
	"title":        "title",
	"description":  "description",
	"due_date":     "due_date",
	"priority":     "priority",
	"is_completed": "is_completed",
	"parent_id":    "parent_id",
	"project_id":   "project_id",
	"is_synced":    "is_synced",
}

// PatchTask applies only the supplied fields to an existing task.
// Unknown ids fail with ErrNotFound.
func (s *Store) PatchTask(ctx context.Context, id string, fields map[string]any) (model.Task, error) {
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for field, value := range fields {
		col, ok := taskPatchColumns[field]
		if !ok {
			return model.Task{}, fmt.Errorf("patch task: unknown field %q", field)
		}
		sets = append(sets, col+" = ?")
		args = append(args, value)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, formatTime(time.Now()))
		args = append(args, id)

		res, err := s.db.ExecContext(ctx,
			`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return model.Task{}, fmt.Errorf("patch task %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return model.Task{}, fmt.Errorf("patch task %s: %w", id, err)
		}
		if n == 0 {
			return model.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
	}

	return s.GetTask(ctx, id, TaskLoad{})
}

// DeleteTask removes the task; the cascade rules take its subtasks and
// time entries with it.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// loadTaskChildren batch-fetches time entries and subtask ids for the
// given tasks, avoiding a query per row on list reads.
func (s *Store) loadTaskChildren(ctx context.Context, tasks []model.Task, load TaskLoad) error {
	if len(tasks) == 0 || (!load.TimeEntries && !load.Subtasks) {
		return nil
	}

	index := make(map[string]int, len(tasks))
	ids := make([]any, len(tasks))
	placeholders := make([]string, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
		ids[i] = tasks[i].ID
		placeholders[i] = "?"
		if load.TimeEntries {
			tasks[i].TimeEntries = []model.TimeEntry{}
		}
		if load.Subtasks {
			tasks[i].SubtaskIDs = []string{}
		}
	}
	in := "(" + strings.Join(placeholders, ", ") + ")"

	if load.TimeEntries {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, task_id, start_time, end_time FROM time_entries
			 WHERE task_id IN `+in+` ORDER BY start_time ASC, id`, ids...)
		if err != nil {
			return fmt.Errorf("load time entries: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanTimeEntry(rows)
			if err != nil {
				return fmt.Errorf("scan time entry: %w", err)
			}
			if i, ok := index[e.TaskID]; ok {
				tasks[i].TimeEntries = append(tasks[i].TimeEntries, e)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}

	if load.Subtasks {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, parent_id FROM tasks
			 WHERE parent_id IN `+in+` ORDER BY created_at DESC, id`, ids...)
		if err != nil {
			return fmt.Errorf("load subtasks: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id, parentID string
			if err := rows.Scan(&id, &parentID); err != nil {
				return fmt.Errorf("scan subtask id: %w", err)
			}
			if i, ok := index[parentID]; ok {
				tasks[i].SubtaskIDs = append(tasks[i].SubtaskIDs, id)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}

	return nil
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t                    model.Task
		description          sql.NullString
		dueDate              sql.NullString
		parentID             sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&t.ID, &t.Title, &description, &dueDate, &t.Priority,
		&t.IsCompleted, &parentID, &t.ProjectID, &t.IsSynced, &createdAt, &updatedAt)
	if err != nil {
		return model.Task{}, err
	}

	if description.Valid {
		t.Description = &description.String
	}
	if parentID.Valid {
		t.ParentID = &parentID.String
	}
	if t.DueDate, err = parseNullTime(dueDate); err != nil {
		return model.Task{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Task{}, err
	}
	return t, nil
}
