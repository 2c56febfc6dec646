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

const projectColumns = `id, name, color, "order", is_synced, created_at, updated_at`

// ProjectUpsertFields is the full set of client-writable project columns.
var ProjectUpsertFields = []string{"name", "color", "order", "is_synced"}

// UpsertProject inserts the project or, when a row with the same id
// already exists, overwrites only the named columns. Columns the
// client did not send keep their stored values; created_at is never
// touched on the update branch. This operation does not fail on
// "not found" by construction.
func (s *Store) UpsertProject(ctx context.Context, p model.Project, fields []string) (model.Project, error) {
	sets := []string{"updated_at = excluded.updated_at"}
	for _, field := range fields {
		col, ok := projectPatchColumns[field]
		if !ok {
			return model.Project{}, fmt.Errorf("upsert project: unknown field %q", field)
		}
		sets = append(sets, col+" = excluded."+col)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, color, "order", is_synced, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET `+strings.Join(sets, ", "),
		p.ID, p.Name, p.Color, p.Order, p.IsSynced,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return model.Project{}, fmt.Errorf("upsert project %s: %w", p.ID, err)
	}
	return s.GetProject(ctx, p.ID, false)
}

// GetProject returns the project with the given id. With includeTasks
// the project's tasks are attached, newest first.
func (s *Store) GetProject(ctx context.Context, id string, includeTasks bool) (model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}

	if includeTasks {
		tasks, err := s.ListTasks(ctx, TaskFilter{ProjectID: p.ID})
		if err != nil {
			return model.Project{}, err
		}
		p.Tasks = tasks
	}

	return p, nil
}

// ListProjects returns all projects ordered by their display order.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY "order" ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// projectPatchColumns maps patchable JSON fields to their columns.
var projectPatchColumns = map[string]string{
	"name":      "name",
	"color":     "color",
	"order":     `"order"`,
	"is_synced": "is_synced",
}

// PatchProject applies only the supplied fields to an existing project.
// Unknown ids fail with ErrNotFound.
func (s *Store) PatchProject(ctx context.Context, id string, fields map[string]any) (model.Project, error) {
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for field, value := range fields {
		col, ok := projectPatchColumns[field]
		if !ok {
			return model.Project{}, fmt.Errorf("patch project: unknown field %q", field)
		}
		sets = append(sets, col+" = ?")
		args = append(args, value)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, formatTime(time.Now()))
		args = append(args, id)

		res, err := s.db.ExecContext(ctx,
			`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return model.Project{}, fmt.Errorf("patch project %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return model.Project{}, fmt.Errorf("patch project %s: %w", id, err)
		}
		if n == 0 {
			return model.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
	}

	return s.GetProject(ctx, id, false)
}

// DeleteProject removes the project and, through the cascade rules, all
// of its tasks and their time entries. The reserved inbox project is
// refused with ErrProtected before any storage work happens.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if (model.Project{ID: id}).IsProtected() {
		return fmt.Errorf("project %s: %w", id, ErrProtected)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (model.Project, error) {
	var (
		p                    model.Project
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Color, &p.Order, &p.IsSynced, &createdAt, &updatedAt); err != nil {
		return model.Project{}, err
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Project{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Project{}, err
	}
	return p, nil
}
