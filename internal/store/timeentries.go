package store

import (
	"context"
	"database/sql"
	"fmt"

	"tasksync/internal/model"
)

// ReplaceTimeEntries destructively replaces the whole time-entry
// collection of one task: every prior entry for the task is deleted,
// then the submitted entries are inserted fresh. The swap runs inside a
// single transaction so readers never observe a half-replaced set.
//
// The owning task row must already exist; entries carry a foreign key
// to it.
func (s *Store) ReplaceTimeEntries(ctx context.Context, taskID string, entries []model.TimeEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace time entries for task %s: %w", taskID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM time_entries WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear time entries for task %s: %w", taskID, err)
	}

	for _, e := range entries {
		entry := model.NewTimeEntry(e.ID, taskID, e.StartTime, e.EndTime)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO time_entries (id, task_id, start_time, end_time)
			 VALUES (?, ?, ?, ?)`,
			entry.ID, entry.TaskID, formatTime(entry.StartTime), formatNullTime(entry.EndTime),
		); err != nil {
			return fmt.Errorf("insert time entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace time entries for task %s: %w", taskID, err)
	}
	return nil
}

// ListTimeEntries returns a task's entries ordered by start time.
func (s *Store) ListTimeEntries(ctx context.Context, taskID string) ([]model.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, start_time, end_time FROM time_entries
		 WHERE task_id = ? ORDER BY start_time ASC, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list time entries for task %s: %w", taskID, err)
	}
	defer rows.Close()

	entries := []model.TimeEntry{}
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanTimeEntry(row rowScanner) (model.TimeEntry, error) {
	var (
		e         model.TimeEntry
		startTime string
		endTime   sql.NullString
	)
	if err := row.Scan(&e.ID, &e.TaskID, &startTime, &endTime); err != nil {
		return model.TimeEntry{}, err
	}

	var err error
	if e.StartTime, err = parseTime(startTime); err != nil {
		return model.TimeEntry{}, err
	}
	if e.EndTime, err = parseNullTime(endTime); err != nil {
		return model.TimeEntry{}, err
	}
	return e, nil
}
