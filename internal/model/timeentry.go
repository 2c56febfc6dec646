package model

import "time"

// TimeEntry is one tracked interval against a task. A nil EndTime means
// the entry is still running (or the client never recorded a stop).
//
// Entries are never patched individually: syncing a task with a
// time_entries payload replaces the task's whole collection.
type TimeEntry struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// NewTimeEntry builds an entry ready for insert, generating an id when
// the client did not supply one.
func NewTimeEntry(id, taskID string, start time.Time, end *time.Time) TimeEntry {
	if id == "" {
		id = NewID()
	}
	return TimeEntry{
		ID:        id,
		TaskID:    taskID,
		StartTime: start,
		EndTime:   end,
	}
}
