package server

import (
	"time"

	"tasksync/internal/model"
)

// taskResponse is the client-facing projection of a task: scalar
// fields, ISO-8601 timestamps, the derived list of immediate subtask
// ids, and the task's time entries. It is the same shape for single
// reads and listings.
type taskResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	DueDate     *string             `json:"due_date"`
	Priority    int                 `json:"priority"`
	IsCompleted bool                `json:"is_completed"`
	ParentID    *string             `json:"parent_id"`
	SubtaskIDs  []string            `json:"subtask_ids"`
	CreatedAt   string              `json:"created_at"`
	ProjectID   string              `json:"project_id"`
	TimeEntries []timeEntryResponse `json:"time_entries"`
	IsSynced    bool                `json:"is_synced"`
}

type timeEntryResponse struct {
	ID        string  `json:"id"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

func renderTask(t model.Task) taskResponse {
	r := taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     isoTimePtr(t.DueDate),
		Priority:    t.Priority,
		IsCompleted: t.IsCompleted,
		ParentID:    t.ParentID,
		SubtaskIDs:  t.SubtaskIDs,
		CreatedAt:   isoTime(t.CreatedAt),
		ProjectID:   t.ProjectID,
		TimeEntries: []timeEntryResponse{},
		IsSynced:    t.IsSynced,
	}
	if r.SubtaskIDs == nil {
		r.SubtaskIDs = []string{}
	}
	for _, e := range t.TimeEntries {
		r.TimeEntries = append(r.TimeEntries, timeEntryResponse{
			ID:        e.ID,
			StartTime: isoTime(e.StartTime),
			EndTime:   isoTimePtr(e.EndTime),
		})
	}
	return r
}

func renderTasks(tasks []model.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, renderTask(t))
	}
	return out
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func isoTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := isoTime(*t)
	return &s
}
