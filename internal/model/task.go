package model

import "time"

// Priority levels for tasks. The client sends an explicit value on
// create; 1 is the schema-level default.
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Task is a single todo item. A task may have a parent task (subtask
// trees) and owns zero or more time entries.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    int        `json:"priority"`
	IsCompleted bool       `json:"is_completed"`
	ParentID    *string    `json:"parent_id"`
	ProjectID   string     `json:"project_id"`
	IsSynced    bool       `json:"is_synced"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// SubtaskIDs and TimeEntries are loaded on demand; they are not
	// stored columns.
	SubtaskIDs  []string    `json:"-"`
	TimeEntries []TimeEntry `json:"-"`
}

// NewTask builds a task ready for insert, generating an id when the
// client did not supply one.
func NewTask(id, title, projectID string) Task {
	if id == "" {
		id = NewID()
	}
	now := time.Now().UTC()
	return Task{
		ID:        id,
		Title:     title,
		Priority:  PriorityLow,
		ProjectID: projectID,
		IsSynced:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
