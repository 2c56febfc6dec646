package model

import (
	"time"

	"github.com/google/uuid"
)

// InboxProjectID is the reserved project every client starts with.
// It can never be deleted.
const InboxProjectID = "inbox"

// Project is a collection of tasks.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Order     int       `json:"order"`
	IsSynced  bool      `json:"is_synced"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Tasks is populated only on single-project reads.
	Tasks []Task `json:"tasks,omitempty"`
}

// NewID mints an identifier for any entity. Clients operating offline
// usually supply their own; this covers the server-side create path.
func NewID() string {
	return uuid.NewString()
}

// NewProject builds a project ready for insert, generating an id when
// the client did not supply one.
func NewProject(id, name, color string, order int) Project {
	if id == "" {
		id = NewID()
	}
	now := time.Now().UTC()
	return Project{
		ID:        id,
		Name:      name,
		Color:     color,
		Order:     order,
		IsSynced:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DefaultInboxProject returns the seed row for the reserved inbox.
func DefaultInboxProject() Project {
	now := time.Now().UTC()
	return Project{
		ID:        InboxProjectID,
		Name:      "Inbox",
		Color:     "#6C757D",
		IsSynced:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsProtected reports whether the project must never be deleted.
func (p Project) IsProtected() bool {
	return p.ID == InboxProjectID
}
