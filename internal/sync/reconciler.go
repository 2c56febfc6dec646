// Package sync reconciles client-held batches of entities with server
// state. Clients are authoritative: every batch element is applied as
// an upsert keyed by the element's id, so replaying an identical batch
// is a no-op in effect.
package sync

import (
	"context"

	"tasksync/internal/logger"
	"tasksync/internal/model"
	"tasksync/internal/store"
)

// Reconciler applies sync batches against the entity store.
type Reconciler struct {
	store *store.Store
}

// New creates a reconciler backed by s.
func New(s *store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// ProjectPayload is one project element of a sync batch. Fields names
// the columns the client actually sent; on the update branch of the
// upsert only those columns are overwritten, so a partial payload never
// resets stored values.
type ProjectPayload struct {
	Project model.Project
	Fields  []string
}

// TaskPayload is one task element of a sync batch. Fields works as on
// ProjectPayload. TimeEntries, when non-nil, replaces the task's whole
// entry collection; a nil slice leaves existing entries untouched, an
// empty one wipes them.
type TaskPayload struct {
	Task        model.Task
	Fields      []string
	TimeEntries *[]model.TimeEntry
}

// ItemError reports one failed batch element.
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Result is the aggregate outcome of a batch. Batches are processed
// best-effort: a failing element is recorded and the rest still apply.
type Result struct {
	Synced int
	Failed []ItemError
}

// SyncProjects upserts every project in the batch by id.
func (r *Reconciler) SyncProjects(ctx context.Context, projects []ProjectPayload) Result {
	var res Result
	for _, p := range projects {
		if _, err := r.store.UpsertProject(ctx, p.Project, p.Fields); err != nil {
			logger.Warn("project sync item failed",
				logger.F("id", p.Project.ID), logger.F("error", err))
			res.Failed = append(res.Failed, ItemError{ID: p.Project.ID, Error: err.Error()})
			continue
		}
		res.Synced++
	}
	return res
}

// SyncTasks upserts every task in the batch by id. The task row goes in
// first so the foreign key on its time entries resolves, then the entry
// collection is replaced when the payload carries one.
func (r *Reconciler) SyncTasks(ctx context.Context, tasks []TaskPayload) Result {
	var res Result
	for _, p := range tasks {
		if _, err := r.store.UpsertTask(ctx, p.Task, p.Fields); err != nil {
			logger.Warn("task sync item failed",
				logger.F("id", p.Task.ID), logger.F("error", err))
			res.Failed = append(res.Failed, ItemError{ID: p.Task.ID, Error: err.Error()})
			continue
		}
		if p.TimeEntries != nil {
			if err := r.store.ReplaceTimeEntries(ctx, p.Task.ID, *p.TimeEntries); err != nil {
				logger.Warn("task sync entry replacement failed",
					logger.F("id", p.Task.ID), logger.F("error", err))
				res.Failed = append(res.Failed, ItemError{ID: p.Task.ID, Error: err.Error()})
				continue
			}
		}
		res.Synced++
	}
	return res
}
