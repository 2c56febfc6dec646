package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tasksync/internal/model"
	"tasksync/internal/store"
	"tasksync/internal/sync"
)

var fullTaskLoad = store.TaskLoad{TimeEntries: true, Subtasks: true}

// handleTaskList returns projected tasks, newest first, optionally
// narrowed to one project or to tasks due today.
func (s *Server) handleTaskList(c echo.Context) error {
	filter := store.TaskFilter{
		ProjectID: c.QueryParam("project_id"),
		Include:   fullTaskLoad,
	}
	if c.QueryParam("today") != "" {
		now := time.Now()
		filter.DueOn = &now
	}

	tasks, err := s.store.ListTasks(c.Request().Context(), filter)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, renderTasks(tasks))
}

// handleTaskCreate upserts a single task. An embedded time_entries
// array, when present, replaces the task's whole entry collection.
func (s *Server) handleTaskCreate(c echo.Context) error {
	obj, err := decodeObject(c)
	if err != nil {
		return badRequest(c)
	}

	errs := fieldErrors{}
	id := requireString(obj, "id", errs)
	title := requireString(obj, "title", errs)
	priority := requireInt(obj, "priority", errs)
	isCompleted := requireBool(obj, "is_completed", errs)
	projectID := requireString(obj, "project_id", errs)
	description := optionalString(obj, "description", errs)
	dueDate := optionalDate(obj, "due_date", errs)
	parentID := optionalString(obj, "parent_id", errs)
	entries := optionalTimeEntries(obj, errs)
	if len(errs) > 0 {
		return validationFailed(c, errs)
	}

	task := model.NewTask(id, title, projectID)
	task.Priority = priority
	task.IsCompleted = isCompleted
	task.Description = description
	task.DueDate = dueDate
	task.ParentID = parentID

	// Nullable fields are overwritten only when the key was sent,
	// including an explicit null.
	fields := []string{"title", "priority", "is_completed", "project_id"}
	for _, key := range []string{"description", "due_date", "parent_id"} {
		if _, ok := obj[key]; ok {
			fields = append(fields, key)
		}
	}

	ctx := c.Request().Context()
	if _, err := s.store.UpsertTask(ctx, task, fields); err != nil {
		return storeError(c, err)
	}
	if entries != nil {
		if err := s.store.ReplaceTimeEntries(ctx, task.ID, *entries); err != nil {
			return storeError(c, err)
		}
	}

	created, err := s.store.GetTask(ctx, task.ID, fullTaskLoad)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, renderTask(created))
}

// handleTaskShow returns one projected task.
func (s *Server) handleTaskShow(c echo.Context) error {
	task, err := s.store.GetTask(c.Request().Context(), c.Param("id"), fullTaskLoad)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, renderTask(task))
}

// handleTaskUpdate applies a partial patch. due_date and parent_id may
// be set to null explicitly; absent fields keep their stored values.
func (s *Server) handleTaskUpdate(c echo.Context) error {
	obj, err := decodeObject(c)
	if err != nil {
		return badRequest(c)
	}

	errs := fieldErrors{}
	fields := map[string]any{}
	if v := optionalString(obj, "title", errs); v != nil {
		fields["title"] = *v
	}
	if v := optionalString(obj, "description", errs); v != nil {
		fields["description"] = *v
	}
	if raw, ok := obj["due_date"]; ok {
		if isNull(raw) {
			fields["due_date"] = nil
		} else if v := optionalDate(obj, "due_date", errs); v != nil {
			fields["due_date"] = v.UTC().Format(time.RFC3339)
		}
	}
	if raw, ok := obj["priority"]; ok && !isNull(raw) {
		if n, err := asInt(raw); err != nil {
			errs["priority"] = err.Error()
		} else {
			fields["priority"] = n
		}
	}
	if raw, ok := obj["is_completed"]; ok && !isNull(raw) {
		if b, err := asBool(raw); err != nil {
			errs["is_completed"] = err.Error()
		} else {
			fields["is_completed"] = b
		}
	}
	if raw, ok := obj["parent_id"]; ok {
		if isNull(raw) {
			fields["parent_id"] = nil
		} else if v := optionalString(obj, "parent_id", errs); v != nil {
			fields["parent_id"] = *v
		}
	}
	if v := optionalString(obj, "project_id", errs); v != nil {
		fields["project_id"] = *v
	}
	entries := optionalTimeEntries(obj, errs)
	if len(errs) > 0 {
		return validationFailed(c, errs)
	}

	ctx := c.Request().Context()
	if _, err := s.store.PatchTask(ctx, c.Param("id"), fields); err != nil {
		return storeError(c, err)
	}
	if entries != nil {
		if err := s.store.ReplaceTimeEntries(ctx, c.Param("id"), *entries); err != nil {
			return storeError(c, err)
		}
	}

	task, err := s.store.GetTask(ctx, c.Param("id"), fullTaskLoad)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, renderTask(task))
}

// handleTaskDelete removes a task and cascades to its subtasks and
// time entries.
func (s *Server) handleTaskDelete(c echo.Context) error {
	if err := s.store.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Task deleted"})
}

// taskSyncItem is one element of a task sync batch.
type taskSyncItem struct {
	ID          *string          `json:"id"`
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	DueDate     *string          `json:"due_date"`
	Priority    *int             `json:"priority"`
	IsCompleted *bool            `json:"is_completed"`
	ParentID    *string          `json:"parent_id"`
	ProjectID   *string          `json:"project_id"`
	IsSynced    *bool            `json:"is_synced"`
	TimeEntries *[]timeEntryItem `json:"time_entries"`
}

type timeEntryItem struct {
	ID        *string `json:"id"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// handleTaskSync reconciles a client batch, best-effort per item. Each
// task row is upserted before its time entries are replaced, so the
// entries' foreign key always resolves.
func (s *Server) handleTaskSync(c echo.Context) error {
	var items []taskSyncItem
	if err := json.NewDecoder(c.Request().Body).Decode(&items); err != nil {
		return badRequest(c)
	}

	var failed []sync.ItemError
	batch := make([]sync.TaskPayload, 0, len(items))
	for _, item := range items {
		payload, err := item.toPayload()
		if err != nil {
			id := ""
			if item.ID != nil {
				id = *item.ID
			}
			failed = append(failed, sync.ItemError{ID: id, Error: err.Error()})
			continue
		}
		batch = append(batch, payload)
	}

	result := s.reconciler.SyncTasks(c.Request().Context(), batch)
	result.Failed = append(failed, result.Failed...)

	return c.JSON(http.StatusOK, syncResponse("Tasks synced", result))
}

func (item taskSyncItem) toPayload() (sync.TaskPayload, error) {
	if item.Title == nil || item.ProjectID == nil {
		return sync.TaskPayload{}, fmt.Errorf("title and project_id are required")
	}

	id := ""
	if item.ID != nil {
		id = *item.ID
	}
	task := model.NewTask(id, *item.Title, *item.ProjectID)

	// Only fields the client sent are overwritten on re-sync; a
	// partial payload leaves the other stored columns alone.
	fields := []string{"title", "project_id"}
	if item.Description != nil {
		task.Description = item.Description
		fields = append(fields, "description")
	}
	if item.ParentID != nil {
		task.ParentID = item.ParentID
		fields = append(fields, "parent_id")
	}
	if item.Priority != nil {
		task.Priority = *item.Priority
		fields = append(fields, "priority")
	}
	if item.IsCompleted != nil {
		task.IsCompleted = *item.IsCompleted
		fields = append(fields, "is_completed")
	}
	if item.IsSynced != nil {
		task.IsSynced = *item.IsSynced
		fields = append(fields, "is_synced")
	}
	if item.DueDate != nil {
		due, err := parseDate(*item.DueDate)
		if err != nil {
			return sync.TaskPayload{}, fmt.Errorf("due_date %s", err)
		}
		task.DueDate = &due
		fields = append(fields, "due_date")
	}

	payload := sync.TaskPayload{Task: task, Fields: fields}
	if item.TimeEntries != nil {
		entries, err := entriesFromItems(task.ID, *item.TimeEntries)
		if err != nil {
			return sync.TaskPayload{}, err
		}
		payload.TimeEntries = &entries
	}
	return payload, nil
}

func entriesFromItems(taskID string, items []timeEntryItem) ([]model.TimeEntry, error) {
	entries := make([]model.TimeEntry, 0, len(items))
	for _, item := range items {
		if item.StartTime == nil {
			return nil, fmt.Errorf("time_entries: start_time is required")
		}
		start, err := parseDate(*item.StartTime)
		if err != nil {
			return nil, fmt.Errorf("time_entries: start_time %s", err)
		}
		var end *time.Time
		if item.EndTime != nil {
			t, err := parseDate(*item.EndTime)
			if err != nil {
				return nil, fmt.Errorf("time_entries: end_time %s", err)
			}
			end = &t
		}
		id := ""
		if item.ID != nil {
			id = *item.ID
		}
		entries = append(entries, model.NewTimeEntry(id, taskID, start, end))
	}
	return entries, nil
}

// optionalTimeEntries pulls an embedded time_entries array out of a
// create/update body. nil means the key was absent and existing entries
// stay untouched.
func optionalTimeEntries(obj map[string]json.RawMessage, errs fieldErrors) *[]model.TimeEntry {
	raw, ok := obj["time_entries"]
	if !ok || isNull(raw) {
		return nil
	}
	var items []timeEntryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		errs["time_entries"] = "must be an array of time entries"
		return nil
	}
	entries, err := entriesFromItems("", items)
	if err != nil {
		errs["time_entries"] = err.Error()
		return nil
	}
	return &entries
}
