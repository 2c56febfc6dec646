package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tasksync/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.APIPrefix = "/api"

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// do runs one request against the server's router.
func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/projects", map[string]any{
		"id": "p1", "name": "Work", "color": "#FF0000", "order": 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created map[string]any
	decode(t, rec, &created)
	if created["name"] != "Work" || created["is_synced"] != true {
		t.Errorf("created = %v", created)
	}

	// Listing is ordered by display order; inbox has order 0
	rec = do(t, s, http.MethodGet, "/api/projects", nil)
	var projects []map[string]any
	decode(t, rec, &projects)
	if len(projects) != 2 || projects[0]["id"] != "inbox" || projects[1]["id"] != "p1" {
		t.Errorf("projects = %v", projects)
	}

	// Partial update touches only the named field
	rec = do(t, s, http.MethodPut, "/api/projects/p1", map[string]any{"name": "Renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated map[string]any
	decode(t, rec, &updated)
	if updated["name"] != "Renamed" || updated["color"] != "#FF0000" {
		t.Errorf("updated = %v", updated)
	}

	rec = do(t, s, http.MethodDelete, "/api/projects/p1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/projects/p1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("show after delete status = %d, want 404", rec.Code)
	}
}

func TestProjectCreate_ValidationError(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/projects", map[string]any{
		"id": "p1", "color": "#FF0000",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &resp)
	if resp.Fields["name"] == "" || resp.Fields["order"] == "" {
		t.Errorf("fields = %v, want name and order flagged", resp.Fields)
	}
}

func TestProjectCreate_BlankNameRejected(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/projects", map[string]any{
		"id": "p1", "name": "", "color": "#FF0000", "order": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &resp)
	if resp.Fields["name"] == "" {
		t.Errorf("fields = %v, want name flagged", resp.Fields)
	}

	// Nothing was inserted
	rec = do(t, s, http.MethodGet, "/api/projects/p1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("show status = %d, want 404", rec.Code)
	}
}

func TestProjectDelete_InboxForbidden(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/api/projects/inbox", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	// Inbox still there
	rec = do(t, s, http.MethodGet, "/api/projects/inbox", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("inbox gone after refused delete: %d", rec.Code)
	}
}

func TestProjectShow_IncludesTasks(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t1", "title": "in inbox", "priority": 1,
		"is_completed": false, "project_id": "inbox",
	})

	rec := do(t, s, http.MethodGet, "/api/projects/inbox", nil)
	var project struct {
		Tasks []map[string]any `json:"tasks"`
	}
	decode(t, rec, &project)
	if len(project.Tasks) != 1 || project.Tasks[0]["id"] != "t1" {
		t.Errorf("tasks = %v, want [t1]", project.Tasks)
	}
}

func TestProjectSync(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/projects/sync", []map[string]any{
		{"id": "p1", "name": "Work", "color": "#FF0000", "order": 1},
		{"id": "p2", "name": "Home", "color": "#00FF00", "order": 2, "is_synced": false},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Message string `json:"message"`
		Synced  int    `json:"synced"`
	}
	decode(t, rec, &resp)
	if resp.Synced != 2 {
		t.Errorf("synced = %d, want 2", resp.Synced)
	}

	rec = do(t, s, http.MethodGet, "/api/projects", nil)
	var projects []map[string]any
	decode(t, rec, &projects)
	if len(projects) != 3 {
		t.Errorf("projects = %d, want 3 (inbox + 2)", len(projects))
	}
}

func TestTaskCreate_Projection(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t1", "title": "tracked", "priority": 2,
		"is_completed": false, "project_id": "inbox",
		"time_entries": []map[string]any{
			{"id": "e1", "start_time": "2025-01-01T09:00:00Z"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var task struct {
		ID          string   `json:"id"`
		Description *string  `json:"description"`
		DueDate     *string  `json:"due_date"`
		SubtaskIDs  []string `json:"subtask_ids"`
		TimeEntries []struct {
			ID        string  `json:"id"`
			StartTime string  `json:"start_time"`
			EndTime   *string `json:"end_time"`
		} `json:"time_entries"`
	}
	decode(t, rec, &task)
	if task.Description != nil || task.DueDate != nil {
		t.Errorf("nullable fields = %v %v, want nulls", task.Description, task.DueDate)
	}
	if task.SubtaskIDs == nil || len(task.SubtaskIDs) != 0 {
		t.Errorf("subtask_ids = %v, want empty array", task.SubtaskIDs)
	}
	if len(task.TimeEntries) != 1 || task.TimeEntries[0].ID != "e1" {
		t.Fatalf("time_entries = %v, want [e1]", task.TimeEntries)
	}
	if task.TimeEntries[0].StartTime != "2025-01-01T09:00:00Z" {
		t.Errorf("start_time = %q", task.TimeEntries[0].StartTime)
	}
	if task.TimeEntries[0].EndTime != nil {
		t.Errorf("end_time = %v, want null", task.TimeEntries[0].EndTime)
	}
}

func TestTask_SubtaskIDsDerived(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "parent", "title": "parent", "priority": 1,
		"is_completed": false, "project_id": "inbox",
	})
	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "child", "title": "child", "priority": 1,
		"is_completed": false, "project_id": "inbox", "parent_id": "parent",
	})

	rec := do(t, s, http.MethodGet, "/api/tasks/parent", nil)
	var task struct {
		SubtaskIDs []string `json:"subtask_ids"`
	}
	decode(t, rec, &task)
	if len(task.SubtaskIDs) != 1 || task.SubtaskIDs[0] != "child" {
		t.Errorf("subtask_ids = %v, want [child]", task.SubtaskIDs)
	}
}

func TestTaskUpdate_PartialPatch(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t1", "title": "keep me", "description": "keep too",
		"priority": 3, "is_completed": false, "project_id": "inbox",
	})

	rec := do(t, s, http.MethodPut, "/api/tasks/t1", map[string]any{"is_completed": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var task struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Priority    int     `json:"priority"`
		IsCompleted bool    `json:"is_completed"`
	}
	decode(t, rec, &task)
	if !task.IsCompleted {
		t.Error("is_completed not applied")
	}
	if task.Title != "keep me" || task.Priority != 3 ||
		task.Description == nil || *task.Description != "keep too" {
		t.Errorf("other fields changed: %+v", task)
	}
}

func TestTaskUpdate_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/tasks/missing", map[string]any{"is_completed": true})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTaskList_TodayFilter(t *testing.T) {
	s := newTestServer(t)

	now := time.Now()
	tomorrow := now.AddDate(0, 0, 1)

	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t-today", "title": "due today", "priority": 1,
		"is_completed": false, "project_id": "inbox",
		"due_date": now.UTC().Format(time.RFC3339),
	})
	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t-tomorrow", "title": "due tomorrow", "priority": 1,
		"is_completed": false, "project_id": "inbox",
		"due_date": tomorrow.UTC().Format(time.RFC3339),
	})
	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t-never", "title": "no due date", "priority": 1,
		"is_completed": false, "project_id": "inbox",
	})

	rec := do(t, s, http.MethodGet, "/api/tasks?today=1", nil)
	var tasks []struct {
		ID string `json:"id"`
	}
	decode(t, rec, &tasks)
	if len(tasks) != 1 || tasks[0].ID != "t-today" {
		t.Errorf("tasks = %v, want [t-today]", tasks)
	}
}

func TestTaskList_ProjectFilter(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/api/projects", map[string]any{
		"id": "p1", "name": "Work", "color": "#FF0000", "order": 1,
	})
	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t-work", "title": "work task", "priority": 1,
		"is_completed": false, "project_id": "p1",
	})
	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t-inbox", "title": "inbox task", "priority": 1,
		"is_completed": false, "project_id": "inbox",
	})

	rec := do(t, s, http.MethodGet, "/api/tasks?project_id=p1", nil)
	var tasks []struct {
		ID string `json:"id"`
	}
	decode(t, rec, &tasks)
	if len(tasks) != 1 || tasks[0].ID != "t-work" {
		t.Errorf("tasks = %v, want [t-work]", tasks)
	}
}

func TestTaskDelete(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"id": "t1", "title": "doomed", "priority": 1,
		"is_completed": false, "project_id": "inbox",
	})

	rec := do(t, s, http.MethodDelete, "/api/tasks/t1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodDelete, "/api/tasks/t1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestTaskSync_FullReplaceOfEntries(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/tasks/sync", []map[string]any{
		{
			"id": "t1", "title": "tracked", "project_id": "inbox",
			"time_entries": []map[string]any{
				{"id": "e1", "start_time": "2025-01-01T00:00:00Z"},
			},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var task struct {
		TimeEntries []struct {
			ID string `json:"id"`
		} `json:"time_entries"`
	}
	rec = do(t, s, http.MethodGet, "/api/tasks/t1", nil)
	decode(t, rec, &task)
	if len(task.TimeEntries) != 1 || task.TimeEntries[0].ID != "e1" {
		t.Fatalf("time_entries = %v, want [e1]", task.TimeEntries)
	}

	// Re-sync with an empty array wipes the collection
	do(t, s, http.MethodPost, "/api/tasks/sync", []map[string]any{
		{"id": "t1", "title": "tracked", "project_id": "inbox", "time_entries": []any{}},
	})

	rec = do(t, s, http.MethodGet, "/api/tasks/t1", nil)
	decode(t, rec, &task)
	if len(task.TimeEntries) != 0 {
		t.Errorf("time_entries = %v, want none", task.TimeEntries)
	}
}

func TestTaskSync_PartialPayloadPreservesStoredFields(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/api/tasks/sync", []map[string]any{
		{
			"id": "t1", "title": "rich", "project_id": "inbox",
			"priority": 3, "is_completed": true,
			"due_date": "2025-06-01T00:00:00Z",
		},
	})

	// A second device sends only the required fields
	rec := do(t, s, http.MethodPost, "/api/tasks/sync", []map[string]any{
		{"id": "t1", "title": "rich v2", "project_id": "inbox"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var task struct {
		Title       string  `json:"title"`
		Priority    int     `json:"priority"`
		IsCompleted bool    `json:"is_completed"`
		DueDate     *string `json:"due_date"`
	}
	rec = do(t, s, http.MethodGet, "/api/tasks/t1", nil)
	decode(t, rec, &task)
	if task.Title != "rich v2" {
		t.Errorf("title = %q, want %q", task.Title, "rich v2")
	}
	if task.Priority != 3 || !task.IsCompleted {
		t.Errorf("priority = %d, is_completed = %v, want 3 and true", task.Priority, task.IsCompleted)
	}
	if task.DueDate == nil || *task.DueDate != "2025-06-01T00:00:00Z" {
		t.Errorf("due_date = %v, want 2025-06-01T00:00:00Z", task.DueDate)
	}
}

func TestTaskSync_ReportsFailures(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/tasks/sync", []map[string]any{
		{"id": "t-good", "title": "fine", "project_id": "inbox"},
		{"id": "t-bad", "title": "broken", "project_id": "no-such-project"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Synced int `json:"synced"`
		Failed []struct {
			ID string `json:"id"`
		} `json:"failed"`
	}
	decode(t, rec, &resp)
	if resp.Synced != 1 {
		t.Errorf("synced = %d, want 1", resp.Synced)
	}
	if len(resp.Failed) != 1 || resp.Failed[0].ID != "t-bad" {
		t.Errorf("failed = %v, want [t-bad]", resp.Failed)
	}
}
