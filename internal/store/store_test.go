package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tasksync/internal/model"
)

// openTestStore creates a store backed by a throwaway database file.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_SeedsInbox(t *testing.T) {
	s := openTestStore(t)

	inbox, err := s.GetProject(context.Background(), model.InboxProjectID, false)
	if err != nil {
		t.Fatalf("GetProject(inbox) failed: %v", err)
	}
	want := model.DefaultInboxProject()
	if inbox.Name != want.Name || inbox.Color != want.Color || inbox.Order != want.Order {
		t.Errorf("inbox = %+v, want name %q, color %q, order %d",
			inbox, want.Name, want.Color, want.Order)
	}
	if !inbox.IsProtected() {
		t.Error("seeded inbox not protected")
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	ctx := context.Background()
	if _, err := s.UpsertProject(ctx, model.NewProject("p1", "Work", "#FF0000", 1), ProjectUpsertFields); err != nil {
		t.Fatalf("UpsertProject() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Migrations must be no-ops on an existing database
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if _, err := s.GetProject(ctx, "p1", false); err != nil {
		t.Errorf("project lost across reopen: %v", err)
	}
}

// seedTask inserts a task under the given project.
func seedTask(t *testing.T, s *Store, id, projectID string) model.Task {
	t.Helper()
	task, err := s.UpsertTask(context.Background(), model.NewTask(id, "task "+id, projectID), TaskUpsertFields)
	if err != nil {
		t.Fatalf("UpsertTask(%s) failed: %v", id, err)
	}
	return task
}

func seedEntry(t *testing.T, s *Store, taskID, entryID string) {
	t.Helper()
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	err := s.ReplaceTimeEntries(context.Background(), taskID, []model.TimeEntry{
		{ID: entryID, StartTime: start},
	})
	if err != nil {
		t.Fatalf("ReplaceTimeEntries(%s) failed: %v", taskID, err)
	}
}
