package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Reopening a file database must not re-apply migrations.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) < 2 {
		t.Fatalf("applied %d migrations, want at least 2", len(versions))
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("versions not ascending: %v", versions)
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, name := range []string{
		"idx_messages_user",
		"idx_documents_user_created",
		"idx_jobs_status_run_after",
		"idx_saved_jobs_user_created",
	} {
		var got string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, name).Scan(&got)
		if err != nil {
			t.Errorf("index %s: %v", name, err)
		}
	}
}

func TestParseMigrationVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"001_init.sql", 1, false},
		{"002_saved_jobs.sql", 2, false},
		{"init.sql", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMigrationVersion(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMigrationVersion(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMigrationVersion(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestProfileData(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetProfileData("alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetProfileData on empty store: err = %v, want ErrNotFound", err)
	}

	if err := s.SaveProfileData("alice", `{"name":"Alice"}`); err != nil {
		t.Fatalf("SaveProfileData: %v", err)
	}
	if err := s.SaveProfileData("alice", `{"name":"Alice B"}`); err != nil {
		t.Fatalf("SaveProfileData (overwrite): %v", err)
	}
	if err := s.SaveProfileData("bob", `{"name":"Bob"}`); err != nil {
		t.Fatalf("SaveProfileData bob: %v", err)
	}

	got, err := s.GetProfileData("alice")
	if err != nil {
		t.Fatalf("GetProfileData: %v", err)
	}
	if got != `{"name":"Alice B"}` {
		t.Errorf("data = %q, want overwritten value", got)
	}
}

func TestMessages(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		m, err := s.AppendMessage(Message{UserID: "alice", Role: role, Content: fmt.Sprintf("m%d", i)})
		if err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
		if m.ID == "" || m.CreatedAt.IsZero() {
			t.Errorf("AppendMessage did not fill ID/CreatedAt: %+v", m)
		}
	}
	if _, err := s.AppendMessage(Message{UserID: "bob", Role: "user", Content: "other"}); err != nil {
		t.Fatalf("AppendMessage bob: %v", err)
	}

	got, err := s.RecentMessages("alice", 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"m2", "m3", "m4"} {
		if got[i].Content != want {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Content, want)
		}
	}
}

func TestMessages_InvalidRole(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.AppendMessage(Message{UserID: "alice", Role: "system", Content: "x"}); err == nil {
		t.Error("expected error for role outside user/assistant")
	}
}

func TestDocuments(t *testing.T) {
	s := openTestStore(t)

	doc := Document{ID: "d1", UserID: "alice", Filename: "cv.pdf", ContentType: "application/pdf", Text: "Jane Doe"}
	if err := s.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	got, err := s.GetDocument("d1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Status != DocQueued {
		t.Errorf("Status = %q, want %q", got.Status, DocQueued)
	}
	if got.Text != "Jane Doe" || got.Filename != "cv.pdf" {
		t.Errorf("unexpected document: %+v", got)
	}

	if err := s.SetDocumentStatus("d1", DocFailed, "model unavailable"); err != nil {
		t.Fatalf("SetDocumentStatus: %v", err)
	}
	got, _ = s.GetDocument("d1")
	if got.Status != DocFailed || got.Error != "model unavailable" {
		t.Errorf("after failure: status=%q error=%q", got.Status, got.Error)
	}

	if err := s.SetDocumentStatus("d1", DocProcessed, ""); err != nil {
		t.Fatalf("SetDocumentStatus: %v", err)
	}
	got, _ = s.GetDocument("d1")
	if got.Status != DocProcessed || got.Error != "" {
		t.Errorf("after success: status=%q error=%q", got.Status, got.Error)
	}

	if _, err := s.GetDocument("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument(missing) err = %v, want ErrNotFound", err)
	}
	if err := s.SetDocumentStatus("missing", DocProcessed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetDocumentStatus(missing) err = %v, want ErrNotFound", err)
	}
}

func TestListDocuments(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		d := Document{
			ID:          fmt.Sprintf("d%d", i),
			UserID:      "alice",
			ContentType: "text/plain",
			Text:        "x",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveDocument(d); err != nil {
			t.Fatalf("SaveDocument: %v", err)
		}
	}
	if err := s.SaveDocument(Document{ID: "other", UserID: "bob", ContentType: "text/plain", Text: "x"}); err != nil {
		t.Fatalf("SaveDocument bob: %v", err)
	}

	got, err := s.ListDocuments("alice", 2)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "d2" || got[1].ID != "d1" {
		t.Errorf("order = %s, %s; want d2, d1", got[0].ID, got[1].ID)
	}
}

func TestSaveJob_Idempotent(t *testing.T) {
	s := openTestStore(t)

	j := SavedJob{UserID: "alice", Title: "Go Engineer", Company: "Acme", URL: "https://jobs.example/1"}
	first, created, err := s.SaveJob(j)
	if err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if !created {
		t.Error("first save: created = false")
	}
	if first.Status != SavedStatusSaved || first.Source != "unknown" {
		t.Errorf("defaults not applied: %+v", first)
	}

	j.Title = "Different title"
	second, created, err := s.SaveJob(j)
	if err != nil {
		t.Fatalf("SaveJob (again): %v", err)
	}
	if created {
		t.Error("second save: created = true")
	}
	if second.ID != first.ID || second.Title != "Go Engineer" {
		t.Errorf("second save = %+v, want existing record %s", second, first.ID)
	}

	// Same URL for a different user is a separate bookmark.
	if _, created, err := s.SaveJob(SavedJob{UserID: "bob", Title: "Go Engineer", URL: j.URL}); err != nil || !created {
		t.Errorf("SaveJob bob: created=%v err=%v", created, err)
	}

	list, err := s.ListSavedJobs("alice")
	if err != nil {
		t.Fatalf("ListSavedJobs: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("alice has %d saved jobs, want 1", len(list))
	}
}

func TestListSavedJobs_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		if _, _, err := s.SaveJob(SavedJob{UserID: "alice", Title: fmt.Sprintf("t%d", i), URL: fmt.Sprintf("https://x/%d", i)}); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}
	list, err := s.ListSavedJobs("alice")
	if err != nil {
		t.Fatalf("ListSavedJobs: %v", err)
	}
	if len(list) != 3 || list[0].Title != "t2" || list[2].Title != "t0" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestUpdateSavedJob(t *testing.T) {
	s := openTestStore(t)

	j, _, err := s.SaveJob(SavedJob{UserID: "alice", Title: "Go Engineer", URL: "https://x/1"})
	if err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	notes := "recruiter call on Monday"
	got, err := s.UpdateSavedJob("alice", j.ID, SavedJobUpdate{Notes: &notes})
	if err != nil {
		t.Fatalf("UpdateSavedJob notes: %v", err)
	}
	if got.Notes != notes || got.Status != SavedStatusSaved || got.AppliedAt != nil {
		t.Errorf("after notes update: %+v", got)
	}

	applied := SavedStatusApplied
	got, err = s.UpdateSavedJob("alice", j.ID, SavedJobUpdate{Status: &applied})
	if err != nil {
		t.Fatalf("UpdateSavedJob applied: %v", err)
	}
	if got.AppliedAt == nil {
		t.Fatal("applied_at not set on transition to applied")
	}
	firstApplied := *got.AppliedAt

	// Backdate so a second stamp would be visible.
	if _, err := s.db.Exec(`UPDATE saved_jobs SET applied_at = '2020-01-01T00:00:00Z' WHERE id = ?`, j.ID); err != nil {
		t.Fatalf("backdating: %v", err)
	}
	interviewing := SavedStatusInterviewing
	if _, err := s.UpdateSavedJob("alice", j.ID, SavedJobUpdate{Status: &interviewing}); err != nil {
		t.Fatalf("UpdateSavedJob interviewing: %v", err)
	}
	got, err = s.UpdateSavedJob("alice", j.ID, SavedJobUpdate{Status: &applied})
	if err != nil {
		t.Fatalf("UpdateSavedJob applied again: %v", err)
	}
	if got.AppliedAt == nil || got.AppliedAt.Year() != 2020 {
		t.Errorf("applied_at overwritten: got %v, first was %v", got.AppliedAt, firstApplied)
	}

	if _, err := s.UpdateSavedJob("bob", j.ID, SavedJobUpdate{Notes: &notes}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update by other user: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteSavedJob(t *testing.T) {
	s := openTestStore(t)

	j, _, err := s.SaveJob(SavedJob{UserID: "alice", Title: "Go Engineer", URL: "https://x/1"})
	if err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if err := s.DeleteSavedJob("bob", j.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete by other user: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteSavedJob("alice", j.ID); err != nil {
		t.Fatalf("DeleteSavedJob: %v", err)
	}
	if _, err := s.GetSavedJob("alice", j.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSavedJob after delete: err = %v, want ErrNotFound", err)
	}
}

func TestEnqueueAndClaimJob(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: "j-claim-1", Type: "profile_extract", PayloadJSON: `{"document_id":"d1"}`}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	got, err := s.ClaimNextJob([]string{"profile_extract"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got == nil {
		t.Fatal("ClaimNextJob returned nil")
	}
	if got.ID != "j-claim-1" {
		t.Errorf("ID = %q, want %q", got.ID, "j-claim-1")
	}
	if got.PayloadJSON != `{"document_id":"d1"}` {
		t.Errorf("PayloadJSON = %q", got.PayloadJSON)
	}
	if got.Status != "running" {
		t.Errorf("Status = %q, want %q", got.Status, "running")
	}
	if got.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", got.MaxAttempts)
	}
}

func TestClaimNextJob_Empty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ClaimNextJob([]string{"profile_extract"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}

	got, err = s.ClaimNextJob(nil)
	if err != nil || got != nil {
		t.Errorf("ClaimNextJob(nil) = %+v, %v", got, err)
	}
}

func TestClaimNextJob_RespectRunAfter(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: "j-future", Type: "x", PayloadJSON: `{}`, RunAfter: time.Now().UTC().Add(time.Hour)}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	got, err := s.ClaimNextJob([]string{"x"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for future run_after, got %+v", got)
	}
}

func TestClaimNextJob_TypeFilter(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j-a", Type: "a", PayloadJSON: `{}`}); err != nil {
		t.Fatalf("EnqueueJob a: %v", err)
	}
	if err := s.EnqueueJob(Job{ID: "j-b", Type: "b", PayloadJSON: `{}`}); err != nil {
		t.Fatalf("EnqueueJob b: %v", err)
	}
	got, err := s.ClaimNextJob([]string{"b"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got == nil || got.ID != "j-b" {
		t.Errorf("claimed %+v, want j-b", got)
	}
}

func TestClaimNextJob_SkipsRunning(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j-first", Type: "x", PayloadJSON: `{}`}); err != nil {
		t.Fatalf("EnqueueJob first: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"x"}); err != nil {
		t.Fatalf("ClaimNextJob first: %v", err)
	}
	if err := s.EnqueueJob(Job{ID: "j-second", Type: "x", PayloadJSON: `{}`}); err != nil {
		t.Fatalf("EnqueueJob second: %v", err)
	}

	got, err := s.ClaimNextJob([]string{"x"})
	if err != nil {
		t.Fatalf("ClaimNextJob second: %v", err)
	}
	if got == nil || got.ID != "j-second" {
		t.Errorf("claimed %+v, want j-second", got)
	}
}

func TestCompleteJob(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j-complete", Type: "x", PayloadJSON: `{}`}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"x"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if err := s.CompleteJob("j-complete"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	got, err := s.GetJob("j-complete")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != "completed" {
		t.Errorf("status = %q, want %q", got.Status, "completed")
	}
	if err := s.CompleteJob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteJob(missing) err = %v, want ErrNotFound", err)
	}
}

func TestFailJob_IncrementsAttempts(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j-fail", Type: "x", PayloadJSON: `{}`}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"x"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	before := time.Now().UTC()
	if err := s.FailJob("j-fail", "something broke"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	got, err := s.GetJob("j-fail")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if got.Status != "pending" {
		t.Errorf("status = %q, want %q", got.Status, "pending")
	}
	if got.LastError != "something broke" {
		t.Errorf("last_error = %q", got.LastError)
	}
	if !got.RunAfter.After(before) {
		t.Errorf("run_after %v should be after %v", got.RunAfter, before)
	}
}

func TestFailJob_MaxAttemptsReached(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j-fail-max", Type: "x", PayloadJSON: `{}`, MaxAttempts: 1}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"x"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if err := s.FailJob("j-fail-max", "fatal"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	got, err := s.GetJob("j-fail-max")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("status = %q, want %q", got.Status, "failed")
	}
	if err := s.FailJob("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FailJob(missing) err = %v, want ErrNotFound", err)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetJob("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
