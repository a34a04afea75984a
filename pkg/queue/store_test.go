package queue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kraitsura/lazyreview/pkg/model"
)

func testTarget(n int) model.Target {
	return model.Target{
		Provider: model.ProviderGitHub,
		Owner:    "octo",
		Repo:     "widgets",
		Number:   n,
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnqueueAndList(t *testing.T) {
	s := openTestStore(t)

	a1, err := s.Enqueue(testTarget(1), model.ActionComment, model.ActionPayload{Body: "first"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if a1.ID == 0 {
		t.Error("expected non-zero id after enqueue")
	}
	if a1.Status != model.ActionPending {
		t.Errorf("status = %q, want %q", a1.Status, model.ActionPending)
	}

	a2, err := s.Enqueue(testTarget(1), model.ActionApprove, model.ActionPayload{Body: "lgtm"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	actions, err := s.List(nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("List() returned %d actions, want 2", len(actions))
	}
	if actions[0].ID != a1.ID || actions[1].ID != a2.ID {
		t.Errorf("List() order = [%d, %d], want [%d, %d]", actions[0].ID, actions[1].ID, a1.ID, a2.ID)
	}
	if actions[0].Payload.Body != "first" {
		t.Errorf("payload body = %q, want %q", actions[0].Payload.Body, "first")
	}
}

func TestListOrderStableWithinBurst(t *testing.T) {
	s := openTestStore(t)

	// All enqueued within the same timestamp granularity; the id column
	// must keep them in enqueue order.
	var ids []int64
	for i := 0; i < 10; i++ {
		a, err := s.Enqueue(testTarget(7), model.ActionComment, model.ActionPayload{Body: "b"})
		if err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		ids = append(ids, a.ID)
	}

	actions, err := s.List(nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for i, a := range actions {
		if a.ID != ids[i] {
			t.Fatalf("position %d has id %d, want %d", i, a.ID, ids[i])
		}
	}
}

func TestListFilterByTarget(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Enqueue(testTarget(1), model.ActionComment, model.ActionPayload{Body: "a"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := s.Enqueue(testTarget(2), model.ActionComment, model.ActionPayload{Body: "b"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := s.Enqueue(testTarget(1), model.ActionApprove, model.ActionPayload{}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	actions, err := s.List(&Filter{Target: testTarget(1)})
	if err != nil {
		t.Fatalf("List(filter) error = %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("List(filter) returned %d actions, want 2", len(actions))
	}
	for _, a := range actions {
		if a.Target.Number != 1 {
			t.Errorf("filtered list contains action for PR %d", a.Target.Number)
		}
	}
}

func TestEnqueueRejectsInvalidAction(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		name    string
		target  model.Target
		kind    model.ActionKind
		payload model.ActionPayload
	}{
		{"bad provider", model.Target{Provider: "svn", Owner: "o", Repo: "r", Number: 1}, model.ActionComment, model.ActionPayload{}},
		{"empty owner", model.Target{Provider: model.ProviderGitHub, Repo: "r", Number: 1}, model.ActionComment, model.ActionPayload{}},
		{"zero number", model.Target{Provider: model.ProviderGitHub, Owner: "o", Repo: "r"}, model.ActionComment, model.ActionPayload{}},
		{"bad kind", testTarget(1), "merge", model.ActionPayload{}},
		{"review without event", testTarget(1), model.ActionReview, model.ActionPayload{Body: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Enqueue(tt.target, tt.kind, tt.payload); err == nil {
				t.Error("Enqueue() succeeded, want validation error")
			}
		})
	}

	if n, err := s.Count(); err != nil || n != 0 {
		t.Errorf("Count() = %d, %v; want 0, nil", n, err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	a, err := s.Enqueue(testTarget(1), model.ActionComment, model.ActionPayload{Body: "x"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := s.Remove(a.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove(a.ID); err != nil {
		t.Errorf("second Remove() error = %v, want nil", err)
	}
	if err := s.Remove(99999); err != nil {
		t.Errorf("Remove(missing) error = %v, want nil", err)
	}

	if n, _ := s.Count(); n != 0 {
		t.Errorf("Count() = %d after remove, want 0", n)
	}
}

func TestMarkFailed(t *testing.T) {
	s := openTestStore(t)

	a, err := s.Enqueue(testTarget(1), model.ActionApprove, model.ActionPayload{})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := s.MarkFailed(a.ID, "422 validation failed"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	actions, err := s.List(nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("List() returned %d actions, want 1 (failed actions stay queued)", len(actions))
	}
	if actions[0].Status != model.ActionFailed {
		t.Errorf("status = %q, want %q", actions[0].Status, model.ActionFailed)
	}
	if actions[0].LastError != "422 validation failed" {
		t.Errorf("last error = %q, want %q", actions[0].LastError, "422 validation failed")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	a, err := s.Enqueue(testTarget(3), model.ActionReview, model.ActionPayload{Body: "notes", Event: model.ReviewApproved})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()

	actions, err := s2.List(nil)
	if err != nil {
		t.Fatalf("List() after reopen error = %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("List() returned %d actions after reopen, want 1", len(actions))
	}
	got := actions[0]
	if got.ID != a.ID || got.Kind != model.ActionReview || got.Payload.Event != model.ReviewApproved {
		t.Errorf("reloaded action = %+v, want id=%d kind=review event=approved", got, a.ID)
	}
}

func TestOpenCorruptFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	if err := os.WriteFile(dbPath, []byte("this is not a database"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := Open(dbPath)
	if err == nil {
		t.Fatal("Open() succeeded on a corrupt file")
	}
	if !errors.Is(err, ErrCorruptProfile) {
		t.Errorf("Open() error = %v, want ErrCorruptProfile", err)
	}

	// The damaged file must survive untouched.
	data, readErr := os.ReadFile(dbPath)
	if readErr != nil {
		t.Fatalf("read file back: %v", readErr)
	}
	if string(data) != "this is not a database" {
		t.Error("corrupt file was modified by Open()")
	}
}

func TestOpenEmptyFileIsFresh(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	if err := os.WriteFile(dbPath, nil, 0644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() on empty file error = %v", err)
	}
	defer s.Close()

	if _, err := s.Enqueue(testTarget(1), model.ActionComment, model.ActionPayload{Body: "x"}); err != nil {
		t.Errorf("Enqueue() on fresh store error = %v", err)
	}
}
