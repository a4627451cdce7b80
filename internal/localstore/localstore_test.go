package localstore

import (
	"context"
	"os"
	"testing"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

func TestCreateAndList_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "first", "")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	second, err := s.Create(ctx, "second", "details")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	todos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("List() returned %d todos, want 2", len(todos))
	}
	if todos[0].ID != second.ID {
		t.Errorf("newest todo should be first, got %q", todos[0].Title)
	}
	if todos[1].ID != first.ID {
		t.Errorf("oldest todo should be last, got %q", todos[1].Title)
	}
}

func TestCreate_SetsDefaults(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(context.Background(), "buy milk", "2 liters")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if created.ID == "" {
		t.Error("Create() did not assign an id")
	}
	if created.Completed {
		t.Error("Create() should default completed to false")
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("created_at %v != updated_at %v at creation", created.CreatedAt, created.UpdatedAt)
	}
}

func TestCreate_RejectsEmptyTitle(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create(context.Background(), "  ", "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "find me", "")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Title != "find me" {
		t.Errorf("Get() title = %q", got.Title)
	}

	_, err = s.Get(ctx, "missing")
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestUpdate_MergesAndTouches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "original", "keep me")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	completed := true
	updated, err := s.Update(ctx, created.ID, todo.Patch{Completed: &completed})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	if !updated.Completed {
		t.Error("Completed not applied")
	}
	if updated.Title != "original" || updated.Description != "keep me" {
		t.Error("unpatched fields changed")
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("updated_at moved backwards")
	}

	// Reloading must see the persisted change
	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !got.Completed {
		t.Error("update not persisted")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update(context.Background(), "missing", todo.Patch{})
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "delete me", "")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	removed, err := s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if !removed {
		t.Error("Delete() reported nothing removed")
	}

	// Deleting again is not an error, but reports false
	removed, err = s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("second Delete() failed: %v", err)
	}
	if removed {
		t.Error("second Delete() should report nothing removed")
	}
}

func TestListPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "open", ""); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	done, err := s.Create(ctx, "done", "")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	completed := true
	if _, err := s.Update(ctx, done.ID, todo.Patch{Completed: &completed}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "open" {
		t.Errorf("ListPending() = %v, want only the open todo", pending)
	}
}

func TestCorruptBlobTreatedAsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "will be lost", ""); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := os.WriteFile(s.TodosPath(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to corrupt blob: %v", err)
	}

	todos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() on corrupt blob failed: %v", err)
	}
	if len(todos) != 0 {
		t.Errorf("corrupt blob should read as empty, got %d todos", len(todos))
	}

	// The store self-heals: the next write starts from empty
	if _, err := s.Create(ctx, "fresh start", ""); err != nil {
		t.Fatalf("Create() after corruption failed: %v", err)
	}
	todos, _ = s.List(ctx)
	if len(todos) != 1 {
		t.Errorf("expected 1 todo after self-heal, got %d", len(todos))
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if got := s.LoadState(); got != DefaultState() {
		t.Errorf("LoadState() on fresh store = %+v, want default", got)
	}

	want := StorageState{Mode: ModeLocal, Initialized: true}
	if err := s.SaveState(want); err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}
	if got := s.LoadState(); got != want {
		t.Errorf("LoadState() = %+v, want %+v", got, want)
	}

	if err := s.ClearState(); err != nil {
		t.Fatalf("ClearState() failed: %v", err)
	}
	if got := s.LoadState(); got != DefaultState() {
		t.Errorf("LoadState() after clear = %+v, want default", got)
	}
}

func TestStateCorruptFileTreatedAsDefault(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(s.StatePath(), []byte("garbage"), 0644); err != nil {
		t.Fatalf("failed to write corrupt state: %v", err)
	}
	if got := s.LoadState(); got != DefaultState() {
		t.Errorf("LoadState() on corrupt file = %+v, want default", got)
	}
}
