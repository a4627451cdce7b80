package pg

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

// openTestDB connects to the database named by TODO_TEST_DATABASE_URL.
// Tests are skipped when the variable is unset so the suite runs without a
// live Postgres.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TODO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TODO_TEST_DATABASE_URL not set, skipping Postgres integration test")
	}

	db, err := Open(Config{
		DSN:    dsn,
		Logger: log.New(os.Stderr, "[pg-test] ", log.LstdFlags),
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.conn.Exec("DROP TABLE IF EXISTS todos")
		_ = db.Close()
	})

	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() failed: %v", err)
	}
	return db
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// openTestDB already ran EnsureSchema once
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema() failed: %v", err)
	}
	if err := db.Probe(ctx); err != nil {
		t.Fatalf("Probe() after bootstrap failed: %v", err)
	}
}

func TestCRUDRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created, err := db.Create(ctx, "integration todo", "from the test suite")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create() did not assign an id")
	}
	if created.Completed {
		t.Error("completed should default to false")
	}

	got, err := db.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Title != "integration todo" || got.Description != "from the test suite" {
		t.Errorf("Get() = %+v", got)
	}

	completed := true
	updated, err := db.Update(ctx, created.ID, todo.Patch{Completed: &completed})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if !updated.Completed {
		t.Error("Completed not applied")
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("updated_at moved backwards")
	}

	pending, err := db.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() failed: %v", err)
	}
	for _, p := range pending {
		if p.ID == created.ID {
			t.Error("completed todo returned by ListPending()")
		}
	}

	removed, err := db.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if !removed {
		t.Error("Delete() reported nothing removed")
	}

	// Deleting again is not an error
	removed, err = db.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("second Delete() failed: %v", err)
	}
	if removed {
		t.Error("second Delete() should report nothing removed")
	}

	_, err = db.Get(ctx, created.ID)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestUpdate_NotFoundRow(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Update(context.Background(), "00000000-0000-0000-0000-000000000000", todo.Patch{})
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
