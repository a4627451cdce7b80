package reconcile

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/Prajwal99452/todo-summary/internal/localstore"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

func newTestReconciler(t *testing.T, probe Probe) (*Reconciler, *localstore.Store) {
	t.Helper()
	local, err := localstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("localstore.New() failed: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	return New(local, probe, logger), local
}

func TestResolve_DatabaseMode(t *testing.T) {
	dbTodos := []*todo.Todo{{ID: "db-1", Title: "from db"}}
	r, local := newTestReconciler(t, func(ctx context.Context) ([]*todo.Todo, error) {
		return dbTodos, nil
	})

	res, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if !res.Determined || res.Mode != localstore.ModeDatabase {
		t.Errorf("Resolve() = %+v, want determined database mode", res)
	}
	if len(res.Todos) != 1 || res.Todos[0].ID != "db-1" {
		t.Errorf("Todos = %v, want the probe result", res.Todos)
	}

	state := local.LoadState()
	if !state.Initialized || state.Mode != localstore.ModeDatabase {
		t.Errorf("persisted state = %+v, want initialized database", state)
	}
}

func TestResolve_MissingRelationFallsBackToLocal(t *testing.T) {
	probeErr := errors.New(`relation "public.todos" does not exist`)
	r, local := newTestReconciler(t, func(ctx context.Context) ([]*todo.Todo, error) {
		return nil, probeErr
	})

	if _, err := local.Create(context.Background(), "already local", ""); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	res, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if !res.Determined || res.Mode != localstore.ModeLocal {
		t.Errorf("Resolve() = %+v, want determined local mode", res)
	}
	if res.Warning == "" {
		t.Error("fallback must carry a non-blocking warning")
	}
	if len(res.Todos) != 1 || res.Todos[0].Title != "already local" {
		t.Errorf("Todos = %v, want local collection", res.Todos)
	}

	state := local.LoadState()
	if !state.Initialized || state.Mode != localstore.ModeLocal {
		t.Errorf("persisted state = %+v, want initialized localStorage", state)
	}
}

func TestResolve_OtherFailureLeavesModeUndetermined(t *testing.T) {
	probeErr := errors.New("connection refused")
	r, local := newTestReconciler(t, func(ctx context.Context) ([]*todo.Todo, error) {
		return nil, probeErr
	})

	res, err := r.Resolve(context.Background())
	if !errors.Is(err, probeErr) {
		t.Fatalf("Resolve() error = %v, want probe error", err)
	}
	if res.Determined {
		t.Error("mode must stay undetermined on unrelated failures")
	}

	state := local.LoadState()
	if state.Initialized {
		t.Errorf("persisted state = %+v, want nothing persisted", state)
	}
}

func TestResolve_PersistedLocalModeSkipsProbe(t *testing.T) {
	probeCalled := false
	r, local := newTestReconciler(t, func(ctx context.Context) ([]*todo.Todo, error) {
		probeCalled = true
		return nil, errors.New("should not be called")
	})

	if err := local.SaveState(localstore.StorageState{
		Mode:        localstore.ModeLocal,
		Initialized: true,
	}); err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}

	res, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if probeCalled {
		t.Error("persisted local mode must skip the network probe")
	}
	if !res.Determined || res.Mode != localstore.ModeLocal {
		t.Errorf("Resolve() = %+v, want determined local mode", res)
	}
}

func TestResolve_PersistedDatabaseModeStillProbes(t *testing.T) {
	probeCalled := false
	r, local := newTestReconciler(t, func(ctx context.Context) ([]*todo.Todo, error) {
		probeCalled = true
		return []*todo.Todo{}, nil
	})

	if err := local.SaveState(localstore.StorageState{
		Mode:        localstore.ModeDatabase,
		Initialized: true,
	}); err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if !probeCalled {
		t.Error("database mode must re-probe on startup")
	}
}
