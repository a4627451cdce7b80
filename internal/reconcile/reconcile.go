// Package reconcile decides which backing store is authoritative for the
// current session.
//
// The reconciler is a two-state machine (database active, local mirror
// active) with a one-directional transition per session: database to local
// on detecting a missing todos relation. There is no automatic reverse
// transition; an operator clears the persisted state (or fixes the schema)
// and restarts to attempt database mode again.
package reconcile

import (
	"context"
	"log"
	"os"

	"github.com/Prajwal99452/todo-summary/internal/localstore"
	"github.com/Prajwal99452/todo-summary/internal/pg"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

// Probe runs a List against the primary store.
type Probe func(ctx context.Context) ([]*todo.Todo, error)

// Reconciler resolves the active storage mode at startup.
type Reconciler struct {
	local  *localstore.Store
	probe  Probe
	logger *log.Logger
}

// Result is the outcome of a reconciliation pass.
type Result struct {
	// Mode is the resolved storage mode. Only meaningful when Determined.
	Mode localstore.Mode

	// Determined is false when the probe failed for a reason other than a
	// missing relation; the session has no authoritative store and the
	// caller should surface a recoverable error with a retry affordance.
	Determined bool

	// Todos is the initial collection loaded from the active store.
	Todos []*todo.Todo

	// Warning carries the non-blocking fallback notice, set only when the
	// mode switched to the local mirror during this pass.
	Warning string
}

// New creates a reconciler over the local mirror store and a probe against
// the primary store.
func New(local *localstore.Store, probe Probe, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}
	return &Reconciler{local: local, probe: probe, logger: logger}
}

// Resolve decides the storage mode for this session.
//
// A persisted local-mode decision short-circuits the network probe
// entirely. Otherwise the primary store is probed with a List: success
// locks in database mode, a missing-relation failure locks in local mode
// with a warning, and any other failure leaves the mode undetermined with
// nothing persisted.
func (r *Reconciler) Resolve(ctx context.Context) (*Result, error) {
	state := r.local.LoadState()
	if state.Initialized && state.Mode == localstore.ModeLocal {
		todos, err := r.local.List(ctx)
		if err != nil {
			return nil, err
		}
		r.logger.Println("Using local mirror store (persisted decision)")
		return &Result{Mode: localstore.ModeLocal, Determined: true, Todos: todos}, nil
	}

	todos, err := r.probe(ctx)
	if err == nil {
		if err := r.local.SaveState(localstore.StorageState{
			Mode:        localstore.ModeDatabase,
			Initialized: true,
		}); err != nil {
			r.logger.Printf("Warning: failed to persist storage state: %v", err)
		}
		r.logger.Println("Using database store")
		return &Result{Mode: localstore.ModeDatabase, Determined: true, Todos: todos}, nil
	}

	if pg.IsMissingRelation(err) {
		if err := r.local.SaveState(localstore.StorageState{
			Mode:        localstore.ModeLocal,
			Initialized: true,
		}); err != nil {
			r.logger.Printf("Warning: failed to persist storage state: %v", err)
		}

		localTodos, lerr := r.local.List(ctx)
		if lerr != nil {
			return nil, lerr
		}
		r.logger.Println("Database table not found, switching to local mirror store")
		return &Result{
			Mode:       localstore.ModeLocal,
			Determined: true,
			Todos:      localTodos,
			Warning:    "Database table not found. Todos will be stored in the local mirror.",
		}, nil
	}

	// Any other failure: leave the mode undetermined for this session and
	// persist nothing. Re-running Resolve is the retry affordance.
	r.logger.Printf("Storage probe failed: %v", err)
	return &Result{Determined: false}, err
}
