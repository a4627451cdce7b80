// Package localstore provides the file-backed mirror store used when the
// database relation is unavailable.
//
// The whole todo collection is serialized as a single JSON blob under one
// file, with a second file holding the persisted storage state. Every
// operation reads the full collection, mutates it in memory, and writes the
// full collection back. A blob that fails to parse is treated as an empty
// collection, not an error; the store silently self-heals at the cost of
// silent data loss.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

const (
	// TodosFile is the blob holding the serialized todo collection.
	TodosFile = "todos.json"

	// StateFile is the blob holding the serialized storage state.
	StateFile = "storage_state.json"
)

// Store is a file-backed todo store. All operations are serialized by a
// single mutex; the collection is small enough that full rewrites are
// in-memory-speed.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a local store rooted at dir, creating dir if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// TodosPath returns the path of the todo blob file.
func (s *Store) TodosPath() string {
	return filepath.Join(s.dir, TodosFile)
}

// load reads the full collection. Missing or unparseable blobs yield an
// empty collection.
func (s *Store) load() []*todo.Todo {
	data, err := os.ReadFile(s.TodosPath())
	if err != nil {
		return []*todo.Todo{}
	}

	var todos []*todo.Todo
	if err := json.Unmarshal(data, &todos); err != nil {
		return []*todo.Todo{}
	}
	if todos == nil {
		todos = []*todo.Todo{}
	}
	return todos
}

// save writes the full collection back to the blob file.
func (s *Store) save(todos []*todo.Todo) error {
	data, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal todos: %w", err)
	}
	if err := os.WriteFile(s.TodosPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write todos blob: %w", err)
	}
	return nil
}

// List returns all todos, newest first (insertion order).
func (s *Store) List(ctx context.Context) ([]*todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Get returns the todo with the given id.
func (s *Store) Get(ctx context.Context, id string) (*todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.load() {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperr.NotFound("todo %s not found", id)
}

// Create inserts a new todo at the front of the collection.
// The id and both timestamps are generated here; completed defaults to false.
func (s *Store) Create(ctx context.Context, title, description string) (*todo.Todo, error) {
	if err := todo.ValidateTitle(title); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	t := &todo.Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	todos := append([]*todo.Todo{t}, s.load()...)
	if err := s.save(todos); err != nil {
		return nil, apperr.Store(err, "create todo")
	}
	return t, nil
}

// Update merges the patch into the matching todo and refreshes updated_at.
func (s *Store) Update(ctx context.Context, id string, patch todo.Patch) (*todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos := s.load()
	for i, t := range todos {
		if t.ID != id {
			continue
		}

		updated := *t
		if err := updated.Apply(patch); err != nil {
			return nil, err
		}
		todos[i] = &updated

		if err := s.save(todos); err != nil {
			return nil, apperr.Store(err, "update todo %s", id)
		}
		return &updated, nil
	}
	return nil, apperr.NotFound("todo %s not found", id)
}

// Delete filters the id out of the collection and reports whether anything
// was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos := s.load()
	filtered := todos[:0:0]
	for _, t := range todos {
		if t.ID != id {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == len(todos) {
		return false, nil
	}

	if err := s.save(filtered); err != nil {
		return false, apperr.Store(err, "delete todo %s", id)
	}
	return true, nil
}

// ListPending returns all incomplete todos, preserving order.
func (s *Store) ListPending(ctx context.Context) ([]*todo.Todo, error) {
	todos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return todo.Pending(todos), nil
}
