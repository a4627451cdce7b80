// Package todo provides the todo entity and the store contract shared by
// the database and local mirror backends.
package todo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
)

// Todo represents a single todo item.
// Fields are flat with last-write-wins semantics; updated_at is refreshed
// on every mutation and is never earlier than created_at.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Patch is a partial-field update. Nil fields are left unchanged.
// Applying a patch always refreshes UpdatedAt, even when every field is nil.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Empty reports whether the patch carries no field changes.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Validate checks that the todo has valid field values.
func (t *Todo) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if t.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		return fmt.Errorf("updated_at must not be earlier than created_at")
	}
	return nil
}

// ValidateTitle checks a create request's title.
// Empty or whitespace-only titles are rejected as a validation error.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("title is required")
	}
	return nil
}

// Apply merges the patch into the todo and refreshes UpdatedAt.
// A patched title is validated; patching to an empty title is rejected.
func (t *Todo) Apply(p Patch) error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	t.Touch()
	return nil
}

// Touch sets UpdatedAt to the current time.
// UpdatedAt never moves backwards even if the clock does.
func (t *Todo) Touch() {
	now := time.Now().UTC()
	if now.Before(t.UpdatedAt) {
		return
	}
	t.UpdatedAt = now
}

// Pending filters the list to incomplete todos, preserving order.
func Pending(todos []*Todo) []*Todo {
	pending := make([]*Todo, 0, len(todos))
	for _, t := range todos {
		if !t.Completed {
			pending = append(pending, t)
		}
	}
	return pending
}

// Store is the contract both backends implement. Exactly one store owns
// the todo collection at any time; the reconciler decides which.
type Store interface {
	// List returns all todos ordered by created_at descending.
	List(ctx context.Context) ([]*Todo, error)

	// Get returns the todo with the given id, or a NotFound error.
	Get(ctx context.Context, id string) (*Todo, error)

	// Create inserts a new todo with a fresh id and timestamps.
	Create(ctx context.Context, title, description string) (*Todo, error)

	// Update applies a partial patch and returns the updated todo,
	// or a NotFound error when no todo matches.
	Update(ctx context.Context, id string, patch Patch) (*Todo, error)

	// Delete removes the todo and reports whether anything was removed.
	// A missing id is not an error.
	Delete(ctx context.Context, id string) (bool, error)

	// ListPending returns all incomplete todos.
	ListPending(ctx context.Context) ([]*Todo, error)
}
