// Package pg provides the Postgres persistent store for todo-summary.
//
// The store wraps database/sql over the pgx stdlib driver and exposes CRUD
// over a single todos relation:
//
//	todos(id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	      title TEXT NOT NULL,
//	      description TEXT,
//	      completed BOOLEAN DEFAULT FALSE,
//	      created_at TIMESTAMPTZ DEFAULT NOW(),
//	      updated_at TIMESTAMPTZ DEFAULT NOW())
//
// Schema creation is handled by EnsureSchema (see bootstrap.go), which is
// safe to call on every cold start.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

// Config holds store configuration.
type Config struct {
	// DSN is the Postgres connection URL.
	DSN string

	// RestURL is an optional Supabase-style REST endpoint used as the last
	// schema-creation fallback. Empty disables the REST strategy.
	RestURL string

	// ServiceKey authenticates REST fallback requests.
	ServiceKey string

	// Logger for store activity (default: stderr logger).
	Logger *log.Logger
}

// DB wraps the Postgres connection with todo-specific functionality.
type DB struct {
	conn   *sql.DB
	cfg    Config
	client *http.Client
	logger *log.Logger
}

// Open creates a new database connection using the pgx stdlib driver.
//
// The caller MUST call Close() when done to ensure proper cleanup.
func Open(cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, apperr.Configuration("database URL is not configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[pg] ", log.LstdFlags)
	}

	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		conn:   conn,
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: cfg.Logger,
	}, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// Probe runs a trivial read against the todos relation.
// A nil return means the relation exists (even with zero rows).
func (db *DB) Probe(ctx context.Context) error {
	var id string
	err := db.conn.QueryRowContext(ctx, "SELECT id FROM todos LIMIT 1").Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}

const todoColumns = "id, title, description, completed, created_at, updated_at"

// List returns all todos ordered by created_at descending.
func (db *DB) List(ctx context.Context) ([]*todo.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos ORDER BY created_at DESC"

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Store(err, "failed to list todos")
	}
	defer rows.Close()

	return scanTodos(rows)
}

// ListPending returns all incomplete todos, newest first.
func (db *DB) ListPending(ctx context.Context) ([]*todo.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE completed = FALSE ORDER BY created_at DESC"

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Store(err, "failed to list pending todos")
	}
	defer rows.Close()

	return scanTodos(rows)
}

// Get retrieves a single todo by id.
func (db *DB) Get(ctx context.Context, id string) (*todo.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE id = $1"

	t, err := scanTodo(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("todo %s not found", id)
	}
	if err != nil {
		return nil, apperr.Store(err, "failed to get todo %s", id)
	}
	return t, nil
}

// Create inserts a new todo. The id and both timestamps are assigned by the
// relation's default expressions.
func (db *DB) Create(ctx context.Context, title, description string) (*todo.Todo, error) {
	if err := todo.ValidateTitle(title); err != nil {
		return nil, err
	}

	query := `
	INSERT INTO todos (title, description)
	VALUES ($1, $2)
	RETURNING ` + todoColumns

	t, err := scanTodo(db.conn.QueryRowContext(ctx, query, title, toNullString(description)))
	if err != nil {
		return nil, apperr.Store(err, "failed to create todo")
	}
	return t, nil
}

// Update applies a partial patch. The updated_at stamp is always refreshed,
// even for an empty patch.
func (db *DB) Update(ctx context.Context, id string, patch todo.Patch) (*todo.Todo, error) {
	if patch.Title != nil {
		if err := todo.ValidateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}

	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, toNullString(*patch.Description))
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.Completed != nil {
		args = append(args, *patch.Completed)
		sets = append(sets, fmt.Sprintf("completed = $%d", len(args)))
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE todos SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), todoColumns,
	)

	t, err := scanTodo(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("todo %s not found", id)
	}
	if err != nil {
		return nil, apperr.Store(err, "failed to update todo %s", id)
	}
	return t, nil
}

// Delete removes a todo and reports whether a row was deleted.
// A missing id is not an error.
func (db *DB) Delete(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM todos WHERE id = $1", id)
	if err != nil {
		return false, apperr.Store(err, "failed to delete todo %s", id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Store(err, "failed to delete todo %s", id)
	}
	return affected > 0, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanning helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTodo scans a single todo row.
func scanTodo(row rowScanner) (*todo.Todo, error) {
	var t todo.Todo
	var description sql.NullString

	err := row.Scan(
		&t.ID,
		&t.Title,
		&description,
		&t.Completed,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	return &t, nil
}

// scanTodos scans multiple todos from query results.
func scanTodos(rows *sql.Rows) ([]*todo.Todo, error) {
	todos := []*todo.Todo{}

	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, apperr.Store(err, "failed to scan todo")
		}
		todos = append(todos, t)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Store(err, "error iterating todos")
	}
	return todos, nil
}

// toNullString converts an empty description to SQL NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
