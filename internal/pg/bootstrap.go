package pg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
)

// CreateTableSQL is the fixed DDL for the todos relation.
// CREATE TABLE IF NOT EXISTS makes every creation strategy naturally
// idempotent; there is no persisted "already tried" flag.
const CreateTableSQL = `
CREATE TABLE IF NOT EXISTS todos (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title TEXT NOT NULL,
	description TEXT,
	completed BOOLEAN DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)`

// attempt is one schema-creation strategy. Strategies are tried in order
// until one succeeds.
type attempt struct {
	name string
	run  func(ctx context.Context) error
}

// EnsureSchema idempotently ensures the todos relation exists.
//
// It probes with a trivial read first. A clean probe (even with zero rows)
// means the schema is present. A missing-relation failure triggers the
// creation strategies in order: stored-procedure RPC, raw DDL, then the
// Supabase-style REST endpoint when one is configured. Any other probe
// failure is logged and treated as non-fatal; a downstream operation will
// fail loudly instead.
func (db *DB) EnsureSchema(ctx context.Context) error {
	err := db.Probe(ctx)
	if err == nil {
		return nil
	}

	if !IsMissingRelation(err) {
		db.logger.Printf("Warning: todos relation probe failed: %v", err)
		return nil
	}

	db.logger.Println("Creating todos relation")
	return runAttempts(ctx, db.creationAttempts())
}

// Migrate runs only the raw DDL strategy. The /migrate endpoint and the
// init CLI use this when the RPC fallback chain is not wanted.
func (db *DB) Migrate(ctx context.Context) error {
	return db.createViaSQL(ctx)
}

// runAttempts tries each strategy in order, returning nil on the first
// success. When every strategy fails, the result is a SchemaError carrying
// the underlying messages.
func runAttempts(ctx context.Context, attempts []attempt) error {
	var failures []string
	var last error

	for _, a := range attempts {
		err := a.run(ctx)
		if err == nil {
			return nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", a.name, err))
		last = err
	}

	return apperr.Schema(last, "all schema creation strategies failed (%s)", strings.Join(failures, "; "))
}

// creationAttempts returns the ordered schema-creation strategies.
func (db *DB) creationAttempts() []attempt {
	attempts := []attempt{
		{name: "rpc", run: db.createViaRPC},
		{name: "sql", run: db.createViaSQL},
	}
	if db.cfg.RestURL != "" {
		attempts = append(attempts, attempt{name: "rest", run: db.createViaREST})
	}
	return attempts
}

// createViaRPC invokes the pre-registered create_todos_table procedure.
func (db *DB) createViaRPC(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "SELECT create_todos_table()"); err != nil {
		return fmt.Errorf("create_todos_table rpc failed: %w", err)
	}
	return nil
}

// createViaSQL executes the raw DDL directly.
func (db *DB) createViaSQL(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, CreateTableSQL); err != nil {
		return fmt.Errorf("raw DDL failed: %w", err)
	}
	return nil
}

// createViaREST posts the create_todos_table RPC to the configured
// Supabase-style REST endpoint.
func (db *DB) createViaREST(ctx context.Context) error {
	url := strings.TrimSuffix(db.cfg.RestURL, "/") + "/rpc/create_todos_table"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("failed to build REST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", db.cfg.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+db.cfg.ServiceKey)

	resp, err := db.client.Do(req)
	if err != nil {
		return fmt.Errorf("REST table creation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("REST table creation returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
