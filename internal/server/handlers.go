package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
	"github.com/Prajwal99452/todo-summary/internal/localstore"
	"github.com/Prajwal99452/todo-summary/internal/pg"
	"github.com/Prajwal99452/todo-summary/internal/summary"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

// handleListTodos returns all todos in the active store, newest first.
func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	store, err := s.activeStore()
	if err != nil {
		writeError(w, err)
		return
	}

	todos, err := store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

type createTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleCreateTodo creates a todo from a title and optional description.
func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	store, err := s.activeStore()
	if err != nil {
		writeError(w, err)
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	t, err := store.Create(r.Context(), req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	s.broadcastTodoUpdate(TodoUpdateData{TodoID: t.ID, Action: "created", Title: t.Title, Completed: t.Completed})
	writeJSON(w, http.StatusCreated, t)
}

// handleGetTodo returns a single todo by ID.
func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	store, err := s.activeStore()
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTodo applies a partial update to a todo.
func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	store, err := s.activeStore()
	if err != nil {
		writeError(w, err)
		return
	}

	var patch todo.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	t, err := store.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}

	s.broadcastTodoUpdate(TodoUpdateData{TodoID: t.ID, Action: "updated", Title: t.Title, Completed: t.Completed})
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTodo removes a todo. Deleting an absent ID is not an error;
// the response reports success either way.
func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	store, err := s.activeStore()
	if err != nil {
		writeError(w, err)
		return
	}

	id := r.PathValue("id")
	removed, err := store.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if removed {
		s.broadcastTodoUpdate(TodoUpdateData{TodoID: id, Action: "deleted"})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type summarizeRequest struct {
	WebhookURL string `json:"webhookUrl"`

	// Todos is the inline collection. A pointer distinguishes an explicitly
	// supplied (possibly empty) list from an absent field.
	Todos *[]*todo.Todo `json:"todos"`
}

// handleSummarize runs the summarize-and-notify pipeline.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	dreq := summary.Request{WebhookURL: req.WebhookURL}
	if req.Todos != nil {
		dreq.Todos = *req.Todos
		dreq.HasInline = true
	}

	res, err := s.dispatcher.Dispatch(r.Context(), dreq)
	if err != nil {
		writeError(w, err)
		return
	}

	if res.NothingToDo {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":   "No pending todos to summarize",
			"todoCount": 0,
		})
		return
	}

	payload, err := json.Marshal(SummarySentData{TodoCount: res.TodoCount})
	if err == nil {
		s.Broadcast(Message{Type: MessageTypeSummarySent, Timestamp: time.Now(), Data: payload})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Summary sent to Slack",
		"summary":   res.Summary,
		"todoCount": res.TodoCount,
	})
}

// envPresence reports which credentials are configured, without revealing
// their values.
type envPresence struct {
	DatabaseURL     bool `json:"databaseUrl"`
	AnthropicAPIKey bool `json:"anthropicApiKey"`
	SlackWebhookURL bool `json:"slackWebhookUrl"`
}

// healthResponse is the health check payload.
type healthResponse struct {
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	Error     string       `json:"error,omitempty"`
	Mode      string       `json:"mode,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
	Env       *envPresence `json:"env,omitempty"`
}

// handleHealth probes the database and reports configuration presence.
// A missing schema or an unreachable database is a 500, even while the
// local mirror keeps the service itself usable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	env := &envPresence{
		DatabaseURL:     s.app.DatabaseURL != "",
		AnthropicAPIKey: s.app.AnthropicAPIKey != "",
		SlackWebhookURL: s.app.SlackWebhookURL != "",
	}
	mode, determined := s.Mode()

	healthy := func() {
		resp := healthResponse{
			Status:    "ok",
			Message:   "API is healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Env:       env,
		}
		if determined {
			resp.Mode = string(mode)
		}
		writeJSON(w, http.StatusOK, resp)
	}

	if s.db == nil {
		if determined && mode == localstore.ModeLocal {
			healthy()
			return
		}
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:  "error",
			Message: "Database connection failed",
			Error:   "database URL is not configured",
			Env:     env,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Best-effort schema init, mirroring cold-start behavior
	if err := s.db.EnsureSchema(ctx); err != nil {
		s.logger.Printf("Warning: schema initialization: %v", err)
	}

	switch err := s.db.Probe(ctx); {
	case err == nil:
		healthy()
	case pg.IsMissingRelation(err):
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:  "error",
			Message: "Database schema not initialized",
			Error:   err.Error(),
			Env:     env,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:  "error",
			Message: "Database connection failed",
			Error:   err.Error(),
			Env:     env,
		})
	}
}

// handleInit runs the tiered schema bootstrap and re-resolves the storage
// mode if it was left undetermined at startup.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.db == nil {
		writeError(w, apperr.Configuration("database URL is not configured"))
		return
	}

	if err := s.db.EnsureSchema(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	// A session that started without an authoritative store can now retry.
	s.resolveMode(r.Context())

	resp := map[string]any{"message": "Schema is ready"}
	if mode, determined := s.Mode(); determined {
		resp["mode"] = string(mode)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMigrate runs only the raw DDL strategy, skipping the RPC and REST
// fallbacks.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.db == nil {
		writeError(w, apperr.Configuration("database URL is not configured"))
		return
	}

	if err := s.db.Migrate(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	s.resolveMode(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Migration complete"})
}
