// Package server provides the HTTP resource API for todo-summary.
//
// The server exposes CRUD over the todos resource, the summarize-and-notify
// endpoint, schema bootstrap endpoints, and a WebSocket channel that
// broadcasts todo mutations to connected clients.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Prajwal99452/todo-summary/internal/apperr"
	"github.com/Prajwal99452/todo-summary/internal/config"
	"github.com/Prajwal99452/todo-summary/internal/localstore"
	"github.com/Prajwal99452/todo-summary/internal/pg"
	"github.com/Prajwal99452/todo-summary/internal/reconcile"
	"github.com/Prajwal99452/todo-summary/internal/summary"
	"github.com/Prajwal99452/todo-summary/internal/todo"
)

// Config holds server configuration.
type Config struct {
	// Port to listen on (0 picks a random available port).
	Port int

	// Logger for server activity (default: stderr logger).
	Logger *log.Logger

	// DB is the Postgres store; nil when no database URL is configured.
	DB *pg.DB

	// Local is the file-backed mirror store. Required.
	Local *localstore.Store

	// Generator produces summaries; nil when no API key is configured.
	Generator summary.Generator

	// App carries the loaded configuration, used by the health endpoint
	// to report which environment settings are present.
	App *config.Config

	// WatchLocal enables the fsnotify watcher on the mirror blob so
	// out-of-band edits are rebroadcast while local mode is active.
	WatchLocal bool
}

// Server manages the HTTP API, the storage-mode decision, and WebSocket
// broadcasts.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	db         *pg.DB
	local      *localstore.Store
	reconciler *reconcile.Reconciler
	dispatcher *summary.Dispatcher
	app        *config.Config
	watchLocal bool
	watcher    *localstore.Watcher

	// Storage-mode state, written by resolveMode and read by handlers.
	modeMu     sync.RWMutex
	mode       localstore.Mode
	determined bool
	modeErr    error

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewServer creates a new API server.
func NewServer(cfg *Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[server] ", log.LstdFlags)
	}
	if cfg.App == nil {
		cfg.App = &config.Config{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:       fmt.Sprintf(":%d", cfg.Port),
		db:         cfg.DB,
		local:      cfg.Local,
		app:        cfg.App,
		watchLocal: cfg.WatchLocal,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Message, 100),
		ctx:        ctx,
		cancel:     cancel,
		logger:     cfg.Logger,
	}

	s.reconciler = reconcile.New(cfg.Local, s.probeDatabase, cfg.Logger)
	s.dispatcher = summary.New(cfg.Generator, s.activePending, cfg.Logger)

	return s
}

// probeDatabase is the reconciler's probe: a List against the Postgres
// store. Without a configured database the probe fails with a
// configuration error, which the reconciler treats as undetermined.
func (s *Server) probeDatabase(ctx context.Context) ([]*todo.Todo, error) {
	if s.db == nil {
		return nil, apperr.Configuration("database URL is not configured")
	}
	return s.db.List(ctx)
}

// resolveMode runs one reconciliation pass and records the outcome.
// Safe to call again as the manual retry affordance; the mode is only
// re-resolved while it is still undetermined.
func (s *Server) resolveMode(ctx context.Context) {
	s.modeMu.Lock()
	if s.determined {
		s.modeMu.Unlock()
		return
	}
	s.modeMu.Unlock()

	res, err := s.reconciler.Resolve(ctx)

	s.modeMu.Lock()
	defer s.modeMu.Unlock()

	if err != nil && (res == nil || !res.Determined) {
		s.determined = false
		s.modeErr = err
		return
	}

	s.determined = true
	s.mode = res.Mode
	s.modeErr = nil

	s.broadcastStorageMode(res.Mode, res.Warning)
	if res.Mode == localstore.ModeLocal && s.watchLocal {
		s.startLocalWatcher()
	}
}

// activeStore returns the store that owns the collection this session.
func (s *Server) activeStore() (todo.Store, error) {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()

	if !s.determined {
		if s.modeErr != nil {
			return nil, apperr.Store(s.modeErr, "storage mode is undetermined")
		}
		return nil, apperr.New(apperr.CodeStore, "storage mode is undetermined")
	}
	if s.mode == localstore.ModeLocal {
		return s.local, nil
	}
	return s.db, nil
}

// activePending lists the incomplete todos from the active store; it backs
// the summary dispatcher when no inline collection is supplied.
func (s *Server) activePending(ctx context.Context) ([]*todo.Todo, error) {
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	return store.ListPending(ctx)
}

// Mode returns the resolved storage mode and whether it is determined.
func (s *Server) Mode() (localstore.Mode, bool) {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	return s.mode, s.determined
}

// Start resolves the storage mode and begins serving HTTP.
func (s *Server) Start() error {
	s.resolveMode(s.ctx)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("GET /todos", s.handleListTodos)
	mux.HandleFunc("POST /todos", s.handleCreateTodo)
	mux.HandleFunc("GET /todos/{id}", s.handleGetTodo)
	mux.HandleFunc("PATCH /todos/{id}", s.handleUpdateTodo)
	mux.HandleFunc("DELETE /todos/{id}", s.handleDeleteTodo)
	mux.HandleFunc("POST /summarize", s.handleSummarize)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/init", s.handleInit)
	mux.HandleFunc("/migrate", s.handleMigrate)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("API server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.logger.Println("Stopping API server")

	s.cancel()

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Printf("Warning: failed to stop local watcher: %v", err)
		}
	}

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("API server stopped")
	return nil
}

// GetAddr returns the server's listening address.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcast sends a message to all connected clients.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop fans messages out to every connected client.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send outside the read lock to avoid blocking broadcasts
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// startLocalWatcher begins rebroadcasting out-of-band blob edits.
func (s *Server) startLocalWatcher() {
	if s.watcher != nil {
		return
	}

	watcher, err := localstore.NewWatcher(s.local.Dir())
	if err != nil {
		s.logger.Printf("Warning: failed to create local watcher: %v", err)
		return
	}
	if err := watcher.Start(); err != nil {
		s.logger.Printf("Warning: failed to start local watcher: %v", err)
		return
	}
	s.watcher = watcher

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case ev, ok := <-watcher.Events():
				if !ok {
					return
				}
				s.logger.Printf("Local blob %s (%s)", ev.Op, ev.Path)
				s.broadcastTodoUpdate(TodoUpdateData{Action: "reloaded"})
			case err, ok := <-watcher.Errors():
				if !ok {
					return
				}
				s.logger.Printf("Local watcher error: %v", err)
			}
		}
	}()
}

// broadcastTodoUpdate formats and broadcasts a todo change.
func (s *Server) broadcastTodoUpdate(data TodoUpdateData) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("Failed to marshal todo update: %v", err)
		return
	}
	s.Broadcast(Message{Type: MessageTypeTodoUpdate, Timestamp: time.Now(), Data: payload})
}

// broadcastStorageMode announces the resolved storage mode.
func (s *Server) broadcastStorageMode(mode localstore.Mode, warning string) {
	payload, err := json.Marshal(StorageModeData{Mode: string(mode), Warning: warning})
	if err != nil {
		return
	}
	s.Broadcast(Message{Type: MessageTypeStorageMode, Timestamp: time.Now(), Data: payload})
}

// handleWebSocket upgrades HTTP connections to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	// Announce the current storage mode to the new client
	mode, determined := s.Mode()
	if determined {
		payload, _ := json.Marshal(StorageModeData{Mode: string(mode)})
		welcome := Message{Type: MessageTypeStorageMode, Timestamp: time.Now(), Data: payload}
		data, _ := json.Marshal(welcome)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = conn.Write(ctx, websocket.MessageText, data)
		cancel()
	}

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and handles client disconnects.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		// Client messages are not processed; the channel is one-way.
	}
}

// removeClient safely removes a client connection.
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleRoot returns basic server information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Todo Summary</title>
</head>
<body>
    <h1>Todo Summary API</h1>
    <p>Todos: <code>/todos</code></p>
    <p>Summarize: <code>POST /summarize</code></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Live updates: <code>ws://%s/ws</code></p>
</body>
</html>`, r.Host)
}
