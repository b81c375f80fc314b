// Package dashboard serves the local bridge: HTTP endpoints that export and
// import the logbook, and a WebSocket feed announcing every completed
// operation to connected clients.
package dashboard

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

	"github.com/logbookone/logbook/internal/interchange"
	"github.com/logbookone/logbook/internal/portability"
	"github.com/logbookone/logbook/internal/store"
	"github.com/logbookone/logbook/internal/types"
)

// MessageType defines the type of bridge message
type MessageType string

const (
	// MessageTypeStats is sent to each client on connect
	MessageTypeStats MessageType = "stats"

	// MessageTypeExportComplete indicates an export finished
	MessageTypeExportComplete MessageType = "export_complete"

	// MessageTypeImportComplete indicates an import finished
	MessageTypeImportComplete MessageType = "import_complete"

	// MessageTypeOperationFailed indicates an export or import failed
	MessageTypeOperationFailed MessageType = "operation_failed"
)

// Message represents a bridge broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Engine is the part of *portability.Engine the bridge drives.
type Engine interface {
	ExportAsync(ctx context.Context, f interchange.Format, done func(*portability.Artifact, error)) error
	ImportAsync(ctx context.Context, src portability.Source, f interchange.Format, done func(*types.Summary, error)) error
}

// StatsSource reports store counts for the welcome message and /health.
type StatsSource interface {
	Stats(ctx context.Context) (*store.Stats, error)
}

// Server manages HTTP and WebSocket connections and broadcasts messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	engine   Engine
	stats    StatsSource
	maxBytes int64

	// importMu and exportMu serialise requests so they queue instead of
	// colliding in the engine.
	importMu sync.Mutex
	exportMu sync.Mutex

	// WebSocket subscribers
	clients   map[*websocket.Conn]struct{}
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Addr to listen on (default: 127.0.0.1:7420)
	Addr string

	// MaxUploadBytes caps import request bodies (default: 32 MiB)
	MaxUploadBytes int64

	// Stats, if set, supplies store counts
	Stats StatsSource

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:           "127.0.0.1:7420",
		MaxUploadBytes: 32 << 20,
		Logger:         log.Default(),
	}
}

// NewServer creates a bridge server over engine
func NewServer(engine Engine, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      config.Addr,
		engine:    engine,
		stats:     config.Stats,
		maxBytes:  config.MaxUploadBytes,
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("POST /import", s.handleImport)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

// Start begins the HTTP server and broadcast loop
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Bridge listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop closes every subscriber, then shuts the HTTP server down.
func (s *Server) Stop() error {
	s.logger.Println("Stopping bridge")
	s.cancel()

	for _, conn := range s.subscribers() {
		s.dropClient(conn, websocket.StatusGoingAway, "bridge shutting down")
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down bridge: %w", err)
		}
	}

	s.wg.Wait()
	s.logger.Println("Bridge stopped")
	return nil
}

// Broadcast queues msg for every subscriber. A full queue drops the message.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Printf("Dropping %s message, queue full", msg.Type)
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			s.fanOut(msg)
		}
	}
}

// fanOut writes msg to each subscriber and drops the ones that fail.
func (s *Server) fanOut(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("Failed to marshal %s message: %v", msg.Type, err)
		return
	}
	for _, conn := range s.subscribers() {
		if err := send(conn, data); err != nil {
			s.logger.Printf("Dropping subscriber after failed %s write: %v", msg.Type, err)
			s.dropClient(conn, websocket.StatusNormalClosure, "")
		}
	}
}

// send writes one text frame with a bounded wait.
func send(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// handleWebSocket subscribes the caller and greets it with the store counts.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Same-origin only; the bridge is for local tools.
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Printf("Subscriber connected (%d now)", n)

	if welcome, err := newMessage(MessageTypeStats, s.currentStats(r.Context())); err == nil {
		if data, err := json.Marshal(welcome); err == nil {
			_ = send(conn, data)
		}
	}

	go s.readLoop(conn)
}

// readLoop discards client frames until the connection ends.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.dropClient(conn, websocket.StatusNormalClosure, "")
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) subscribers() []*websocket.Conn {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	return conns
}

// dropClient unsubscribes and closes conn. Later calls for the same conn do
// nothing.
func (s *Server) dropClient(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	s.clientsMu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	n := len(s.clients)
	s.clientsMu.Unlock()
	if !ok {
		return
	}
	_ = conn.Close(code, reason)
	s.logger.Printf("Subscriber disconnected (%d now)", n)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.Subscribers(),
		"store":       s.currentStats(r.Context()),
	})
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Logbook Bridge</title>
</head>
<body>
    <h1>Logbook Bridge</h1>
    <p>Export: <code>GET http://%[1]s/export?format=json|csv</code></p>
    <p>Import: <code>POST http://%[1]s/import?format=json|csv</code></p>
    <p>Events: <code>ws://%[1]s/ws</code></p>
    <p>Health check: <a href="/health">/health</a></p>
</body>
</html>`, r.Host)
}

func (s *Server) currentStats(ctx context.Context) *store.Stats {
	if s.stats == nil {
		return nil
	}
	st, err := s.stats.Stats(ctx)
	if err != nil {
		s.logger.Printf("Failed to read store stats: %v", err)
		return nil
	}
	return st
}

// Addr returns the bound address once Start has run, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Subscribers returns the number of connected WebSocket clients.
func (s *Server) Subscribers() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
