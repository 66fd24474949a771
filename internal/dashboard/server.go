// Package dashboard provides a real-time view of the group's checklist.
//
// The server broadcasts cell toggles, sync status changes, and merge
// completions to connected WebSocket clients, and serves a JSON progress
// summary for anything that prefers polling.
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

	"github.com/afitree-ship-it/deentracker/internal/checklist"
	"github.com/afitree-ship-it/deentracker/internal/core"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeCellUpdate indicates a checklist cell was toggled
	MessageTypeCellUpdate MessageType = "cell_update"

	// MessageTypeStatusChange indicates the sync status moved
	MessageTypeStatusChange MessageType = "status_change"

	// MessageTypeSnapshotMerged indicates a remote snapshot was reconciled in
	MessageTypeSnapshotMerged MessageType = "snapshot_merged"

	// MessageTypeProgress indicates updated per-member progress
	MessageTypeProgress MessageType = "progress"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// CellUpdateData contains a single toggle
type CellUpdateData struct {
	Date     string `json:"date"`
	MemberID string `json:"member_id"`
	TaskID   string `json:"task_id"`
	Value    bool   `json:"value"`
}

// StatusChangeData contains the new sync status
type StatusChangeData struct {
	Status    string `json:"status"`
	LastError string `json:"last_error,omitempty"`
	Pending   int    `json:"pending"`
}

// MemberProgress is one member's standing for a date
type MemberProgress struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
}

// ProgressData is the group view for a date
type ProgressData struct {
	Date    string           `json:"date"`
	Members []MemberProgress `json:"members"`
	Status  string           `json:"status"`
	Pending int              `json:"pending"`
}

// Server manages WebSocket connections and broadcasts checklist events
type Server struct {
	addr     string
	engine   *core.Core
	roster   *checklist.Roster
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Addr to listen on (default: ":8422")
	Addr string

	// Logger for server activity (default: log.Default())
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:   ":8422",
		Logger: log.Default(),
	}
}

// NewServer creates a dashboard server over an engine and roster.
func NewServer(engine *core.Core, roster *checklist.Roster, config *Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if roster == nil {
		return nil, fmt.Errorf("roster cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Addr == "" {
		config.Addr = ":8422"
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      config.Addr,
		engine:    engine,
		roster:    roster,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}, nil
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/progress", s.handleProgress)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Dashboard server error: %v", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, useful when Addr was ":0".
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard shutdown error: %w", err)
	}

	s.wg.Wait()
	return nil
}

// Broadcast sends a message to all connected clients. Never blocks: if the
// channel is full the message is dropped.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

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

			// Send outside the read lock so a slow client cannot stall
			// registration.
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

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

	// Send the current group view so the client can render immediately.
	if data, err := json.Marshal(s.progressData(checklist.Today())); err == nil {
		msg := Message{Type: MessageTypeProgress, Timestamp: time.Now(), Data: data}
		if payload, err := json.Marshal(msg); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = conn.Write(ctx, websocket.MessageText, payload)
			cancel()
		}
	}

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and detects disconnects. Client
// messages are ignored.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

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

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": clientCount,
		"sync":    string(s.engine.Status()),
		"pending": s.engine.PendingCount(),
	})
}

// handleProgress serves the group view for a date (?date=YYYY-MM-DD,
// default today).
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = checklist.Today()
	}
	if !checklist.ValidDate(date) {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.progressData(date))
}

func (s *Server) progressData(date string) ProgressData {
	snap := s.engine.Snapshot()
	total := len(s.roster.Tasks)

	members := make([]MemberProgress, 0, len(s.roster.Members))
	for _, m := range s.roster.Members {
		members = append(members, MemberProgress{
			MemberID: m.ID,
			Name:     m.Name,
			Avatar:   m.Avatar,
			Done:     snap.CountForMember(date, m.ID),
			Total:    total,
		})
	}

	return ProgressData{
		Date:    date,
		Members: members,
		Status:  string(s.engine.Status()),
		Pending: s.engine.PendingCount(),
	}
}
