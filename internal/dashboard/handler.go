package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/core"
)

// Handler subscribes to engine events and forwards them as dashboard
// messages. It satisfies core.Listener.
type Handler struct {
	server *Server
	engine *core.Core
	logger *log.Logger
}

// NewHandler creates an event handler and subscribes it to the engine.
func NewHandler(server *Server, engine *core.Core, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	h := &Handler{
		server: server,
		engine: engine,
		logger: logger,
	}
	engine.Subscribe(h)
	return h
}

// CellChanged forwards a toggle to connected clients.
func (h *Handler) CellChanged(date, memberID, taskID string, value bool) {
	data, err := json.Marshal(CellUpdateData{
		Date:     date,
		MemberID: memberID,
		TaskID:   taskID,
		Value:    value,
	})
	if err != nil {
		h.logger.Printf("Failed to marshal cell update: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeCellUpdate,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// StatusChanged forwards a sync status transition.
func (h *Handler) StatusChanged(status core.Status) {
	data, err := json.Marshal(StatusChangeData{
		Status:    string(status),
		LastError: h.engine.LastError(),
		Pending:   h.engine.PendingCount(),
	})
	if err != nil {
		h.logger.Printf("Failed to marshal status change: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStatusChange,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// SnapshotMerged tells clients to refetch their view: a merge can change any
// number of cells at once, so no per-cell deltas are sent.
func (h *Handler) SnapshotMerged() {
	h.server.Broadcast(Message{
		Type:      MessageTypeSnapshotMerged,
		Timestamp: time.Now(),
	})
}
