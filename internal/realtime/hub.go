// Package realtime pushes pipeline status changes to websocket subscribers.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 32
)

// StatusEvent is the message pushed for every pipeline state change.
type StatusEvent struct {
	FileID           string            `json:"fileId"`
	TranscriptStatus enrichment.Status `json:"transcriptStatus"`
	AnalysisStatus   enrichment.Status `json:"analysisStatus"`
	Overall          enrichment.Status `json:"overall"`
}

func EventFromStatus(ps *enrichment.ProcessingStatus) StatusEvent {
	return StatusEvent{
		FileID:           ps.FileID,
		TranscriptStatus: ps.TranscriptStatus,
		AnalysisStatus:   ps.AnalysisStatus,
		Overall:          ps.Overall,
	}
}

type connection struct {
	fileID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans status events out to the connections watching each file.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*connection]struct{}
	log  *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*connection]struct{}),
		log:  log.With("component", "StatusHub"),
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.fileID]
	if !ok {
		set = make(map[*connection]struct{})
		h.subs[c.fileID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.fileID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.subs, c.fileID)
	}
}

// Subscribers reports how many connections watch fileID.
func (h *Hub) Subscribers(fileID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[fileID])
}

// Publish delivers a status snapshot to the file's subscribers. Slow
// clients miss events rather than block the pipeline.
func (h *Hub) Publish(ps *enrichment.ProcessingStatus) {
	if ps == nil {
		return
	}
	data, err := json.Marshal(EventFromStatus(ps))
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[ps.FileID] {
		select {
		case c.send <- data:
		default:
			h.log.Debug("dropping status event for slow client", "file_id", ps.FileID)
		}
	}
}

// serve runs the connection until the client goes away. initial, when
// non-nil, is sent before any published event.
func (h *Hub) serve(conn *websocket.Conn, fileID string, initial []byte) {
	c := &connection{
		fileID: fileID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	if initial != nil {
		c.send <- initial
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only services control frames; clients do not send commands.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
