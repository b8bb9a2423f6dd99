package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/example/bugtracker-chat/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opJoin
	opLeave
	opEmitTo
	opEmitRoom
	opEmitAll
)

// op is one queued change or emission. All ops go through a single channel so an
// emission always observes every join and leave queued before it.
type op struct {
	kind   opKind
	client *Client
	connID string
	room   string
	frame  []byte
}

// Hub fans frames out to WebSocket clients and tracks room groups.
// It implements chat.Transport.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[string]struct{} // room -> set of connIDs
	ops     chan op
	done    chan struct{}
	mu      sync.RWMutex
	dropped atomic.Uint64
	logger  types.Logger
}

var _ chat.Transport = (*Hub)(nil)

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]struct{}),
		ops:     make(chan op, 1024),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Run applies queued ops until ctx is cancelled, then closes every client.
// Registrations still queued when done closes are drained and closed too.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down", "clients", h.ClientCount())
			h.closeAllClients()
			close(h.done)
			h.drainPending()
			return
		case o := <-h.ops:
			h.apply(o)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) apply(o op) {
	switch o.kind {
	case opRegister:
		h.handleRegister(o.client)
	case opUnregister:
		h.handleUnregister(o.connID)
	case opJoin:
		h.handleJoin(o.connID, o.room)
	case opLeave:
		h.handleLeave(o.connID, o.room)
	case opEmitTo:
		h.mu.RLock()
		if client, ok := h.clients[o.connID]; ok {
			h.deliver(client, o.frame)
		}
		h.mu.RUnlock()
	case opEmitRoom:
		h.mu.RLock()
		for connID := range h.rooms[o.room] {
			if client, ok := h.clients[connID]; ok {
				h.deliver(client, o.frame)
			}
		}
		h.mu.RUnlock()
	case opEmitAll:
		h.mu.RLock()
		for _, client := range h.clients {
			h.deliver(client, o.frame)
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.closeSend()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]struct{})
}

// drainPending closes clients whose registration was still queued at shutdown.
func (h *Hub) drainPending() {
	for {
		select {
		case o := <-h.ops:
			if o.kind == opRegister {
				o.client.closeSend()
			}
		default:
			return
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.logger.Debug("Client registered", "conn_id", client.ID)
}

func (h *Hub) handleUnregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for room, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.closeSend()
	h.logger.Debug("Client unregistered", "conn_id", connID)
}

func (h *Hub) handleJoin(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]struct{})
	}
	h.rooms[room][connID] = struct{}{}
}

func (h *Hub) handleLeave(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) deliver(client *Client, frame []byte) {
	if !client.enqueue(frame) {
		h.dropped.Add(1)
		h.logger.Warn("Send buffer full, dropping frame", "conn_id", client.ID)
	}
}

func (h *Hub) submit(o op) bool {
	select {
	case h.ops <- o:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal payload", "event", event, "error", err)
		return nil, false
	}
	frame, err := json.Marshal(chat.Frame{Event: event, Data: data})
	if err != nil {
		h.logger.Error("Failed to marshal frame", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}

// Register adds a client to the hub. A client registered after the hub has
// stopped is closed immediately.
func (h *Hub) Register(client *Client) {
	if !h.submit(op{kind: opRegister, client: client}) {
		client.closeSend()
		return
	}
	// Queued after the final drain.
	select {
	case <-h.done:
		client.closeSend()
	default:
	}
}

// Unregister removes a client from the hub and all its rooms, closing its send queue.
func (h *Hub) Unregister(connID string) {
	h.submit(op{kind: opUnregister, connID: connID})
}

// Join adds a connection to a room group.
func (h *Hub) Join(connID, room string) {
	h.submit(op{kind: opJoin, connID: connID, room: room})
}

// Leave removes a connection from a room group.
func (h *Hub) Leave(connID, room string) {
	h.submit(op{kind: opLeave, connID: connID, room: room})
}

// EmitTo sends an event to a single connection.
func (h *Hub) EmitTo(connID, event string, payload any) {
	if frame, ok := h.encode(event, payload); ok {
		h.submit(op{kind: opEmitTo, connID: connID, frame: frame})
	}
}

// EmitRoom sends an event to every member of room.
func (h *Hub) EmitRoom(room, event string, payload any) {
	if frame, ok := h.encode(event, payload); ok {
		h.submit(op{kind: opEmitRoom, room: room, frame: frame})
	}
}

// EmitAll sends an event to every connected client.
func (h *Hub) EmitAll(event string, payload any) {
	if frame, ok := h.encode(event, payload); ok {
		h.submit(op{kind: opEmitAll, frame: frame})
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients in a room.
func (h *Hub) RoomClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Dropped returns the number of frames dropped because a client queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
