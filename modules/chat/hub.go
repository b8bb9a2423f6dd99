package chat

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/bugtracker-chat/domain/chat"
	"github.com/example/bugtracker-chat/events"
	"github.com/go-monolith/mono/pkg/types"
)

// ErrHubStopped is returned when work is submitted to a hub that is no longer running.
var ErrHubStopped = errors.New("chat hub stopped")

const defaultInboxSize = 1024

// Notifier receives domain notifications after the hub has applied an event.
type Notifier interface {
	UserJoined(event events.UserJoinedEvent)
	RoomJoined(event events.RoomJoinedEvent)
	MessageSent(event events.MessageSentEvent)
	UserLeft(event events.UserLeftEvent)
}

type handlerFunc func(ev Event)

// Stats is a point-in-time view of the hub state.
type Stats struct {
	Connections     int    `json:"connections"`
	NamedUsers      int    `json:"named_users"`
	Rooms           int    `json:"rooms"`
	EventsProcessed uint64 `json:"events_processed"`
}

// Hub coordinates chat state. All state is owned by the goroutine running Run:
// events and queries are closures on a single FIFO inbox, and each one runs to
// completion before the next starts.
type Hub struct {
	registry  *Registry
	store     *Store
	typing    map[string]map[string]struct{} // room -> connIDs currently typing
	transport Transport
	notifier  Notifier
	logger    types.Logger
	handlers  map[EventKind]handlerFunc
	now       func() time.Time

	inbox     chan func()
	done      chan struct{}
	lastID    int64
	processed uint64
}

// Option configures a Hub.
type Option func(*Hub)

// WithNotifier sets the receiver of domain notifications.
func WithNotifier(n Notifier) Option {
	return func(h *Hub) { h.notifier = n }
}

// WithClock overrides the time source used for message ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithMaxHistory overrides the per-room history bound.
func WithMaxHistory(n int) Option {
	return func(h *Hub) { h.store = NewStore(n) }
}

// NewHub creates a Hub emitting through transport.
func NewHub(transport Transport, logger types.Logger, opts ...Option) *Hub {
	h := &Hub{
		registry:  NewRegistry(),
		store:     NewStore(domain.MaxRoomHistory),
		typing:    make(map[string]map[string]struct{}),
		transport: transport,
		logger:    logger,
		now:       time.Now,
		inbox:     make(chan func(), defaultInboxSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.handlers = map[EventKind]handlerFunc{
		EventConnect:     h.onConnect,
		EventUserJoin:    h.onUserJoin,
		EventJoinRoom:    h.onJoinRoom,
		EventLeaveRoom:   h.onLeaveRoom,
		EventSendMessage: h.onSendMessage,
		EventTyping:      h.onTyping,
		EventDisconnect:  h.onDisconnect,
	}
	return h
}

// Run processes the inbox until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.logger.Info("Chat hub running")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Chat hub stopped", "events_processed", h.processed)
			return
		case fn := <-h.inbox:
			h.safeRun(fn)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered panic in chat hub", "panic", r)
		}
	}()
	fn()
}

// Dispatch queues ev for processing.
func (h *Hub) Dispatch(ctx context.Context, ev Event) error {
	return h.submit(ctx, func() { h.handle(ev) })
}

// Connect queues the connection-open event for connID.
func (h *Hub) Connect(ctx context.Context, connID string) error {
	return h.Dispatch(ctx, Event{Kind: EventConnect, ConnID: connID})
}

// Disconnect queues the connection-close event for connID.
func (h *Hub) Disconnect(ctx context.Context, connID string) error {
	return h.Dispatch(ctx, Event{Kind: EventDisconnect, ConnID: connID})
}

// Recent returns the history of room as seen after every previously queued event.
func (h *Hub) Recent(ctx context.Context, room string) ([]domain.Message, error) {
	var out []domain.Message
	err := h.query(ctx, func() { out = h.store.Recent(room) })
	return out, err
}

// Rooms lists the known rooms with their history sizes.
func (h *Hub) Rooms(ctx context.Context) ([]domain.RoomSummary, error) {
	var out []domain.RoomSummary
	err := h.query(ctx, func() { out = h.store.Rooms() })
	return out, err
}

// Stats returns counters describing the hub state.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := h.query(ctx, func() {
		out = Stats{
			Connections:     h.registry.Len(),
			NamedUsers:      h.registry.NamedLen(),
			Rooms:           len(h.store.rooms),
			EventsProcessed: h.processed,
		}
	})
	return out, err
}

func (h *Hub) submit(ctx context.Context, fn func()) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.inbox <- fn:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := h.submit(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handle runs the handler registered for ev.Kind. Must only be called from Run.
func (h *Hub) handle(ev Event) {
	h.processed++
	handler, ok := h.handlers[ev.Kind]
	if !ok {
		h.logger.Warn("Unknown chat event", "kind", ev.Kind, "conn_id", ev.ConnID)
		h.reject(ev.ConnID, "Unknown event: "+string(ev.Kind))
		return
	}
	handler(ev)
}

// nextMessageID returns the epoch-millisecond id for a message accepted at now,
// never smaller than the previous id.
func (h *Hub) nextMessageID(now time.Time) int64 {
	id := now.UnixMilli()
	if id < h.lastID {
		id = h.lastID
	}
	h.lastID = id
	return id
}

func (h *Hub) reject(connID, message string) {
	h.transport.EmitTo(connID, ServerError, ErrorPayload{Message: message})
}
