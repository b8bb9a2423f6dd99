package chat

import "encoding/json"

// Transport is the push-messaging substrate the Hub emits through.
// Implementations must not block the caller for longer than it takes to enqueue.
type Transport interface {
	EmitTo(connID, event string, payload any)
	EmitRoom(room, event string, payload any)
	EmitAll(event string, payload any)
	Join(connID, room string)
	Leave(connID, room string)
}

// EventKind names a client event, or one of the internal lifecycle events.
type EventKind string

// Client and lifecycle event kinds.
const (
	EventConnect     EventKind = "connect"
	EventUserJoin    EventKind = "user_join"
	EventJoinRoom    EventKind = "join_room"
	EventLeaveRoom   EventKind = "leave_room"
	EventSendMessage EventKind = "send_message"
	EventTyping      EventKind = "typing"
	EventDisconnect  EventKind = "disconnect"
)

// Server event names.
const (
	ServerUserJoined     = "user_joined"
	ServerUserJoinedRoom = "user_joined_room"
	ServerRoomHistory    = "room_history"
	ServerReceiveMessage = "receive_message"
	ServerUserTyping     = "user_typing"
	ServerUserLeftRoom   = "user_left_room"
	ServerUserLeft       = "user_left"
	ServerError          = "error"
)

// Event is one unit of work for the Hub.
type Event struct {
	Kind   EventKind
	ConnID string
	Data   json.RawMessage
}

// Frame is the wire envelope used in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Payloads received from clients.

// SendMessagePayload is the body of a send_message event.
type SendMessagePayload struct {
	Message string `json:"message"`
	Room    string `json:"room,omitempty"`
}

// TypingPayload is the body of a typing event.
type TypingPayload struct {
	Room     string `json:"room"`
	IsTyping bool   `json:"isTyping"`
}

// Payloads emitted to clients.

// UserPayload carries a username.
type UserPayload struct {
	Username string `json:"username"`
}

// RoomUserPayload carries a username and a room.
type RoomUserPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// TypingNotice is emitted when a typing flag changes.
type TypingNotice struct {
	Username string `json:"username"`
	Room     string `json:"room"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload is emitted to a single connection when its event is rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}
