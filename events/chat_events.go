package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserJoinedEvent is emitted when a connection claims a username.
type UserJoinedEvent struct {
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	Timestamp    time.Time `json:"timestamp"`
}

// RoomJoinedEvent is emitted when a connection joins a room.
type RoomJoinedEvent struct {
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	Room         string    `json:"room"`
	Timestamp    time.Time `json:"timestamp"`
}

// MessageSentEvent is emitted for every accepted chat message.
// Room is empty for messages broadcast to everyone.
type MessageSentEvent struct {
	MessageID    int64     `json:"message_id"`
	ConnectionID string    `json:"connection_id"`
	Sender       string    `json:"sender"`
	Room         string    `json:"room,omitempty"`
	Length       int       `json:"length"`
	Timestamp    time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a connection closes.
type UserLeftEvent struct {
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	Rooms        []string  `json:"rooms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"chat",
		"UserJoined",
		"v1",
	)

	RoomJoinedV1 = helper.EventDefinition[RoomJoinedEvent](
		"chat",
		"RoomJoined",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"chat",
		"UserLeft",
		"v1",
	)
)
