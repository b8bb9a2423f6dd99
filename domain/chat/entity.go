package chat

import "time"

const (
	// AnonymousUsername is the sender name used for connections that never claimed one.
	AnonymousUsername = "Anonymous"

	// GlobalRoom is the history bucket for messages sent without a room.
	GlobalRoom = "global"

	// MaxRoomHistory is the number of messages kept per room.
	MaxRoomHistory = 100

	// TimestampLayout renders message timestamps as ISO-8601 UTC with milliseconds.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Connection is the registry entry for one live transport session.
type Connection struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Rooms    []string `json:"rooms"`
}

// Named reports whether the connection has claimed a username.
func (c Connection) Named() bool {
	return c.Username != ""
}

// Message is one broadcast unit. It is never modified after creation.
type Message struct {
	ID        int64   `json:"id"`
	Sender    string  `json:"sender"`
	Body      string  `json:"message"`
	Room      *string `json:"room"`
	Timestamp string  `json:"timestamp"`
}

// NewMessage builds a message accepted at the given time.
func NewMessage(id int64, sender, body, room string, at time.Time) Message {
	msg := Message{
		ID:        id,
		Sender:    sender,
		Body:      body,
		Timestamp: at.UTC().Format(TimestampLayout),
	}
	if room != "" {
		r := room
		msg.Room = &r
	}
	return msg
}

// RoomSummary describes one room log.
type RoomSummary struct {
	Name     string `json:"name"`
	Messages int    `json:"messages"`
	Members  int    `json:"members,omitempty"`
}
