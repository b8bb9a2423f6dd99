package chat

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	domain "github.com/example/bugtracker-chat/domain/chat"
)

// Validation constants
const (
	MaxUsernameLength = 50
	MaxRoomNameLength = 100
)

// Validation errors
var (
	ErrInvalidPayload   = errors.New("invalid event payload")
	ErrUsernameEmpty    = errors.New("username cannot be empty")
	ErrUsernameTooLong  = errors.New("username exceeds maximum length")
	ErrUsernameInvalid  = errors.New("username contains invalid characters")
	ErrRoomNameEmpty    = errors.New("room name cannot be empty")
	ErrRoomNameTooLong  = errors.New("room name exceeds maximum length")
	ErrRoomNameInvalid  = errors.New("room name contains invalid characters")
	ErrRoomNameReserved = errors.New("room name is reserved")
	ErrNotInRoom        = errors.New("not a member of this room")
)

// ValidateUsername trims and checks a claimed username.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameEmpty
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return "", ErrUsernameTooLong
	}
	if strings.IndexFunc(username, unicode.IsControl) >= 0 {
		return "", ErrUsernameInvalid
	}
	return username, nil
}

// ValidateRoomName trims and checks a room name. The history bucket of
// roomless messages cannot be used as a room.
func ValidateRoomName(room string) (string, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return "", ErrRoomNameEmpty
	}
	if utf8.RuneCountInString(room) > MaxRoomNameLength {
		return "", ErrRoomNameTooLong
	}
	if strings.IndexFunc(room, unicode.IsControl) >= 0 {
		return "", ErrRoomNameInvalid
	}
	if room == domain.GlobalRoom {
		return "", ErrRoomNameReserved
	}
	return room, nil
}

// RoomHistoryPayload is emitted to a connection after it joins a room.
type RoomHistoryPayload struct {
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
}

// Service names registered on the chat module's container.
const (
	ServiceHistory = "history"
	ServiceRooms   = "rooms"
	ServiceStats   = "stats"
)

// HistoryRequest asks for the stored messages of a room.
type HistoryRequest struct {
	Room  string `json:"room"`
	Limit int    `json:"limit,omitempty"`
}

// HistoryResponse carries the stored messages of a room, oldest first.
type HistoryResponse struct {
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
}

// RoomsRequest asks for the list of known rooms.
type RoomsRequest struct{}

// RoomsResponse lists the known rooms.
type RoomsResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

// StatsRequest asks for hub counters.
type StatsRequest struct{}
