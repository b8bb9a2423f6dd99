package chat

import (
	"sort"

	domain "github.com/example/bugtracker-chat/domain/chat"
)

// roomLog is a fixed-capacity ring of messages, oldest first.
type roomLog struct {
	buf   []domain.Message
	start int
	size  int
}

func newRoomLog(capacity int) *roomLog {
	return &roomLog{buf: make([]domain.Message, capacity)}
}

func (l *roomLog) push(msg domain.Message) {
	if l.size < len(l.buf) {
		l.buf[(l.start+l.size)%len(l.buf)] = msg
		l.size++
		return
	}
	// Full: overwrite the oldest slot and advance the head.
	l.buf[l.start] = msg
	l.start = (l.start + 1) % len(l.buf)
}

func (l *roomLog) snapshot() []domain.Message {
	out := make([]domain.Message, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.start+i)%len(l.buf)]
	}
	return out
}

// Store keeps the most recent messages of every room.
// It is not safe for concurrent use; the Hub goroutine owns it.
type Store struct {
	rooms      map[string]*roomLog
	maxHistory int
}

// NewStore creates a Store keeping at most maxHistory messages per room.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = domain.MaxRoomHistory
	}
	return &Store{
		rooms:      make(map[string]*roomLog),
		maxHistory: maxHistory,
	}
}

// Ensure creates an empty log for room if none exists.
func (s *Store) Ensure(room string) {
	if _, ok := s.rooms[room]; !ok {
		s.rooms[room] = newRoomLog(s.maxHistory)
	}
}

// Append records msg under room, evicting the oldest message once the log is full.
func (s *Store) Append(room string, msg domain.Message) {
	s.Ensure(room)
	s.rooms[room].push(msg)
}

// Recent returns the stored messages of room, oldest first.
// Unknown rooms yield nil.
func (s *Store) Recent(room string) []domain.Message {
	l, ok := s.rooms[room]
	if !ok {
		return nil
	}
	return l.snapshot()
}

// Len returns the number of messages stored for room.
func (s *Store) Len(room string) int {
	if l, ok := s.rooms[room]; ok {
		return l.size
	}
	return 0
}

// Rooms lists every known room sorted by name.
func (s *Store) Rooms() []domain.RoomSummary {
	out := make([]domain.RoomSummary, 0, len(s.rooms))
	for name, l := range s.rooms {
		out = append(out, domain.RoomSummary{Name: name, Messages: l.size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
