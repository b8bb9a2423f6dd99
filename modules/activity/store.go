package activity

import (
	"sort"
	"sync"
	"time"
)

// RoomActivity tracks counters for a single room.
type RoomActivity struct {
	Room         string    `json:"room"`
	Joins        int64     `json:"joins"`
	Messages     int64     `json:"messages"`
	LastActivity time.Time `json:"last_activity,omitempty"`
}

// Summary is the aggregate view returned by the summary service.
type Summary struct {
	UsersJoined     int64          `json:"users_joined"`
	UsersLeft       int64          `json:"users_left"`
	OnlineUsers     int64          `json:"online_users"`
	RoomJoins       int64          `json:"room_joins"`
	MessagesSent    int64          `json:"messages_sent"`
	BroadcastSent   int64          `json:"broadcast_messages"`
	CharactersSent  int64          `json:"characters_sent"`
	TopRooms        []RoomActivity `json:"top_rooms"`
	LastMessageTime time.Time      `json:"last_message_at,omitempty"`
}

// DefaultTopRooms is the number of rooms reported in a summary.
const DefaultTopRooms = 10

// ActivityStore provides thread-safe storage for chat activity counters.
type ActivityStore struct {
	mu              sync.RWMutex
	usersJoined     int64
	usersLeft       int64
	roomJoins       int64
	messagesSent    int64
	broadcastSent   int64
	charactersSent  int64
	lastMessageTime time.Time
	online          map[string]struct{} // connection ids with a claimed username
	rooms           map[string]*RoomActivity
	topRooms        int
}

// NewActivityStore creates a new activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		online:   make(map[string]struct{}),
		rooms:    make(map[string]*RoomActivity),
		topRooms: DefaultTopRooms,
	}
}

func (s *ActivityStore) room(name string) *RoomActivity {
	ra, ok := s.rooms[name]
	if !ok {
		ra = &RoomActivity{Room: name}
		s.rooms[name] = ra
	}
	return ra
}

// RecordUserJoined counts a username claim on connID. A rename on the same
// connection counts as a join but not as another online user.
func (s *ActivityStore) RecordUserJoined(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usersJoined++
	s.online[connID] = struct{}{}
}

// RecordUserLeft counts a named connection closing.
func (s *ActivityStore) RecordUserLeft(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usersLeft++
	delete(s.online, connID)
}

// RecordRoomJoined counts a connection joining room.
func (s *ActivityStore) RecordRoomJoined(room string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomJoins++
	ra := s.room(room)
	ra.Joins++
	if at.After(ra.LastActivity) {
		ra.LastActivity = at
	}
}

// RecordMessage counts a message. An empty room means it went to everyone.
func (s *ActivityStore) RecordMessage(room string, length int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messagesSent++
	s.charactersSent += int64(length)
	if at.After(s.lastMessageTime) {
		s.lastMessageTime = at
	}
	if room == "" {
		s.broadcastSent++
		return
	}
	ra := s.room(room)
	ra.Messages++
	if at.After(ra.LastActivity) {
		ra.LastActivity = at
	}
}

// Room returns the counters for one room.
func (s *ActivityStore) Room(name string) (RoomActivity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ra, ok := s.rooms[name]
	if !ok {
		return RoomActivity{}, false
	}
	return *ra, true
}

// GetSummary returns the aggregate counters with the busiest rooms first.
func (s *ActivityStore) GetSummary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]RoomActivity, 0, len(s.rooms))
	for _, ra := range s.rooms {
		rooms = append(rooms, *ra)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Messages != rooms[j].Messages {
			return rooms[i].Messages > rooms[j].Messages
		}
		return rooms[i].Room < rooms[j].Room
	})
	if len(rooms) > s.topRooms {
		rooms = rooms[:s.topRooms]
	}

	return Summary{
		UsersJoined:     s.usersJoined,
		UsersLeft:       s.usersLeft,
		OnlineUsers:     int64(len(s.online)),
		RoomJoins:       s.roomJoins,
		MessagesSent:    s.messagesSent,
		BroadcastSent:   s.broadcastSent,
		CharactersSent:  s.charactersSent,
		TopRooms:        rooms,
		LastMessageTime: s.lastMessageTime,
	}
}
