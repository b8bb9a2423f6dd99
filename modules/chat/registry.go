package chat

import (
	"slices"

	domain "github.com/example/bugtracker-chat/domain/chat"
)

// Registry maps live connections to their username and joined rooms.
// It is not safe for concurrent use; the Hub goroutine owns it.
type Registry struct {
	entries map[string]*domain.Connection
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*domain.Connection),
	}
}

// Open creates an unnamed entry for connID unless one already exists.
func (r *Registry) Open(connID string) {
	if _, ok := r.entries[connID]; ok {
		return
	}
	r.entries[connID] = &domain.Connection{ID: connID}
}

// Register creates or overwrites the entry for connID with an empty room set.
func (r *Registry) Register(connID, username string) {
	r.entries[connID] = &domain.Connection{
		ID:       connID,
		Username: username,
	}
}

// AddRoom appends room to the connection's joined rooms.
// It reports false when the connection is unknown or already in the room.
func (r *Registry) AddRoom(connID, room string) bool {
	entry, ok := r.entries[connID]
	if !ok {
		return false
	}
	if slices.Contains(entry.Rooms, room) {
		return false
	}
	entry.Rooms = append(entry.Rooms, room)
	return true
}

// RemoveRoom drops room from the connection's joined rooms, keeping the order of the rest.
func (r *Registry) RemoveRoom(connID, room string) bool {
	entry, ok := r.entries[connID]
	if !ok {
		return false
	}
	idx := slices.Index(entry.Rooms, room)
	if idx < 0 {
		return false
	}
	entry.Rooms = slices.Delete(entry.Rooms, idx, idx+1)
	return true
}

// InRoom reports whether the connection has joined room.
func (r *Registry) InRoom(connID, room string) bool {
	entry, ok := r.entries[connID]
	return ok && slices.Contains(entry.Rooms, room)
}

// LookupUsername returns the claimed username, or AnonymousUsername.
func (r *Registry) LookupUsername(connID string) string {
	if entry, ok := r.entries[connID]; ok && entry.Named() {
		return entry.Username
	}
	return domain.AnonymousUsername
}

// Get returns a copy of the entry for connID.
func (r *Registry) Get(connID string) (domain.Connection, bool) {
	entry, ok := r.entries[connID]
	if !ok {
		return domain.Connection{}, false
	}
	return clone(entry), true
}

// Remove deletes the entry for connID and returns it.
func (r *Registry) Remove(connID string) (domain.Connection, bool) {
	entry, ok := r.entries[connID]
	if !ok {
		return domain.Connection{}, false
	}
	delete(r.entries, connID)
	return clone(entry), true
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	return len(r.entries)
}

// NamedLen returns the number of connections that claimed a username.
func (r *Registry) NamedLen() int {
	n := 0
	for _, entry := range r.entries {
		if entry.Named() {
			n++
		}
	}
	return n
}

func clone(entry *domain.Connection) domain.Connection {
	return domain.Connection{
		ID:       entry.ID,
		Username: entry.Username,
		Rooms:    slices.Clone(entry.Rooms),
	}
}
