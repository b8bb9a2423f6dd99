package chat

import (
	"encoding/json"

	domain "github.com/example/bugtracker-chat/domain/chat"
	"github.com/example/bugtracker-chat/events"
)

// Event handlers. Each runs on the hub goroutine.

func (h *Hub) onConnect(ev Event) {
	h.registry.Open(ev.ConnID)
	h.logger.Debug("Connection opened", "conn_id", ev.ConnID)
}

func (h *Hub) onUserJoin(ev Event) {
	prev, ok := h.registry.Get(ev.ConnID)
	if !ok {
		h.logger.Warn("user_join from unknown connection", "conn_id", ev.ConnID)
		return
	}

	username, err := decodeName(ev.Data, ValidateUsername)
	if err != nil {
		h.reject(ev.ConnID, err.Error())
		return
	}

	// Re-registering drops the room bookkeeping, so drop the transport groups with it.
	for _, room := range prev.Rooms {
		h.transport.Leave(ev.ConnID, room)
		h.clearTyping(room, ev.ConnID)
	}

	h.registry.Register(ev.ConnID, username)
	h.transport.EmitAll(ServerUserJoined, UserPayload{Username: username})
	h.logger.Info("User joined", "conn_id", ev.ConnID, "username", username)

	if h.notifier != nil {
		h.notifier.UserJoined(events.UserJoinedEvent{
			ConnectionID: ev.ConnID,
			Username:     username,
			Timestamp:    h.now(),
		})
	}
}

func (h *Hub) onJoinRoom(ev Event) {
	if _, ok := h.registry.Get(ev.ConnID); !ok {
		h.logger.Warn("join_room from unknown connection", "conn_id", ev.ConnID)
		return
	}

	room, err := decodeName(ev.Data, ValidateRoomName)
	if err != nil {
		h.reject(ev.ConnID, err.Error())
		return
	}

	added := h.registry.AddRoom(ev.ConnID, room)
	username := h.registry.LookupUsername(ev.ConnID)
	if added {
		h.transport.Join(ev.ConnID, room)
		h.store.Ensure(room)
	}
	h.transport.EmitRoom(room, ServerUserJoinedRoom, RoomUserPayload{Username: username, Room: room})

	if added {
		h.logger.Info("User joined room", "conn_id", ev.ConnID, "username", username, "room", room)
		if h.notifier != nil {
			h.notifier.RoomJoined(events.RoomJoinedEvent{
				ConnectionID: ev.ConnID,
				Username:     username,
				Room:         room,
				Timestamp:    h.now(),
			})
		}
	}

	messages := h.store.Recent(room)
	if messages == nil {
		messages = []domain.Message{}
	}
	h.transport.EmitTo(ev.ConnID, ServerRoomHistory, RoomHistoryPayload{Room: room, Messages: messages})
}

func (h *Hub) onLeaveRoom(ev Event) {
	room, err := decodeName(ev.Data, ValidateRoomName)
	if err != nil {
		h.reject(ev.ConnID, err.Error())
		return
	}
	if !h.registry.InRoom(ev.ConnID, room) {
		h.reject(ev.ConnID, ErrNotInRoom.Error())
		return
	}

	username := h.registry.LookupUsername(ev.ConnID)
	h.transport.EmitRoom(room, ServerUserLeftRoom, RoomUserPayload{Username: username, Room: room})
	h.transport.Leave(ev.ConnID, room)
	h.registry.RemoveRoom(ev.ConnID, room)
	h.clearTyping(room, ev.ConnID)
	h.logger.Info("User left room", "conn_id", ev.ConnID, "username", username, "room", room)
}

func (h *Hub) onSendMessage(ev Event) {
	var payload SendMessagePayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		h.reject(ev.ConnID, ErrInvalidPayload.Error())
		return
	}

	room := payload.Room
	if room != "" {
		normalized, err := ValidateRoomName(room)
		if err != nil {
			h.reject(ev.ConnID, err.Error())
			return
		}
		room = normalized
	}

	sender := h.registry.LookupUsername(ev.ConnID)
	now := h.now()
	msg := domain.NewMessage(h.nextMessageID(now), sender, payload.Message, room, now)

	if room != "" {
		h.store.Append(room, msg)
		h.transport.EmitRoom(room, ServerReceiveMessage, msg)
	} else {
		h.store.Append(domain.GlobalRoom, msg)
		h.transport.EmitAll(ServerReceiveMessage, msg)
	}
	h.logger.Debug("Message sent", "conn_id", ev.ConnID, "sender", sender, "room", room, "id", msg.ID)

	if h.notifier != nil {
		h.notifier.MessageSent(events.MessageSentEvent{
			MessageID:    msg.ID,
			ConnectionID: ev.ConnID,
			Sender:       sender,
			Room:         room,
			Length:       len(payload.Message),
			Timestamp:    now,
		})
	}
}

func (h *Hub) onTyping(ev Event) {
	var payload TypingPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		h.reject(ev.ConnID, ErrInvalidPayload.Error())
		return
	}
	room, err := ValidateRoomName(payload.Room)
	if err != nil {
		h.reject(ev.ConnID, err.Error())
		return
	}
	if !h.registry.InRoom(ev.ConnID, room) {
		h.reject(ev.ConnID, ErrNotInRoom.Error())
		return
	}

	var changed bool
	if payload.IsTyping {
		changed = h.setTyping(room, ev.ConnID)
	} else {
		changed = h.clearTyping(room, ev.ConnID)
	}
	if !changed {
		return
	}

	h.transport.EmitRoom(room, ServerUserTyping, TypingNotice{
		Username: h.registry.LookupUsername(ev.ConnID),
		Room:     room,
		IsTyping: payload.IsTyping,
	})
}

func (h *Hub) onDisconnect(ev Event) {
	entry, ok := h.registry.Remove(ev.ConnID)
	if !ok {
		h.purgeTyping(ev.ConnID)
		h.logger.Debug("Disconnect for unknown connection", "conn_id", ev.ConnID)
		return
	}

	username := entry.Username
	if !entry.Named() {
		username = domain.AnonymousUsername
	}

	for _, room := range entry.Rooms {
		h.transport.EmitRoom(room, ServerUserLeftRoom, RoomUserPayload{Username: username, Room: room})
	}
	// An unnamed connection that never joined a room was never announced.
	if entry.Named() || len(entry.Rooms) > 0 {
		h.transport.EmitAll(ServerUserLeft, UserPayload{Username: username})
	}
	for _, room := range entry.Rooms {
		h.transport.Leave(ev.ConnID, room)
	}
	h.purgeTyping(ev.ConnID)
	h.logger.Info("Connection closed", "conn_id", ev.ConnID, "username", username, "rooms", len(entry.Rooms))

	if h.notifier != nil && entry.Named() {
		h.notifier.UserLeft(events.UserLeftEvent{
			ConnectionID: ev.ConnID,
			Username:     username,
			Rooms:        entry.Rooms,
			Timestamp:    h.now(),
		})
	}
}

// Typing flags.

func (h *Hub) setTyping(room, connID string) bool {
	set, ok := h.typing[room]
	if !ok {
		set = make(map[string]struct{})
		h.typing[room] = set
	}
	if _, exists := set[connID]; exists {
		return false
	}
	set[connID] = struct{}{}
	return true
}

func (h *Hub) clearTyping(room, connID string) bool {
	set, ok := h.typing[room]
	if !ok {
		return false
	}
	if _, exists := set[connID]; !exists {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(h.typing, room)
	}
	return true
}

func (h *Hub) purgeTyping(connID string) {
	for room := range h.typing {
		h.clearTyping(room, connID)
	}
}

// isTyping reports whether connID has an active typing flag in room.
func (h *Hub) isTyping(room, connID string) bool {
	_, ok := h.typing[room][connID]
	return ok
}

// decodeName reads a JSON string payload and validates it.
func decodeName(data json.RawMessage, validate func(string) (string, error)) (string, error) {
	var name string
	if len(data) == 0 {
		return "", ErrInvalidPayload
	}
	if err := json.Unmarshal(data, &name); err != nil {
		return "", ErrInvalidPayload
	}
	return validate(name)
}
