package registry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/google/uuid"
)

// CreateRoom создаёт комнату; создатель — единственный модератор.
func (r *Registry) CreateRoom(name, description, creatorID string, isPrivate bool) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := slugify(name)
	if _, exists := r.rooms[id]; exists {
		id = id + "-" + uuid.NewString()[:6]
	}

	room := &domain.Room{
		ID:          id,
		Name:        name,
		Description: description,
		IsPrivate:   isPrivate,
		CreatorID:   creatorID,
		CreatedAt:   time.Now(),
	}
	rs := &roomState{
		room:       room,
		members:    make(map[string]struct{}),
		moderators: make(map[string]struct{}),
	}
	if creatorID != "" {
		rs.moderators[creatorID] = struct{}{}
	}
	r.rooms[id] = rs

	cp := *room
	return &cp, nil
}

func (r *Registry) Room(id string) (*domain.Room, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[id]
	if !ok {
		return nil, 0, domain.ErrRoomNotFound
	}
	cp := *rs.room
	return &cp, len(rs.members), nil
}

func (r *Registry) Rooms() []RoomItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomItemsLocked()
}

func (r *Registry) roomItemsLocked() []RoomItem {
	items := make([]RoomItem, 0, len(r.rooms))
	for _, rs := range r.rooms {
		items = append(items, RoomItem{
			ID:          rs.room.ID,
			Name:        rs.room.Name,
			Description: rs.room.Description,
			IsPrivate:   rs.room.IsPrivate,
			IsDefault:   rs.room.IsDefault,
			Members:     len(rs.members),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// JoinRoom добавляет сессию в комнату. Если сессия уже в другой комнате,
// сперва выполняется выход из неё — рассылки старой комнате уходят раньше
// рассылок новой. Повторный join в ту же комнату — no-op success.
func (r *Registry) JoinRoom(sessionID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	rs, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}

	if ss.session.RoomID == roomID {
		// уже в комнате — только повторная отправка истории запросившему
		r.sendHistoryLocked(ss, rs)
		return nil
	}

	if r.cfg.MaxOccupancy > 0 && len(rs.members) >= r.cfg.MaxOccupancy {
		return domain.ErrRoomFull
	}

	if ss.session.RoomID != "" {
		r.leaveRoomLocked(sessionID, ss.session.RoomID)
	}

	rs.members[sessionID] = struct{}{}
	ss.session.RoomID = roomID

	r.broadcastLocked(roomID, NewEnvelope(TypeUserJoined, UserEventData{
		RoomID:   roomID,
		UserID:   ss.session.UserID,
		Username: r.displayNameLocked(ss.session.UserID),
		IsGuest:  r.isGuestLocked(ss.session.UserID),
	}))
	r.broadcastRoomUsersLocked(roomID)

	r.sendHistoryLocked(ss, rs)
	return nil
}

func (r *Registry) sendHistoryLocked(ss *sessionState, rs *roomState) {
	items := make([]MessageItem, 0, len(rs.messages))
	for _, m := range rs.messages {
		items = append(items, messageItem(m))
	}
	r.sendLocked(ss.conn, NewEnvelope(TypeRoomMessages, RoomMessagesData{
		RoomID:   rs.room.ID,
		Messages: items,
	}))
}

// LeaveRoom идемпотентен: сессия не в комнате — уже вышли, не ошибка.
func (r *Registry) LeaveRoom(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveRoomLocked(sessionID, roomID)
}

func (r *Registry) leaveRoomLocked(sessionID, roomID string) {
	ss, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	rs, ok := r.rooms[roomID]
	if !ok {
		if ss.session.RoomID == roomID {
			ss.session.RoomID = ""
		}
		return
	}
	if _, member := rs.members[sessionID]; !member {
		if ss.session.RoomID == roomID {
			ss.session.RoomID = ""
		}
		return
	}

	delete(rs.members, sessionID)
	if ss.session.RoomID == roomID {
		ss.session.RoomID = ""
	}
	delete(r.typing, typingKey{userID: ss.session.UserID, roomID: roomID})

	r.broadcastLocked(roomID, NewEnvelope(TypeUserLeft, UserEventData{
		RoomID:   roomID,
		UserID:   ss.session.UserID,
		Username: r.displayNameLocked(ss.session.UserID),
		IsGuest:  r.isGuestLocked(ss.session.UserID),
	}))
	r.broadcastRoomUsersLocked(roomID)
}

// SendMessage принимает сообщение в текущую комнату сессии, кладёт его в
// ограниченную историю (старые вытесняются) и рассылает всем участникам.
func (r *Registry) SendMessage(sessionID, content string, replyTo *string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	roomID := ss.session.RoomID
	if roomID == "" {
		return nil, domain.ErrNoCurrentRoom
	}
	rs, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if len(content) > r.cfg.MaxMessageLen {
		return nil, domain.ErrContentTooLong
	}

	msg := &domain.Message{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		UserID:     ss.session.UserID,
		AuthorName: r.displayNameLocked(ss.session.UserID),
		Content:    content,
		Type:       domain.MessageText,
		ReplyTo:    replyTo,
		CreatedAt:  time.Now(),
	}
	r.appendMessageLocked(rs, msg)

	r.broadcastLocked(roomID, NewEnvelope(TypeMessage, messageItem(msg)))

	if r.archive != nil {
		cp := *msg
		go r.archiveMessage(&cp)
	}

	cp := *msg
	return &cp, nil
}

func (r *Registry) appendMessageLocked(rs *roomState, msg *domain.Message) {
	rs.messages = append(rs.messages, msg)
	r.msgRoom[msg.ID] = msg.RoomID
	for len(rs.messages) > r.cfg.HistoryCap {
		delete(r.msgRoom, rs.messages[0].ID)
		rs.messages = rs.messages[1:]
	}
}

func (r *Registry) archiveMessage(msg *domain.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.archive.Save(ctx, msg); err != nil {
		slog.Warn("message archive failed", "room", msg.RoomID, "msg", msg.ID, "err", err)
	}
}

// RoomMessages возвращает последние limit сообщений комнаты (новые в конце).
func (r *Registry) RoomMessages(roomID string, limit int) ([]MessageItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if limit <= 0 || limit > len(rs.messages) {
		limit = len(rs.messages)
	}
	msgs := rs.messages[len(rs.messages)-limit:]
	items := make([]MessageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, messageItem(m))
	}
	return items, nil
}

func (r *Registry) RoomParticipants(roomID string) ([]MemberItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r.memberItemsLocked(rs), nil
}
