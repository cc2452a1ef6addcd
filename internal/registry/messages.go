package registry

import (
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

func (r *Registry) findMessageLocked(messageID string) (*roomState, int, *domain.Message, error) {
	roomID, ok := r.msgRoom[messageID]
	if !ok {
		return nil, 0, nil, domain.ErrMessageNotFound
	}
	rs, ok := r.rooms[roomID]
	if !ok {
		return nil, 0, nil, domain.ErrMessageNotFound
	}
	for i, m := range rs.messages {
		if m.ID == messageID {
			return rs, i, m, nil
		}
	}
	return nil, 0, nil, domain.ErrMessageNotFound
}

// EditMessage — правка собственного текстового сообщения в пределах окна.
func (r *Registry) EditMessage(userID, messageID, content string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _, msg, err := r.findMessageLocked(messageID)
	if err != nil {
		return nil, err
	}
	if msg.Type != domain.MessageText {
		return nil, domain.ErrWrongMessageType
	}
	if msg.UserID != userID {
		return nil, domain.ErrNotAuthorized
	}
	if time.Since(msg.CreatedAt) > r.cfg.EditWindow {
		return nil, domain.ErrEditWindowExpired
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if len(content) > r.cfg.MaxMessageLen {
		return nil, domain.ErrContentTooLong
	}

	now := time.Now()
	msg.Content = content
	msg.EditedAt = &now

	cp := *msg
	return &cp, nil
}

// DeleteMessage — автор либо модератор комнаты.
func (r *Registry) DeleteMessage(userID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, i, msg, err := r.findMessageLocked(messageID)
	if err != nil {
		return err
	}
	if msg.UserID != userID && !r.isModeratorLocked(rs, userID) {
		return domain.ErrNotAuthorized
	}

	rs.messages = append(rs.messages[:i], rs.messages[i+1:]...)
	delete(r.msgRoom, messageID)
	return nil
}

// AddReaction — реакция от любого текущего участника комнаты.
func (r *Registry) AddReaction(userID, messageID, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return domain.ErrEmptyContent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rs, _, msg, err := r.findMessageLocked(messageID)
	if err != nil {
		return err
	}
	if !r.isRoomMemberLocked(rs, userID) {
		return domain.ErrNotInRoom
	}
	msg.React(emoji, userID)
	return nil
}

// RemoveReaction снимает свою реакцию; отсутствующая реакция — no-op.
func (r *Registry) RemoveReaction(userID, messageID, emoji string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, _, msg, err := r.findMessageLocked(messageID)
	if err != nil {
		return err
	}
	if !r.isRoomMemberLocked(rs, userID) {
		return domain.ErrNotInRoom
	}
	msg.Unreact(emoji, userID)
	return nil
}

func (r *Registry) isRoomMemberLocked(rs *roomState, userID string) bool {
	for sid := range rs.members {
		if ss, ok := r.sessions[sid]; ok && ss.session.UserID == userID {
			return true
		}
	}
	return false
}
