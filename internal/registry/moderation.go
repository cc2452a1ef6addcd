package registry

import (
	"github.com/cwrk-planet/chat-service/internal/domain"
)

func (r *Registry) isModeratorLocked(rs *roomState, userID string) bool {
	if userID == "" {
		return false
	}
	if rs.room.CreatorID == userID {
		return true
	}
	_, ok := rs.moderators[userID]
	return ok
}

// AddModerator назначает модератора; требуется быть модератором или создателем.
func (r *Registry) AddModerator(requesterID, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if !r.isModeratorLocked(rs, requesterID) {
		return domain.ErrNotAuthorized
	}
	if _, ok := r.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	rs.moderators[userID] = struct{}{}
	return nil
}

func (r *Registry) RemoveModerator(requesterID, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if !r.isModeratorLocked(rs, requesterID) {
		return domain.ErrNotAuthorized
	}
	delete(rs.moderators, userID)
	return nil
}

// DeleteRoom удаляет комнату; дефолтные комнаты защищены от удаления
// независимо от прав запросившего.
func (r *Registry) DeleteRoom(requesterID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if rs.room.IsDefault {
		return domain.ErrDefaultRoom
	}
	if !r.isModeratorLocked(rs, requesterID) {
		return domain.ErrNotAuthorized
	}

	// участники остаются без текущей комнаты; новое состояние они
	// узнают из rooms_list при следующем запросе
	for sid := range rs.members {
		if ss, ok := r.sessions[sid]; ok && ss.session.RoomID == roomID {
			ss.session.RoomID = ""
		}
	}
	for _, m := range rs.messages {
		delete(r.msgRoom, m.ID)
	}
	for key := range r.typing {
		if key.roomID == roomID {
			delete(r.typing, key)
		}
	}
	delete(r.rooms, roomID)
	return nil
}
