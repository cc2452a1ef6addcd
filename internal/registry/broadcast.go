package registry

import (
	"log/slog"
	"sort"

	json "github.com/goccy/go-json"
)

// broadcastLocked сериализует конверт один раз и пишет всем сессиям комнаты,
// кроме перечисленных. Ошибка записи одного соединения не прерывает рассылку.
// Вызывается строго под r.mu.
func (r *Registry) broadcastLocked(roomID string, env Envelope, exclude ...string) {
	rs, ok := r.rooms[roomID]
	if !ok {
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("broadcast marshal failed", "room", roomID, "type", env.Type, "err", err)
		return
	}

	var skip map[string]struct{}
	if len(exclude) > 0 {
		skip = make(map[string]struct{}, len(exclude))
		for _, id := range exclude {
			skip[id] = struct{}{}
		}
	}

	for sid := range rs.members {
		if _, ok := skip[sid]; ok {
			continue
		}
		ss, ok := r.sessions[sid]
		if !ok || ss.conn == nil {
			continue
		}
		if err := ss.conn.Send(data); err != nil {
			slog.Debug("broadcast send failed", "room", roomID, "session", sid, "err", err)
		}
	}
}

// sendLocked — конверт одному соединению, best-effort.
func (r *Registry) sendLocked(conn Conn, env Envelope) {
	if conn == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("send marshal failed", "type", env.Type, "err", err)
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Debug("send failed", "type", env.Type, "err", err)
	}
}

// broadcastRoomUsersLocked рассылает комнате актуальный список участников.
func (r *Registry) broadcastRoomUsersLocked(roomID string) {
	rs, ok := r.rooms[roomID]
	if !ok {
		return
	}
	r.broadcastLocked(roomID, NewEnvelope(TypeRoomUsers, RoomUsersData{
		RoomID: roomID,
		Users:  r.memberItemsLocked(rs),
	}))
}

func (r *Registry) memberItemsLocked(rs *roomState) []MemberItem {
	items := make([]MemberItem, 0, len(rs.members))
	for sid := range rs.members {
		ss, ok := r.sessions[sid]
		if !ok {
			continue
		}
		items = append(items, MemberItem{
			UserID:  ss.session.UserID,
			Name:    r.displayNameLocked(ss.session.UserID),
			IsGuest: r.isGuestLocked(ss.session.UserID),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func (r *Registry) displayNameLocked(userID string) string {
	if u, ok := r.users[userID]; ok {
		return u.Name
	}
	// пользователь не нашёлся — деградируем до заглушки
	return "unknown"
}

func (r *Registry) isGuestLocked(userID string) bool {
	if u, ok := r.users[userID]; ok {
		return u.IsGuest
	}
	return false
}
