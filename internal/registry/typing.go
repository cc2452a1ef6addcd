package registry

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// StartTyping фиксирует/обновляет индикатор и оповещает комнату,
// исключая самого отправителя.
func (r *Registry) StartTyping(sessionID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if ss.session.RoomID != roomID {
		return domain.ErrNotInRoom
	}

	key := typingKey{userID: ss.session.UserID, roomID: roomID}
	_, already := r.typing[key]
	r.typing[key] = time.Now()

	// повторный start в пределах окна — только обновление таймштампа
	if already {
		return nil
	}

	r.broadcastLocked(roomID, NewEnvelope(TypeTypingStart, TypingData{
		RoomID:   roomID,
		UserID:   ss.session.UserID,
		Username: r.displayNameLocked(ss.session.UserID),
	}), sessionID)
	return nil
}

// StopTyping — явный стоп-сигнал; рассылается всей комнате.
func (r *Registry) StopTyping(sessionID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	key := typingKey{userID: ss.session.UserID, roomID: roomID}
	if _, ok := r.typing[key]; !ok {
		return nil
	}
	delete(r.typing, key)

	r.broadcastLocked(roomID, NewEnvelope(TypeTypingStop, TypingData{
		RoomID:   roomID,
		UserID:   ss.session.UserID,
		Username: r.displayNameLocked(ss.session.UserID),
	}))
	return nil
}

// SweepTyping снимает индикаторы старше таймаута и шлёт typing_stop.
func (r *Registry) SweepTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, ts := range r.typing {
		if now.Sub(ts) < r.cfg.TypingTimeout {
			continue
		}
		delete(r.typing, key)
		r.broadcastLocked(key.roomID, NewEnvelope(TypeTypingStop, TypingData{
			RoomID:   key.roomID,
			UserID:   key.userID,
			Username: r.displayNameLocked(key.userID),
		}))
	}
}

// RunSweeper гоняет периодическую чистку до отмены контекста.
func (r *Registry) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepTyping()
		}
	}
}
