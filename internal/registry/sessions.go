package registry

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/google/uuid"
)

// Connect создаёт пользователя и сессию для нового соединения и отправляет
// ему список комнат. Имя валидируется атомарно с созданием, чтобы два
// одновременных подключения не заняли одно имя.
func (r *Registry) Connect(name string, isGuest bool, conn Conn) (*domain.Session, *domain.User, error) {
	if err := domain.ValidateDisplayName(name); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateNameLocked(name); err != nil {
		return nil, nil, err
	}

	u := r.createUserLocked(name, isGuest)
	s := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		CreatedAt: time.Now(),
	}
	r.sessions[s.ID] = &sessionState{session: s, conn: conn}
	r.sessionByConn[conn] = s.ID

	r.sendLocked(conn, NewEnvelope(TypeRoomsList, RoomsListData{Rooms: r.roomItemsLocked()}))

	sc := *s
	uc := *u
	return &sc, &uc, nil
}

// Disconnect — единственный путь очистки после закрытия соединения:
// выход из комнаты, снятие typing-индикаторов, удаление сессии. Повторный
// вызов для того же соединения — no-op.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sid, ok := r.sessionByConn[conn]
	if !ok {
		return
	}
	ss := r.sessions[sid]
	delete(r.sessionByConn, conn)

	if ss == nil {
		return
	}
	if ss.session.RoomID != "" {
		r.leaveRoomLocked(sid, ss.session.RoomID)
	}
	delete(r.sessions, sid)

	if u, ok := r.users[ss.session.UserID]; ok {
		u.Status = domain.StatusOffline
		u.LastSeen = time.Now()
	}
}

// SessionByConn — обратный индекс соединение -> сессия.
func (r *Registry) SessionByConn(conn Conn) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sid, ok := r.sessionByConn[conn]
	if !ok {
		return nil, false
	}
	ss, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	cp := *ss.session
	return &cp, true
}

// TouchSession обновляет last seen владельца сессии (pong от клиента).
func (r *Registry) TouchSession(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sid, ok := r.sessionByConn[conn]
	if !ok {
		return
	}
	ss, ok := r.sessions[sid]
	if !ok {
		return
	}
	if u, ok := r.users[ss.session.UserID]; ok {
		u.LastSeen = time.Now()
	}
}
