package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/google/uuid"
)

// Conn — живое соединение. Send не должен блокироваться дольше своего
// write deadline: рассылка идёт под общим мьютексом реестров.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Archiver — необязательный приёмник принятых сообщений (best-effort).
type Archiver interface {
	Save(ctx context.Context, msg *domain.Message) error
}

type DefaultRoom struct {
	Name        string
	Description string
}

type Config struct {
	HistoryCap    int
	MaxOccupancy  int // 0 — без лимита
	MaxMessageLen int
	EditWindow    time.Duration
	TypingTimeout time.Duration
	SweepInterval time.Duration
	DefaultRooms  []DefaultRoom
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.HistoryCap <= 0 {
		out.HistoryCap = 1000
	}
	if out.MaxMessageLen <= 0 {
		out.MaxMessageLen = 4000
	}
	if out.EditWindow <= 0 {
		out.EditWindow = 5 * time.Minute
	}
	if out.TypingTimeout <= 0 {
		out.TypingTimeout = 5 * time.Second
	}
	if out.SweepInterval <= 0 {
		out.SweepInterval = time.Second
	}
	return out
}

type roomState struct {
	room       *domain.Room
	members    map[string]struct{} // session id -> member
	moderators map[string]struct{} // user id -> moderator
	messages   []*domain.Message   // новые в конце, не больше HistoryCap
}

type sessionState struct {
	session *domain.Session
	conn    Conn
}

type typingKey struct {
	userID string
	roomID string
}

// Registry — реестры пользователей, комнат и сессий под одним мьютексом.
// Любая операция (событие соединения или тик свипера) берёт лок целиком,
// поэтому мутации не перемежаются и инвариант членства сохраняется.
type Registry struct {
	mu  sync.Mutex
	cfg Config

	users         map[string]*domain.User
	rooms         map[string]*roomState
	sessions      map[string]*sessionState
	sessionByConn map[Conn]string
	msgRoom       map[string]string // message id -> room id
	typing        map[typingKey]time.Time

	archive Archiver
}

func New(cfg Config, archive Archiver) *Registry {
	r := &Registry{
		cfg:           cfg.withDefaults(),
		users:         make(map[string]*domain.User),
		rooms:         make(map[string]*roomState),
		sessions:      make(map[string]*sessionState),
		sessionByConn: make(map[Conn]string),
		msgRoom:       make(map[string]string),
		typing:        make(map[typingKey]time.Time),
		archive:       archive,
	}
	for _, dr := range r.cfg.DefaultRooms {
		room := &domain.Room{
			ID:          slugify(dr.Name),
			Name:        dr.Name,
			Description: dr.Description,
			IsDefault:   true,
			CreatedAt:   time.Now(),
		}
		r.rooms[room.ID] = &roomState{
			room:       room,
			members:    make(map[string]struct{}),
			moderators: make(map[string]struct{}),
		}
	}
	return r
}

func slugify(name string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == ' ', ch == '-', ch == '_':
			b.WriteByte('-')
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		s = uuid.NewString()[:8]
	}
	return s
}
