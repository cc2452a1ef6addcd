package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/registry"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Chat — операции реестров, нужные WS-транспорту.
type Chat interface {
	ValidateName(name string) error
	Connect(name string, isGuest bool, conn registry.Conn) (*domain.Session, *domain.User, error)
	Disconnect(conn registry.Conn)
	TouchSession(conn registry.Conn)
	JoinRoom(sessionID, roomID string) error
	SendMessage(sessionID, content string, replyTo *string) (*domain.Message, error)
	StartTyping(sessionID, roomID string) error
	StopTyping(sessionID, roomID string) error
}

type Server struct {
	upgrader websocket.Upgrader
	chat     Chat

	pingEvery time.Duration
}

func NewServer(chat Chat) *Server {
	return &Server{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws?name=...&guest=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	isGuest, _ := strconv.ParseBool(q.Get("guest"))

	if err := s.chat.ValidateName(name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWSConn(conn)
	sess, user, err := s.chat.Connect(name, isGuest, c)
	if err != nil {
		// гонка за имя между проверкой и созданием
		s.sendError(c, err)
		_ = c.Close()
		return
	}
	slog.Info("ws connected", "user", user.Name, "session", sess.ID)

	go s.writeLoop(r.Context(), c)
	s.readLoop(c, sess.ID)

	s.chat.Disconnect(c)
	_ = c.Close()
	slog.Info("ws disconnected", "user", user.Name, "session", sess.ID)
}

func (s *Server) readLoop(c *wsConn, sessionID string) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		s.chat.TouchSession(c)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientEnvelope
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.sendError(c, errors.New("malformed envelope"))
			continue
		}
		s.dispatch(c, sessionID, cmd)
	}
}

func (s *Server) dispatch(c *wsConn, sessionID string, cmd clientEnvelope) {
	switch cmd.Type {
	case cmdJoinRoom:
		var p joinRoomData
		if err := decode(cmd.Data, &p); err != nil {
			s.sendError(c, err)
			return
		}
		if err := s.chat.JoinRoom(sessionID, p.RoomID); err != nil {
			s.sendError(c, err)
		}

	case cmdSendMessage:
		var p sendMessageData
		if err := decode(cmd.Data, &p); err != nil {
			s.sendError(c, err)
			return
		}
		if _, err := s.chat.SendMessage(sessionID, p.Content, p.ReplyTo); err != nil {
			s.sendError(c, err)
		}

	case cmdStartTyping:
		var p typingData
		if err := decode(cmd.Data, &p); err != nil {
			s.sendError(c, err)
			return
		}
		if err := s.chat.StartTyping(sessionID, p.RoomID); err != nil {
			s.sendError(c, err)
		}

	case cmdStopTyping:
		var p typingData
		if err := decode(cmd.Data, &p); err != nil {
			s.sendError(c, err)
			return
		}
		if err := s.chat.StopTyping(sessionID, p.RoomID); err != nil {
			s.sendError(c, err)
		}

	default:
		slog.Debug("unknown ws command", "type", cmd.Type, "session", sessionID)
		s.sendError(c, errUnknownCommand)
	}
}

var errUnknownCommand = errors.New("unknown command")

func (s *Server) sendError(c *wsConn, cause error) {
	env := registry.NewEnvelope(registry.TypeError, registry.ErrorData{
		Code:    errorCode(cause),
		Message: cause.Error(),
	})
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := c.Send(data); err != nil {
		slog.Debug("ws send error envelope failed", "err", err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, domain.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, domain.ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, domain.ErrContentTooLong):
		return "content_too_long"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrNoCurrentRoom):
		return "no_current_room"
	case errors.Is(err, domain.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, errUnknownCommand):
		return "unknown_command"
	default:
		return "bad_request"
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}
