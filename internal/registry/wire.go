package registry

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Типы исходящих событий (server -> client)
const (
	TypeRoomsList    = "rooms_list"
	TypeRoomMessages = "room_messages"
	TypeMessage      = "message"
	TypeUserJoined   = "user_joined"
	TypeUserLeft     = "user_left"
	TypeRoomUsers    = "room_users"
	TypeTypingStart  = "typing_start"
	TypeTypingStop   = "typing_stop"
	TypeError        = "error"
)

type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEnvelope(typ string, data any) Envelope {
	return Envelope{Type: typ, Data: data, Timestamp: time.Now()}
}

type RoomItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
	IsDefault   bool   `json:"isDefault"`
	Members     int    `json:"members"`
}

type RoomsListData struct {
	Rooms []RoomItem `json:"rooms"`
}

type MessageItem struct {
	ID        string              `json:"id"`
	RoomID    string              `json:"roomId"`
	UserID    string              `json:"userId"`
	Username  string              `json:"username"`
	Content   string              `json:"content"`
	Type      string              `json:"messageType"`
	ReplyTo   *string             `json:"replyTo,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	EditedAt  *time.Time          `json:"editedAt,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

type RoomMessagesData struct {
	RoomID   string        `json:"roomId"`
	Messages []MessageItem `json:"messages"`
}

type MemberItem struct {
	UserID  string `json:"userId"`
	Name    string `json:"username"`
	IsGuest bool   `json:"isGuest"`
}

type RoomUsersData struct {
	RoomID string       `json:"roomId"`
	Users  []MemberItem `json:"users"`
}

type UserEventData struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsGuest  bool   `json:"isGuest"`
}

type TypingData struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func messageItem(m *domain.Message) MessageItem {
	it := MessageItem{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Username:  m.AuthorName,
		Content:   m.Content,
		Type:      string(m.Type),
		ReplyTo:   m.ReplyTo,
		CreatedAt: m.CreatedAt,
		EditedAt:  m.EditedAt,
	}
	if len(m.Reactions) > 0 {
		it.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, set := range m.Reactions {
			ids := make([]string, 0, len(set))
			for id := range set {
				ids = append(ids, id)
			}
			it.Reactions[emoji] = ids
		}
	}
	return it
}
