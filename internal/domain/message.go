package domain

import "time"

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

type Message struct {
	ID         string
	RoomID     string
	UserID     string
	AuthorName string
	Content    string
	Type       MessageType
	ReplyTo    *string
	CreatedAt  time.Time
	EditedAt   *time.Time

	// emoji -> множество user id
	Reactions map[string]map[string]struct{}
}

func (m *Message) React(emoji, userID string) {
	if m.Reactions == nil {
		m.Reactions = make(map[string]map[string]struct{})
	}
	set, ok := m.Reactions[emoji]
	if !ok {
		set = make(map[string]struct{})
		m.Reactions[emoji] = set
	}
	set[userID] = struct{}{}
}

func (m *Message) Unreact(emoji, userID string) bool {
	set, ok := m.Reactions[emoji]
	if !ok {
		return false
	}
	if _, ok := set[userID]; !ok {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(m.Reactions, emoji)
	}
	return true
}
