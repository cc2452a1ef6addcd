package domain

import "time"

// Session — привязка живого соединения к пользователю на время его жизни.
type Session struct {
	ID        string
	UserID    string
	RoomID    string // "" — не в комнате
	CreatedAt time.Time
}
