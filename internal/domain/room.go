package domain

import "time"

type Room struct {
	ID          string
	Name        string
	Description string
	IsPrivate   bool
	IsDefault   bool
	CreatorID   string
	CreatedAt   time.Time
}
