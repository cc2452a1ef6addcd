package domain

import (
	"regexp"
	"time"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusAway    UserStatus = "away"
	StatusOffline UserStatus = "offline"
)

type User struct {
	ID        string
	Name      string
	IsGuest   bool
	Status    UserStatus
	CreatedAt time.Time
	LastSeen  time.Time
}

// 2-20 символов: буквы, цифры, подчёркивание, дефис
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{2,20}$`)

func ValidateDisplayName(name string) error {
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}
