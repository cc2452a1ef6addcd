package domain

import "errors"

var (
	// валидация
	ErrInvalidName    = errors.New("invalid display name")
	ErrNameTaken      = errors.New("display name already in use")
	ErrEmptyContent   = errors.New("empty message content")
	ErrContentTooLong = errors.New("message content too long")

	// not found
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")

	// авторизация и лимиты
	ErrNotAuthorized = errors.New("not authorized")
	ErrRoomFull      = errors.New("room is full")
	ErrDefaultRoom   = errors.New("default room is protected")

	// state
	ErrNoCurrentRoom     = errors.New("session has no current room")
	ErrNotInRoom         = errors.New("user not in the room")
	ErrEditWindowExpired = errors.New("edit window expired")
	ErrWrongMessageType  = errors.New("message is not editable")
)
