package http

import "github.com/cwrk-planet/chat-service/internal/registry"

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
}

type RoomsListResponse struct {
	Items []registry.RoomItem `json:"items"`
}

type MessagesResponse struct {
	Items      []registry.MessageItem `json:"items"`
	NextCursor string                 `json:"nextCursor,omitempty"`
}

type ParticipantsResponse struct {
	Items []registry.MemberItem `json:"items"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type ModeratorRequest struct {
	UserID string `json:"userId"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}
