package ws

import (
	json "github.com/goccy/go-json"
)

// Типы входящих команд (client -> server)
const (
	cmdJoinRoom    = "join_room"
	cmdSendMessage = "send_message"
	cmdStartTyping = "start_typing"
	cmdStopTyping  = "stop_typing"
)

type clientEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinRoomData struct {
	RoomID string `json:"roomId"`
}

type sendMessageData struct {
	Content string  `json:"content"`
	ReplyTo *string `json:"replyTo,omitempty"`
}

type typingData struct {
	RoomID string `json:"roomId"`
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
