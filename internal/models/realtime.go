package models

import (
	"encoding/json"
	"time"
)

// Inbound event names (client → server).
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
)

// Outbound event names (server → client).
const (
	EventLoadMessages   = "load-messages"
	EventReceiveMessage = "receive-message"
	EventUserJoined     = "user-joined"
	EventUserTyping     = "user-typing"
	EventError          = "error"
)

// InboundEvent is the envelope every client frame is decoded into.
// Data is decoded later by the handler registered for Event.
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutboundEvent is the envelope written to a session's websocket.
type OutboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type SendMessagePayload struct {
	Room     string `json:"room"`
	Content  string `json:"content,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`
	FileType string `json:"fileType,omitempty"`
}

type TypingPayload struct {
	Room     string `json:"room"`
	IsTyping bool   `json:"isTyping"`
}

type UserJoinedPayload struct {
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
}

type UserTypingPayload struct {
	DisplayName string `json:"displayName"`
	IsTyping    bool   `json:"isTyping"`
}

// ErrorPayload tells a session that one of its own requests failed.
type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// SenderView is the resolved author attached to a MessageView.
type SenderView struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// MessageView is the wire form of a persisted message.
type MessageView struct {
	ID        uint       `json:"id"`
	Room      string     `json:"room"`
	Sender    SenderView `json:"sender"`
	Content   string     `json:"content,omitempty"`
	FileURL   string     `json:"fileUrl,omitempty"`
	FileType  string     `json:"fileType"`
	CreatedAt time.Time  `json:"createdAt"`
}

// View converts a stored message (with Sender preloaded) to its wire form.
func (m Message) View() MessageView {
	return MessageView{
		ID:   m.ID,
		Room: m.Room,
		Sender: SenderView{
			ID:          m.SenderID,
			DisplayName: m.Sender.Identity().DisplayName,
			AvatarURL:   m.Sender.AvatarURL,
		},
		Content:   m.Content,
		FileURL:   m.FileURL,
		FileType:  m.FileType,
		CreatedAt: m.CreatedAt,
	}
}
