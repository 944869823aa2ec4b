package models

import "time"

// Message is a persisted chat message. It is immutable once written.
// Ordering inside a room is CreatedAt, then ID.
type Message struct {
	ID uint `gorm:"primaryKey"`
	// Room is the room name the message was sent to.
	Room string `gorm:"size:128;not null;index:idx_room_created,priority:1"`
	// SenderID is the User.ID of the author.
	SenderID string `gorm:"not null;index"`
	// Sender is preloaded on reads so that the display name and avatar can be resolved.
	Sender User `gorm:"foreignKey:SenderID;references:ID"`
	// Content is the text body. Empty for pure file messages.
	Content string `gorm:"type:text"`
	// FileURL points at an uploaded file. Empty for pure text messages.
	FileURL string `gorm:"type:text"`
	// FileType is one of "image", "file" or "none".
	FileType  string    `gorm:"size:8;not null;default:none"`
	CreatedAt time.Time `gorm:"not null;index:idx_room_created,priority:2"`
}

// NewMessage is the input of the message store's append operation.
// Content and FileURL may not both be empty.
type NewMessage struct {
	Room     string `validate:"required,max=128"`
	SenderID string `validate:"required"`
	Content  string `validate:"required_without=FileURL"`
	FileURL  string `validate:"required_without=Content"`
	FileType string `validate:"omitempty,oneof=image file none"`
}
