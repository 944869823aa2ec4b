package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the durable account record owned by the credential service.
// The realtime core never reads it directly; it only sees the Identity derived from it.
type User struct {
	ID           string    `gorm:"primaryKey" json:"id"` // UUID
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	DisplayName  string    `gorm:"size:128" json:"displayName"`
	AvatarURL    string    `json:"avatarUrl"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BeforeCreate is the GORM hook that assigns a UUID when the ID is not set yet.
// It also falls back to the username when no display name was given.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	return
}

// Identity is the verified view of a user that a live session carries around.
// It is immutable for the lifetime of a session.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Identity projects the stored user onto the fields the realtime core needs.
func (u *User) Identity() Identity {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return Identity{ID: u.ID, DisplayName: name, AvatarURL: u.AvatarURL}
}
