package config

import "time"

const (
	// History replay
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	// Room kinds
	RoomKindPublic  = "public"
	RoomKindPrivate = "private"

	// Message file types
	FileTypeNone  = "none"
	FileTypeImage = "image"
	FileTypeFile  = "file"

	// Sessions
	DefaultSessionBuffer = 256
	DefaultTokenTTL      = 72 * time.Hour
	DefaultIdentityTTL   = 10 * time.Minute
	DefaultUploadLimit   = 10 << 20
)

var RoomKinds = map[string]bool{
	RoomKindPublic:  true,
	RoomKindPrivate: true,
}
