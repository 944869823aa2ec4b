package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Room is a catalog entry for a named channel.
// Its Participants are the durable membership list; who is connected right now
// is tracked separately by the chathub Registry and never persisted.
type Room struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the unique room name clients use in join-room.
	Name string `gorm:"uniqueIndex;size:128;not null" json:"name"`
	// Kind is either "public" or "private".
	Kind string `gorm:"size:16;not null;default:public;index" json:"type"`
	// Participants holds the user IDs that belong to the room.
	Participants UserIDs `json:"participants"`
	// CreatorID is the user who created the room.
	CreatorID string `gorm:"index" json:"createdBy"`
	// CreatedAt is set by GORM on insert.
	CreatedAt time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is in the durable participant list
// or is the room creator.
func (r *Room) HasParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	if r.CreatorID == userID {
		return true
	}
	for _, id := range r.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// NewRoom is the input of the catalog's create operation.
type NewRoom struct {
	Name      string `validate:"required,max=128,excludesall=/?#"`
	Kind      string `validate:"oneof=public private"`
	CreatorID string
}

// UserIDs is a list of user IDs stored as a PostgreSQL text[] column.
// Other dialects keep the same array literal in a plain text column.
type UserIDs pq.StringArray

func (UserIDs) GormDataType() string {
	return "text"
}

func (UserIDs) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (a UserIDs) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

func (a *UserIDs) Scan(src any) error {
	return (*pq.StringArray)(a).Scan(src)
}
