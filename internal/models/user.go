package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // pq.StringArray for the participants column
	"gorm.io/gorm"
)

// User is the durable user record. The realtime layer only ever writes
// LastActiveAt; everything else is owned by the account collaborator.
type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex" json:"username"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// BeforeCreate is a GORM hook that assigns a fresh UUID when the ID is not
// set by the caller.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Conversation holds the participant list consulted when a connection asks
// to join a conversation room. Membership of the list itself is managed by
// the messaging collaborator.
type Conversation struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	Participants pq.StringArray `gorm:"type:text[]" json:"participants"`
	CreatedAt    time.Time      `json:"createdAt"`
}
