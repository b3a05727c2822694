package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the client-side contact card. Purely user-edited,
// no derived columns.
type UserProfile struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	FullName    string `gorm:"type:varchar(100);not null" json:"full_name"`
	PhoneNumber string `gorm:"type:varchar(20)" json:"phone_number"`
	Email       string `gorm:"type:varchar(150)" json:"email"`
	Address     string `gorm:"type:varchar(200)" json:"address"`
	City        string `gorm:"type:varchar(100)" json:"city"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
