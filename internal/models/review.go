package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is 1:1 with a completed ServiceRequest; the unique index backs
// the one-review-per-request rule the handlers also check.
type Review struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ServiceRequestID uint      `gorm:"uniqueIndex;not null" json:"service_request_id"`
	ClientID         uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`

	Rating  int    `gorm:"not null" json:"rating"` // 1-5
	Comment string `gorm:"type:varchar(500)" json:"comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ServiceRequest *ServiceRequest `gorm:"foreignKey:ServiceRequestID" json:"service_request,omitempty"`
	Client         *User           `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}
