package models

import (
	"time"

	"github.com/google/uuid"
)

// MechanicProfile belongs 1:1 to a mechanic user. AverageRating and
// TotalReviews are derived columns owned by the rating service; nothing
// else writes them.
type MechanicProfile struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	GarageName     string `gorm:"type:varchar(200);not null" json:"garage_name"`
	Specialization string `gorm:"type:varchar(200)" json:"specialization"`

	AverageRating float64 `gorm:"default:0" json:"average_rating"` // 0-5
	TotalReviews  int     `gorm:"default:0" json:"total_reviews"`

	IsVerifiedByAdmin bool `gorm:"default:false" json:"is_verified_by_admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
