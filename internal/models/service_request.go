package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ServiceStatus string

const (
	StatusPending   ServiceStatus = "pending"   // created, waiting for a mechanic
	StatusAccepted  ServiceStatus = "accepted"  // claimed by a mechanic
	StatusRejected  ServiceStatus = "rejected"  // terminal
	StatusCompleted ServiceStatus = "completed" // terminal, reviewable
)

type ServiceRequest struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ClientID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	MechanicID *uuid.UUID `gorm:"type:uuid;index" json:"mechanic_id,omitempty"`

	ServiceTypeID      uint   `gorm:"index;not null" json:"service_type_id"`
	ProblemDescription string `gorm:"type:varchar(500);not null" json:"problem_description"`

	LocationAddress   string   `gorm:"type:varchar(200);not null" json:"location_address"`
	LocationLatitude  *float64 `json:"location_latitude,omitempty"`
	LocationLongitude *float64 `json:"location_longitude,omitempty"`

	Status    ServiceStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Advisory columns, filled best-effort at creation time. Absent when
	// the oracle call failed.
	AiSuggestedServiceType string         `gorm:"type:varchar(100)" json:"ai_suggested_service_type,omitempty"`
	AiPossibleReasons      datatypes.JSON `json:"ai_possible_reasons,omitempty"` // string array
	AiUrgency              string         `gorm:"type:varchar(10)" json:"ai_urgency,omitempty"` // High | Medium | Low
	AiRecommendTowing      *bool          `json:"ai_recommend_towing,omitempty"`
	AiCalculatedAt         *time.Time     `json:"ai_calculated_at,omitempty"`

	Client      *User        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Mechanic    *User        `gorm:"foreignKey:MechanicID" json:"mechanic,omitempty"`
	ServiceType *ServiceType `gorm:"foreignKey:ServiceTypeID" json:"service_type,omitempty"`
}
