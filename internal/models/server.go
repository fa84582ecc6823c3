package models

import (
	"time"

	"gorm.io/datatypes"
)

type Server struct {
	ID                    string                   `gorm:"primaryKey;size:64" json:"id"`
	Name                  string                   `gorm:"not null" json:"name"`
	Department            string                   `gorm:"index" json:"department"`
	IsAccepting           bool                     `gorm:"not null;default:false" json:"is_accepting"`        // Whether new waiters are admitted
	AverageServiceMinutes int                      `gorm:"not null;default:15" json:"average_service_minutes"` // Maintained by the moving-average tracker
	RecentServiceMinutes  datatypes.JSONSlice[int] `json:"-"`                                                   // Most recent accepted durations, oldest first
	CreatedAt             time.Time                `json:"-"`
	UpdatedAt             time.Time                `json:"-"`
}
