package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditRecord is append-only; rows are never updated or deleted.
type AuditRecord struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Action    string         `gorm:"size:48;not null;index:idx_audit_action_time" json:"action"`
	ServerID  string         `gorm:"size:64;index" json:"server_id,omitempty"`
	Details   datatypes.JSON `json:"details"`
	Actor     string         `gorm:"size:64;not null" json:"actor"`
	Timestamp time.Time      `gorm:"not null;index;index:idx_audit_action_time" json:"timestamp"`
}
