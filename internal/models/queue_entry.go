package models

import (
	"time"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusServing   Status = "serving"
	StatusServed    Status = "served"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// IsActive reports whether an entry in this status still occupies the queue.
func (s Status) IsActive() bool {
	return s == StatusWaiting || s == StatusServing
}

func (s Status) IsTerminal() bool {
	return s == StatusServed || s == StatusSkipped || s == StatusCancelled
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusWaiting:
		return next == StatusServing || next == StatusSkipped || next == StatusCancelled
	case StatusServing:
		return next == StatusServed || next == StatusSkipped || next == StatusCancelled
	default:
		return false
	}
}

type QueueEntry struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	ConsumerID       string     `gorm:"size:64;index;not null" json:"consumer_id"`
	ServerID         string     `gorm:"size:64;not null;index:idx_entries_server_status;uniqueIndex:idx_server_day_sequence_number" json:"server_id"`
	ServiceDay       string     `gorm:"size:10;not null;uniqueIndex:idx_server_day_sequence_number" json:"service_day"` // YYYY-MM-DD in the service time zone
	SequenceNumber   int        `gorm:"not null;uniqueIndex:idx_server_day_sequence_number" json:"sequence_number"`
	Status           Status     `gorm:"size:16;not null;index:idx_entries_server_status" json:"status"`
	JoinedAt         time.Time  `gorm:"not null;index" json:"joined_at"`
	ServingStartedAt *time.Time `json:"serving_started_at"`
	CompletedAt      *time.Time `json:"completed_at"`

	// Uniqueness guards: set only while the entry is active / serving, NULL otherwise.
	ActiveConsumerID *string `gorm:"size:64;uniqueIndex:idx_active_consumer_id" json:"-"`
	ServingServerID  *string `gorm:"size:64;uniqueIndex:idx_serving_server_id" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// SyncGuards aligns the uniqueness guard columns with the current status.
func (e *QueueEntry) SyncGuards() {
	e.ActiveConsumerID = nil
	e.ServingServerID = nil
	if e.Status.IsActive() {
		consumerID := e.ConsumerID
		e.ActiveConsumerID = &consumerID
	}
	if e.Status == StatusServing {
		serverID := e.ServerID
		e.ServingServerID = &serverID
	}
}

// Before orders entries by arrival: joinedAt first, sequence number on ties.
func (e QueueEntry) Before(other QueueEntry) bool {
	if !e.JoinedAt.Equal(other.JoinedAt) {
		return e.JoinedAt.Before(other.JoinedAt)
	}
	return e.SequenceNumber < other.SequenceNumber
}
