// Package audit records an append-only history of queue state changes.
package audit

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"clinic_queue/internal/models"
)

type Action string

const (
	ActionQueueJoin    Action = "QUEUE_JOIN"
	ActionEntryServing Action = "ENTRY_SERVING"
	ActionEntryServed  Action = "ENTRY_SERVED"
	ActionEntrySkipped Action = "ENTRY_SKIPPED"
	ActionQueueCancel  Action = "QUEUE_CANCEL"
	ActionSessionStart Action = "SERVER_SESSION_START"
	ActionSessionStop  Action = "SERVER_SESSION_STOP"
	ActionEntryExpired Action = "ENTRY_EXPIRED"
)

// Details is the action-specific payload. Each action has exactly one
// concrete type; DecodeDetails restores it from a stored row.
type Details interface {
	Action() Action
	Server() string
}

type JoinDetails struct {
	EntryID        string `json:"entry_id"`
	ServerID       string `json:"server_id"`
	ConsumerID     string `json:"consumer_id"`
	ServiceDay     string `json:"service_day"`
	SequenceNumber int    `json:"sequence_number"`
}

func (JoinDetails) Action() Action   { return ActionQueueJoin }
func (d JoinDetails) Server() string { return d.ServerID }

type ServingDetails struct {
	EntryID        string `json:"entry_id"`
	ServerID       string `json:"server_id"`
	ConsumerID     string `json:"consumer_id"`
	SequenceNumber int    `json:"sequence_number"`
}

func (ServingDetails) Action() Action   { return ActionEntryServing }
func (d ServingDetails) Server() string { return d.ServerID }

type ServedDetails struct {
	EntryID               string `json:"entry_id"`
	ServerID              string `json:"server_id"`
	DurationMinutes       int    `json:"duration_minutes"`
	DurationAccepted      bool   `json:"duration_accepted"`
	AverageServiceMinutes int    `json:"average_service_minutes"`
}

func (ServedDetails) Action() Action   { return ActionEntryServed }
func (d ServedDetails) Server() string { return d.ServerID }

type SkippedDetails struct {
	EntryID    string        `json:"entry_id"`
	ServerID   string        `json:"server_id"`
	FromStatus models.Status `json:"from_status"`
}

func (SkippedDetails) Action() Action   { return ActionEntrySkipped }
func (d SkippedDetails) Server() string { return d.ServerID }

type CancelledDetails struct {
	EntryID     string        `json:"entry_id"`
	ServerID    string        `json:"server_id"`
	FromStatus  models.Status `json:"from_status"`
	RequestedBy string        `json:"requested_by"`
}

func (CancelledDetails) Action() Action   { return ActionQueueCancel }
func (d CancelledDetails) Server() string { return d.ServerID }

// ExpiredDetails marks an entry cancelled by the end-of-day sweep.
type ExpiredDetails struct {
	EntryID    string        `json:"entry_id"`
	ServerID   string        `json:"server_id"`
	ServiceDay string        `json:"service_day"`
	FromStatus models.Status `json:"from_status"`
}

func (ExpiredDetails) Action() Action   { return ActionEntryExpired }
func (d ExpiredDetails) Server() string { return d.ServerID }

type SessionDetails struct {
	ServerID    string `json:"server_id"`
	IsAccepting bool   `json:"is_accepting"`
}

func (d SessionDetails) Action() Action {
	if d.IsAccepting {
		return ActionSessionStart
	}
	return ActionSessionStop
}
func (d SessionDetails) Server() string { return d.ServerID }

// Record is one audit event before persistence.
type Record struct {
	Actor     string
	Timestamp time.Time
	Details   Details
}

// Entry is a decoded audit row.
type Entry struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	ServerID  string    `json:"server_id,omitempty"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Details   Details   `json:"details"`
}

func encode(id string, rec Record) (models.AuditRecord, error) {
	raw, err := json.Marshal(rec.Details)
	if err != nil {
		return models.AuditRecord{}, errors.Wrap(err, "marshal audit details")
	}
	return models.AuditRecord{
		ID:        id,
		Action:    string(rec.Details.Action()),
		ServerID:  rec.Details.Server(),
		Details:   raw,
		Actor:     rec.Actor,
		Timestamp: rec.Timestamp,
	}, nil
}

// Decode restores a stored row into an Entry with its typed Details.
func Decode(row models.AuditRecord) (Entry, error) {
	details, err := DecodeDetails(Action(row.Action), row.Details)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:        row.ID,
		Action:    Action(row.Action),
		ServerID:  row.ServerID,
		Actor:     row.Actor,
		Timestamp: row.Timestamp,
		Details:   details,
	}, nil
}

// UnmarshalJSON restores the concrete Details type named by Action, so
// history fetched over the API decodes the same way stored rows do.
func (e *Entry) UnmarshalJSON(b []byte) error {
	type plain Entry
	var raw struct {
		plain
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Entry(raw.plain)
	if len(raw.Details) == 0 || string(raw.Details) == "null" {
		e.Details = nil
		return nil
	}
	details, err := DecodeDetails(e.Action, raw.Details)
	if err != nil {
		return err
	}
	e.Details = details
	return nil
}

func DecodeDetails(action Action, raw []byte) (Details, error) {
	switch action {
	case ActionQueueJoin:
		return decodeAs[JoinDetails](action, raw)
	case ActionEntryServing:
		return decodeAs[ServingDetails](action, raw)
	case ActionEntryServed:
		return decodeAs[ServedDetails](action, raw)
	case ActionEntrySkipped:
		return decodeAs[SkippedDetails](action, raw)
	case ActionQueueCancel:
		return decodeAs[CancelledDetails](action, raw)
	case ActionEntryExpired:
		return decodeAs[ExpiredDetails](action, raw)
	case ActionSessionStart, ActionSessionStop:
		return decodeAs[SessionDetails](action, raw)
	default:
		return nil, errors.Errorf("unknown audit action %q", action)
	}
}

func decodeAs[T Details](action Action, raw []byte) (Details, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrapf(err, "decode %s details", action)
	}
	return v, nil
}
