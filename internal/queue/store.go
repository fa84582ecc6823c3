package queue

import (
	"context"

	"github.com/pkg/errors"

	"clinic_queue/internal/models"
)

// Errors every Store implementation must return for the conditions below.
var (
	ErrRecordNotFound          = errors.New("store: record not found")
	ErrStaleStatus             = errors.New("store: entry status changed concurrently")
	ErrDuplicateActiveConsumer = errors.New("store: consumer already holds an active entry")
	ErrDuplicateServing        = errors.New("store: server already has a serving entry")
	ErrDuplicateSequence       = errors.New("store: sequence number already assigned for server day")
)

// StatusCount is one row of a per-server status histogram.
type StatusCount struct {
	ServerID string
	Status   models.Status
	Count    int
}

// Reader is the read side of the queue store.
type Reader interface {
	GetServer(ctx context.Context, serverID string) (models.Server, error)
	ListServers(ctx context.Context) ([]models.Server, error)
	GetEntry(ctx context.Context, entryID string) (models.QueueEntry, error)
	// ActiveEntryForConsumer returns ErrRecordNotFound when the consumer has no waiting or serving entry.
	ActiveEntryForConsumer(ctx context.Context, consumerID string) (models.QueueEntry, error)
	// ActiveEntries returns waiting and serving entries ordered by joinedAt, then sequenceNumber.
	ActiveEntries(ctx context.Context, serverID string) ([]models.QueueEntry, error)
	MaxSequence(ctx context.Context, serverID, serviceDay string) (int, error)
	// StaleActiveEntries returns active entries whose service day is before serviceDay.
	StaleActiveEntries(ctx context.Context, serviceDay string) ([]models.QueueEntry, error)
	CountByStatus(ctx context.Context, serviceDay string) ([]StatusCount, error)
	// WaitingCounts maps server id to the number of waiting entries, across all service days.
	WaitingCounts(ctx context.Context) (map[string]int, error)
}

// Tx is the write side, only available inside Store.Atomic.
type Tx interface {
	Reader
	// CreateEntry inserts a new entry. Violations of the consumer, serving or
	// sequence uniqueness constraints surface as the ErrDuplicate* errors.
	CreateEntry(ctx context.Context, entry *models.QueueEntry) error
	// UpdateEntryStatus is a conditional write: it persists entry's status,
	// timestamps and guards only if the stored status still equals expected,
	// otherwise it returns ErrStaleStatus.
	UpdateEntryStatus(ctx context.Context, entry *models.QueueEntry, expected models.Status) error
	UpdateServerStats(ctx context.Context, serverID string, window []int, averageMinutes int) error
	SetAccepting(ctx context.Context, serverID string, accepting bool) error
}

// Store is the durable queue state. Atomic runs fn in a transaction that
// commits entirely or not at all; an error from fn rolls back and is returned
// unchanged.
type Store interface {
	Reader
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
