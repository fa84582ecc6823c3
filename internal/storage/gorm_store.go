package storage

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic_queue/internal/models"
	"clinic_queue/internal/queue"
)

var activeStatuses = []models.Status{models.StatusWaiting, models.StatusServing}

type reader struct {
	db *gorm.DB
}

// GormStore is the durable queue store. Per-server exclusion comes from the
// controller's lock; the unique indexes on the guard columns and the
// conditional status updates keep the invariants even without it.
type GormStore struct {
	reader
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{reader{db: db}}
}

func (s *GormStore) Atomic(ctx context.Context, fn func(tx queue.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormTx{reader{db: tx}})
	})
}

// SaveServer inserts or updates a server's descriptive fields. Used by seeding.
func (s *GormStore) SaveServer(ctx context.Context, server models.Server) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "department", "updated_at"}),
	}).Create(&server).Error
	return errors.Wrap(err, "storage: save server")
}

func (r reader) GetServer(ctx context.Context, serverID string) (models.Server, error) {
	var s models.Server
	err := r.db.WithContext(ctx).Where("id = ?", serverID).Take(&s).Error
	return s, notFoundOr(err, "get server")
}

func (r reader) ListServers(ctx context.Context) ([]models.Server, error) {
	var servers []models.Server
	err := r.db.WithContext(ctx).Order("department, name").Find(&servers).Error
	return servers, errors.Wrap(err, "storage: list servers")
}

func (r reader) GetEntry(ctx context.Context, entryID string) (models.QueueEntry, error) {
	var e models.QueueEntry
	err := r.db.WithContext(ctx).Where("id = ?", entryID).Take(&e).Error
	return e, notFoundOr(err, "get entry")
}

func (r reader) ActiveEntryForConsumer(ctx context.Context, consumerID string) (models.QueueEntry, error) {
	var e models.QueueEntry
	err := r.db.WithContext(ctx).
		Where("consumer_id = ? AND status IN ?", consumerID, activeStatuses).
		Take(&e).Error
	return e, notFoundOr(err, "active entry for consumer")
}

func (r reader) ActiveEntries(ctx context.Context, serverID string) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := r.db.WithContext(ctx).
		Where("server_id = ? AND status IN ?", serverID, activeStatuses).
		Order("joined_at, sequence_number").
		Find(&entries).Error
	return entries, errors.Wrap(err, "storage: active entries")
}

func (r reader) MaxSequence(ctx context.Context, serverID, serviceDay string) (int, error) {
	var n int
	err := r.db.WithContext(ctx).Model(&models.QueueEntry{}).
		Select("COALESCE(MAX(sequence_number), 0)").
		Where("server_id = ? AND service_day = ?", serverID, serviceDay).
		Row().Scan(&n)
	return n, errors.Wrap(err, "storage: max sequence")
}

func (r reader) StaleActiveEntries(ctx context.Context, serviceDay string) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := r.db.WithContext(ctx).
		Where("service_day < ? AND status IN ?", serviceDay, activeStatuses).
		Order("service_day, joined_at").
		Find(&entries).Error
	return entries, errors.Wrap(err, "storage: stale entries")
}

func (r reader) CountByStatus(ctx context.Context, serviceDay string) ([]queue.StatusCount, error) {
	var rows []queue.StatusCount
	err := r.db.WithContext(ctx).Model(&models.QueueEntry{}).
		Select("server_id, status, COUNT(*) AS count").
		Where("service_day = ?", serviceDay).
		Group("server_id, status").
		Scan(&rows).Error
	return rows, errors.Wrap(err, "storage: count by status")
}

func (r reader) WaitingCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		ServerID string
		Count    int
	}
	err := r.db.WithContext(ctx).Model(&models.QueueEntry{}).
		Select("server_id, COUNT(*) AS count").
		Where("status = ?", models.StatusWaiting).
		Group("server_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage: waiting counts")
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.ServerID] = row.Count
	}
	return out, nil
}

type gormTx struct {
	reader
}

func (t gormTx) CreateEntry(ctx context.Context, entry *models.QueueEntry) error {
	if err := t.db.WithContext(ctx).Create(entry).Error; err != nil {
		return uniqueViolation(err, "create entry")
	}
	return nil
}

func (t gormTx) UpdateEntryStatus(ctx context.Context, entry *models.QueueEntry, expected models.Status) error {
	res := t.db.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("id = ? AND status = ?", entry.ID, expected).
		Updates(map[string]interface{}{
			"status":             entry.Status,
			"serving_started_at": entry.ServingStartedAt,
			"completed_at":       entry.CompletedAt,
			"active_consumer_id": entry.ActiveConsumerID,
			"serving_server_id":  entry.ServingServerID,
		})
	if res.Error != nil {
		return uniqueViolation(res.Error, "update entry status")
	}
	if res.RowsAffected == 0 {
		return queue.ErrStaleStatus
	}
	return nil
}

func (t gormTx) UpdateServerStats(ctx context.Context, serverID string, window []int, averageMinutes int) error {
	res := t.db.WithContext(ctx).Model(&models.Server{}).
		Where("id = ?", serverID).
		Updates(map[string]interface{}{
			"recent_service_minutes":  datatypes.NewJSONSlice(window),
			"average_service_minutes": averageMinutes,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "storage: update server stats")
	}
	if res.RowsAffected == 0 {
		return queue.ErrRecordNotFound
	}
	return nil
}

func (t gormTx) SetAccepting(ctx context.Context, serverID string, accepting bool) error {
	res := t.db.WithContext(ctx).Model(&models.Server{}).
		Where("id = ?", serverID).
		Update("is_accepting", accepting)
	if res.Error != nil {
		return errors.Wrap(res.Error, "storage: set accepting")
	}
	if res.RowsAffected == 0 {
		return queue.ErrRecordNotFound
	}
	return nil
}

func notFoundOr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return queue.ErrRecordNotFound
	}
	return errors.Wrap(err, "storage: "+op)
}

// uniqueViolation maps a unique index failure to the store error for that
// index. Index names carry the guarded column names, so both the postgres
// and sqlite messages can be matched on them.
func uniqueViolation(err error, op string) error {
	msg := strings.ToLower(err.Error())
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate") {
		return errors.Wrap(err, "storage: "+op)
	}
	switch {
	case strings.Contains(msg, "active_consumer_id"):
		return errors.WithMessage(queue.ErrDuplicateActiveConsumer, err.Error())
	case strings.Contains(msg, "serving_server_id"):
		return errors.WithMessage(queue.ErrDuplicateServing, err.Error())
	case strings.Contains(msg, "sequence_number"):
		return errors.WithMessage(queue.ErrDuplicateSequence, err.Error())
	default:
		return errors.Wrap(err, "storage: "+op)
	}
}
