package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"clinic_queue/internal/models"
)

const defaultHistoryLimit = 100

type gormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *gormRepository {
	return &gormRepository{db: db}
}

func (gr *gormRepository) Append(ctx context.Context, row models.AuditRecord) error {
	if err := gr.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "insert audit record")
	}
	return nil
}

func (gr *gormRepository) Recent(ctx context.Context, filter Filter) ([]models.AuditRecord, error) {
	q := gr.db.WithContext(ctx).Model(&models.AuditRecord{})
	if filter.ServerID != "" {
		q = q.Where("server_id = ?", filter.ServerID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", string(filter.Action))
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	var rows []models.AuditRecord
	if err := q.Order("timestamp DESC").Limit(limitOf(filter)).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list audit records")
	}
	return rows, nil
}

func limitOf(f Filter) int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return defaultHistoryLimit
	}
	return f.Limit
}

// MemoryRepository keeps rows in process memory, for tests and the in-memory store mode.
type MemoryRepository struct {
	mu   sync.Mutex
	rows []models.AuditRecord
	// Err, when set, is returned by Append.
	Err error
}

func (m *MemoryRepository) Append(_ context.Context, row models.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *MemoryRepository) Recent(_ context.Context, filter Filter) ([]models.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditRecord
	for _, row := range m.rows {
		if filter.ServerID != "" && row.ServerID != filter.ServerID {
			continue
		}
		if filter.Action != "" && row.Action != string(filter.Action) {
			continue
		}
		if !filter.Since.IsZero() && row.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if n := limitOf(filter); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Rows returns a copy of everything appended so far, in insertion order.
func (m *MemoryRepository) Rows() []models.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditRecord(nil), m.rows...)
}
