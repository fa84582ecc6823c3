package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clinic_queue/internal/models"
)

// Repository persists audit rows.
type Repository interface {
	Append(ctx context.Context, row models.AuditRecord) error
	Recent(ctx context.Context, filter Filter) ([]models.AuditRecord, error)
}

// Sink receives a copy of every persisted row; delivery is best effort.
type Sink interface {
	Publish(row models.AuditRecord)
}

type Filter struct {
	ServerID string
	Action   Action
	Since    time.Time
	Limit    int
}

// Recorder writes audit rows after the state change they describe has
// committed. A failed write is logged and counted, never returned: the
// state change stands regardless.
type Recorder struct {
	repo     Repository
	sinks    []Sink
	logger   logrus.FieldLogger
	timeout  time.Duration
	failures atomic.Int64
}

func NewRecorder(repo Repository, logger logrus.FieldLogger, timeout time.Duration, sinks ...Sink) *Recorder {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Recorder{repo: repo, sinks: sinks, logger: logger, timeout: timeout}
}

func (r *Recorder) Record(ctx context.Context, rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	row, err := encode(uuid.NewString(), rec)
	if err != nil {
		r.fail(err, rec)
		return
	}

	// The request may already be done; the audit row must still be written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.repo.Append(ctx, row); err != nil {
		r.fail(err, rec)
		return
	}
	for _, s := range r.sinks {
		s.Publish(row)
	}
}

func (r *Recorder) fail(err error, rec Record) {
	n := r.failures.Add(1)
	r.logger.WithError(err).WithFields(logrus.Fields{
		"action":   rec.Details.Action(),
		"server":   rec.Details.Server(),
		"actor":    rec.Actor,
		"failures": n,
	}).Error("audit write failed")
}

// Failures is the number of audit rows lost since start.
func (r *Recorder) Failures() int64 {
	return r.failures.Load()
}

// History returns decoded rows, newest first. Rows that fail to decode are skipped.
func (r *Recorder) History(ctx context.Context, filter Filter) ([]Entry, error) {
	rows, err := r.repo.Recent(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e, err := Decode(row)
		if err != nil {
			r.logger.WithError(err).WithField("audit_id", row.ID).Warn("skipping undecodable audit row")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
