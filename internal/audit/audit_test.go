package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic_queue/internal/models"
)

func TestRecorderRoundTripsDetails(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := &MemoryRepository{}
	rec := NewRecorder(repo, logger, time.Second)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rec.Record(context.Background(), Record{
		Actor:     "patient-1",
		Timestamp: now,
		Details:   JoinDetails{EntryID: "e1", ServerID: "dr-1", ConsumerID: "patient-1", ServiceDay: "2026-03-02", SequenceNumber: 4},
	})
	rec.Record(context.Background(), Record{
		Actor:     "dr-1",
		Timestamp: now.Add(time.Minute),
		Details:   SessionDetails{ServerID: "dr-1", IsAccepting: false},
	})

	rows := repo.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "QUEUE_JOIN", rows[0].Action)
	assert.Equal(t, "dr-1", rows[0].ServerID)
	assert.Equal(t, "SERVER_SESSION_STOP", rows[1].Action)

	history, err := rec.History(context.Background(), Filter{ServerID: "dr-1"})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ActionSessionStop, history[0].Action) // newest first
	assert.Equal(t, JoinDetails{EntryID: "e1", ServerID: "dr-1", ConsumerID: "patient-1", ServiceDay: "2026-03-02", SequenceNumber: 4}, history[1].Details)
	assert.Zero(t, rec.Failures())
}

func TestRecorderCountsFailuresWithoutReturning(t *testing.T) {
	logger, hook := test.NewNullLogger()
	repo := &MemoryRepository{Err: errors.New("db down")}
	rec := NewRecorder(repo, logger, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // a finished request must not prevent the write attempt

	rec.Record(ctx, Record{Actor: "dr-1", Details: ServingDetails{EntryID: "e1", ServerID: "dr-1"}})
	assert.Equal(t, int64(1), rec.Failures())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, ActionEntryServing, hook.LastEntry().Data["action"])
}

func TestDecodeDetailsUnknownAction(t *testing.T) {
	_, err := DecodeDetails("NOPE", []byte(`{}`))
	assert.Error(t, err)
}

func TestEntryJSONKeepsDetailsType(t *testing.T) {
	in := Entry{
		ID:        "a1",
		Action:    ActionEntryServing,
		ServerID:  "dr-1",
		Actor:     "dr-1",
		Timestamp: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Details:   ServingDetails{EntryID: "e1", ServerID: "dr-1"},
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Entry
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"action":"NOPE","details":{}}`), &out))
}

func TestMemoryRepositoryFilters(t *testing.T) {
	repo := &MemoryRepository{}
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i, a := range []Action{ActionQueueJoin, ActionEntryServing, ActionQueueJoin} {
		require.NoError(t, repo.Append(context.Background(), models.AuditRecord{
			ID: string(rune('a' + i)), Action: string(a), ServerID: "s", Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	rows, err := repo.Recent(context.Background(), Filter{Action: ActionQueueJoin, Since: base.Add(time.Second)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0].ID)
}

type fakeWriter struct {
	mu     sync.Mutex
	fails  int
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestKafkaSinkRetriesAndDrains(t *testing.T) {
	logger, _ := test.NewNullLogger()
	w := &fakeWriter{fails: 1}
	sink := NewKafkaSink(w, logger, 8)
	sink.backoff = time.Millisecond
	sink.Start(1)

	sink.Publish(models.AuditRecord{ID: "1", ServerID: "dr-1", Action: "QUEUE_JOIN"})
	sink.Publish(models.AuditRecord{ID: "2", ServerID: "dr-1", Action: "QUEUE_CANCEL"})
	require.NoError(t, sink.Close())

	assert.True(t, w.closed)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, []byte("dr-1"), w.msgs[0].Key)
	assert.Zero(t, sink.Dropped())

	sink.Publish(models.AuditRecord{ID: "3"}) // after close: ignored
	assert.Len(t, w.msgs, 2)
}

func TestKafkaSinkDropsWhenFull(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sink := NewKafkaSink(&fakeWriter{}, logger, 1)
	// no workers: the buffer never drains
	sink.Publish(models.AuditRecord{ID: "1"})
	sink.Publish(models.AuditRecord{ID: "2"})
	assert.Equal(t, int64(1), sink.Dropped())
}
