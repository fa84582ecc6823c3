package audit

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"clinic_queue/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false, // workers do sync writes with timeout and retries
		BatchTimeout: 10 * time.Millisecond,
	}
}

// KafkaSink streams audit rows to a topic keyed by server id. Publish never
// blocks the caller; rows are dropped when the buffer is full.
type KafkaSink struct {
	writer  messageWriter
	logger  logrus.FieldLogger
	work    chan models.AuditRecord
	retries int
	backoff time.Duration
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

func NewKafkaSink(w messageWriter, logger logrus.FieldLogger, buffer int) *KafkaSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &KafkaSink{
		writer:  w,
		logger:  logger,
		work:    make(chan models.AuditRecord, buffer),
		retries: 3,
		backoff: 200 * time.Millisecond,
		timeout: 2 * time.Second,
	}
}

// Start launches n producer workers.
func (s *KafkaSink) Start(n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go s.produce(i)
	}
}

func (s *KafkaSink) Publish(row models.AuditRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.work <- row:
	default:
		s.dropped.Add(1)
		s.logger.WithField("action", row.Action).Warn("audit stream buffer full, dropping record")
	}
}

func (s *KafkaSink) produce(id int) {
	defer s.wg.Done()
	for row := range s.work {
		payload, err := json.Marshal(row)
		if err != nil {
			s.logger.WithError(err).Error("marshal audit record")
			continue
		}
		msg := kafka.Message{Key: []byte(row.ServerID), Value: payload, Time: row.Timestamp}

		for attempt := 1; ; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			err = s.writer.WriteMessages(ctx, msg)
			cancel()
			if err == nil {
				break
			}
			if attempt >= s.retries {
				s.dropped.Add(1)
				s.logger.WithError(err).WithFields(logrus.Fields{
					"worker": id,
					"audit":  row.ID,
				}).Error("audit stream write failed, giving up")
				break
			}
			time.Sleep(s.backoff * time.Duration(attempt))
		}
	}
}

// Dropped counts rows that never reached the topic.
func (s *KafkaSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close drains buffered rows and closes the writer.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.work)
	s.mu.Unlock()

	s.wg.Wait()
	return s.writer.Close()
}
