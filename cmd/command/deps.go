package command

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"clinic_queue/internal/audit"
	"clinic_queue/internal/config"
	"clinic_queue/internal/eta"
	"clinic_queue/internal/lock"
	"clinic_queue/internal/models"
	"clinic_queue/internal/queue"
	"clinic_queue/internal/storage"
)

// backends holds the store, lock and audit wiring selected by configuration.
type backends struct {
	store    queue.Store
	servers  serverSaver
	locker   lock.Locker
	recorder *audit.Recorder
	kafka    *audit.KafkaSink
	closers  []func() error
}

type serverSaver interface {
	SaveServer(ctx context.Context, server models.Server) error
}

func buildBackends(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*backends, error) {
	rt := &backends{}
	var repo audit.Repository

	switch cfg.Queue.StoreBackend {
	case config.BackendPostgres:
		db, err := storage.ConnectDatabase(ctx, cfg.Database.Postgres, logger, cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		if err := storage.Migrate(db); err != nil {
			return nil, err
		}
		store := storage.NewGormStore(db)
		rt.store, rt.servers = store, store
		repo = audit.NewGormRepository(db)
		if sqlDB, err := db.DB(); err == nil {
			rt.closers = append(rt.closers, sqlDB.Close)
		}
	case config.BackendMemory:
		store := storage.NewMemoryStore()
		rt.store, rt.servers = store, store
		repo = &audit.MemoryRepository{}
		logger.Warn("using the in-memory store: queue state is lost on restart")
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Queue.StoreBackend)
	}

	switch cfg.Queue.LockBackend {
	case config.BackendRedis:
		client, err := storage.InitRedis(ctx, cfg.Database.Redis, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.locker = lock.NewRedis(client, logger, "clinic_queue:lock:", 2*(cfg.Queue.LockTimeout+cfg.Queue.StoreTimeout))
		rt.closers = append(rt.closers, client.Close)
	case config.BackendLocal:
		rt.locker = lock.NewLocal()
	default:
		rt.Close()
		return nil, errors.Errorf("unknown lock backend %q", cfg.Queue.LockBackend)
	}

	var sinks []audit.Sink
	if strings.TrimSpace(cfg.Kafka.Brokers) != "" {
		rt.kafka = audit.NewKafkaSink(audit.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic), logger, 256)
		rt.kafka.Start(cfg.Kafka.Workers)
		sinks = append(sinks, rt.kafka)
		logger.WithField("topic", cfg.Kafka.AuditTopic).Infof("started %d kafka audit workers", cfg.Kafka.Workers)
	}
	rt.recorder = audit.NewRecorder(repo, logger, cfg.Queue.StoreTimeout, sinks...)
	return rt, nil
}

func (rt *backends) controller(cfg *config.Config, loc *time.Location, logger logrus.FieldLogger, notifier queue.Notifier) *queue.Controller {
	return queue.NewController(queue.Options{
		Store:        rt.store,
		Locker:       rt.locker,
		Notifier:     notifier,
		Auditor:      rt.recorder,
		Tracker:      eta.NewTracker(cfg.Queue.WindowSize, cfg.Queue.DefaultServiceMinutes, cfg.Queue.MaxServiceMinutes),
		Logger:       logger,
		Location:     loc,
		LockTimeout:  cfg.Queue.LockTimeout,
		StoreTimeout: cfg.Queue.StoreTimeout,
	})
}

// Close releases backends in reverse order; the Kafka sink drains first.
func (rt *backends) Close() {
	if rt.kafka != nil {
		_ = rt.kafka.Close()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
}
