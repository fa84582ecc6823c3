package storage

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clinic_queue/internal/config"
	"clinic_queue/internal/models"
)

// NewGormLogger routes gorm's SQL logging through logrus.
func NewGormLogger(logger logrus.FieldLogger, level logrus.Level) gormlogger.Interface {
	gormLevel := gormlogger.Warn
	switch {
	case level >= logrus.TraceLevel:
		gormLevel = gormlogger.Info
	case level <= logrus.ErrorLevel:
		gormLevel = gormlogger.Error
	}
	return gormlogger.New(logger, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
	})
}

func ConnectDatabase(ctx context.Context, cfg config.Postgres, logger logrus.FieldLogger, level logrus.Level) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: NewGormLogger(logger, level),
	})
	if err != nil {
		return nil, errors.Wrap(err, "storage: open postgres")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "storage: postgres handle")
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, errors.Wrap(err, "storage: ping postgres")
	}
	logger.WithField("host", cfg.Host).Info("connected to postgres")
	return db, nil
}

// Migrate creates or updates the queue tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Server{}, &models.QueueEntry{}, &models.AuditRecord{}); err != nil {
		return errors.Wrap(err, "storage: migrate")
	}
	return nil
}

func InitRedis(ctx context.Context, cfg config.Redis, logger logrus.FieldLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "storage: ping redis")
	}
	logger.WithField("addr", cfg.Addr()).Info("connected to redis")
	return client, nil
}
