package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

type AppEnv string

const (
	ProductionEnv AppEnv = "production"
	DevelopEnv    AppEnv = "develop"
	LocalEnv      AppEnv = "local"
	TestEnv       AppEnv = "test"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendLocal    = "local"
	BackendRedis    = "redis"
)

type (
	Config struct {
		AppEnv   AppEnv
		LogLevel logrus.Level
		HTTP     HTTP
		Database Database
		Kafka    Kafka
		Auth     Auth
		Queue    Queue
		Tasks    Tasks
	}

	HTTP struct {
		Port         int
		AllowOrigins []string
	}

	Database struct {
		Postgres Postgres
		Redis    Redis
	}

	Postgres struct {
		Host     string
		Port     int
		Username string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Host     string
		Port     int
		Password string
		Database int
	}

	Kafka struct {
		// Brokers is a comma separated list; empty disables the audit stream.
		Brokers    string
		AuditTopic string
		Workers    int
	}

	Auth struct {
		AccessSecret string
	}

	Queue struct {
		DefaultServiceMinutes int
		WindowSize            int
		MaxServiceMinutes     int
		Timezone              string
		LockTimeout           time.Duration
		StoreTimeout          time.Duration
		LockBackend           string
		StoreBackend          string
		SubscriberBuffer      int
	}

	Tasks struct {
		// SweepSchedule is a cron spec with a seconds field.
		SweepSchedule string
	}
)

func Default() *Config {
	return &Config{
		AppEnv:   LocalEnv,
		LogLevel: logrus.InfoLevel,
		HTTP: HTTP{
			Port:         8080,
			AllowOrigins: []string{"*"},
		},
		Database: Database{
			Postgres: Postgres{Host: "localhost", Port: 5432, Username: "postgres", Database: "clinic_queue", SSLMode: "disable"},
			Redis:    Redis{Host: "localhost", Port: 6379},
		},
		Kafka: Kafka{AuditTopic: "queue-audit", Workers: 2},
		Queue: Queue{
			DefaultServiceMinutes: 15,
			WindowSize:            20,
			MaxServiceMinutes:     120,
			Timezone:              "Local",
			LockTimeout:           5 * time.Second,
			StoreTimeout:          5 * time.Second,
			LockBackend:           BackendLocal,
			StoreBackend:          BackendPostgres,
			SubscriberBuffer:      32,
		},
		Tasks: Tasks{SweepSchedule: "0 5 0 * * *"},
	}
}

// Load reads .env (unless ENV_CHECK says the environment is already set up)
// and overlays environment variables on Default.
func Load() (*Config, error) {
	if os.Getenv("ENV_CHECK") == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "config: load .env")
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv overlays the variables returned by getenv on Default.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	var errs []string

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := cast.ToIntE(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := cast.ToDurationE(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = d
		}
	}

	if v := getenv("APP_ENV"); v != "" {
		cfg.AppEnv = AppEnv(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("LOG_LEVEL: %v", err))
		} else {
			cfg.LogLevel = lvl
		}
	}

	num("HTTP_PORT", &cfg.HTTP.Port)
	if v := getenv("HTTP_ALLOW_ORIGINS"); v != "" {
		cfg.HTTP.AllowOrigins = cast.ToStringSlice(strings.ReplaceAll(v, ",", " "))
	}

	str("DB_HOST", &cfg.Database.Postgres.Host)
	num("DB_PORT", &cfg.Database.Postgres.Port)
	str("DB_USER", &cfg.Database.Postgres.Username)
	str("DB_PASSWORD", &cfg.Database.Postgres.Password)
	str("DB_NAME", &cfg.Database.Postgres.Database)
	str("DB_SSLMODE", &cfg.Database.Postgres.SSLMode)

	str("REDIS_HOST", &cfg.Database.Redis.Host)
	num("REDIS_PORT", &cfg.Database.Redis.Port)
	str("REDIS_PASSWORD", &cfg.Database.Redis.Password)
	num("REDIS_DB", &cfg.Database.Redis.Database)

	str("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	str("KAFKA_AUDIT_TOPIC", &cfg.Kafka.AuditTopic)
	num("KAFKA_WORKERS", &cfg.Kafka.Workers)

	str("ACCESS_SECRET", &cfg.Auth.AccessSecret)

	num("QUEUE_DEFAULT_SERVICE_MINUTES", &cfg.Queue.DefaultServiceMinutes)
	num("QUEUE_WINDOW_SIZE", &cfg.Queue.WindowSize)
	num("QUEUE_MAX_SERVICE_MINUTES", &cfg.Queue.MaxServiceMinutes)
	str("QUEUE_TIMEZONE", &cfg.Queue.Timezone)
	dur("QUEUE_LOCK_TIMEOUT", &cfg.Queue.LockTimeout)
	dur("QUEUE_STORE_TIMEOUT", &cfg.Queue.StoreTimeout)
	str("QUEUE_LOCK_BACKEND", &cfg.Queue.LockBackend)
	str("QUEUE_STORE_BACKEND", &cfg.Queue.StoreBackend)
	num("QUEUE_SUBSCRIBER_BUFFER", &cfg.Queue.SubscriberBuffer)

	str("SWEEP_SCHEDULE", &cfg.Tasks.SweepSchedule)

	if len(errs) > 0 {
		return nil, errors.Errorf("config: invalid values: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Queue.LockBackend {
	case BackendLocal, BackendRedis:
	default:
		return errors.Errorf("config: unknown lock backend %q", c.Queue.LockBackend)
	}
	switch c.Queue.StoreBackend {
	case BackendMemory, BackendPostgres:
	default:
		return errors.Errorf("config: unknown store backend %q", c.Queue.StoreBackend)
	}
	if c.Queue.StoreBackend == BackendMemory && c.AppEnv == ProductionEnv {
		return errors.New("config: the memory store backend is not allowed in production")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Queue.Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Queue.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "config: invalid timezone %q", c.Queue.Timezone)
	}
	return loc, nil
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.Username, p.Password, p.Database, p.SSLMode)
}

func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
