package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"clinic_queue/internal/auth"
	"clinic_queue/internal/config"
	"clinic_queue/internal/models"
	"clinic_queue/internal/storage"
)

var demoServers = []models.Server{
	{ID: "dr-ivanova", Name: "Dr. Ivanova", Department: "therapy"},
	{ID: "dr-petrov", Name: "Dr. Petrov", Department: "surgery"},
	{ID: "dr-sidorova", Name: "Dr. Sidorova", Department: "pediatrics"},
}

type SeedCommand struct {
	Logger *log.Logger
}

func (cmd SeedCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	var tokenTTL time.Duration
	c := &cobra.Command{
		Use:   "seed",
		Short: "create demo servers and print demo access tokens",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx, tokenTTL)
		},
	}
	c.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed tokens")
	return c
}

func (cmd SeedCommand) main(cfg *config.Config, ctx context.Context, ttl time.Duration) {
	if cfg.Auth.AccessSecret == "" {
		cmd.Logger.WithContext(ctx).Fatal("seed : ACCESS_SECRET is not set")
		return
	}
	db, err := storage.ConnectDatabase(ctx, cfg.Database.Postgres, cmd.Logger, cfg.LogLevel)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "seed : failed to connect to postgresql"))
		return
	}
	if err := storage.Migrate(db); err != nil {
		cmd.Logger.WithContext(ctx).Fatal(err)
		return
	}
	if err := seedServers(ctx, storage.NewGormStore(db), cfg.Queue.DefaultServiceMinutes); err != nil {
		cmd.Logger.WithContext(ctx).Fatal(err)
		return
	}

	secret := []byte(cfg.Auth.AccessSecret)
	identities := []auth.Identity{
		{Subject: "patient-1", Role: auth.RolePatient},
		{Subject: "patient-2", Role: auth.RolePatient},
		{Subject: "staff-1", Role: auth.RoleStaff},
		{Subject: "admin-1", Role: auth.RoleAdmin},
	}
	for _, s := range demoServers {
		identities = append(identities, auth.Identity{Subject: s.ID, Role: auth.RoleDoctor})
	}
	for _, id := range identities {
		token, err := auth.Sign(secret, id, ttl)
		if err != nil {
			cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "seed : failed to sign token"))
			return
		}
		fmt.Printf("%-8s %-12s %s\n", id.Role, id.Subject, token)
	}
}

func seedServers(ctx context.Context, saver serverSaver, defaultMinutes int) error {
	for _, s := range demoServers {
		s.IsAccepting = true
		s.AverageServiceMinutes = defaultMinutes
		if err := saver.SaveServer(ctx, s); err != nil {
			return errors.Wrapf(err, "seed server %s", s.ID)
		}
	}
	return nil
}
