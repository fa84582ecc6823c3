package command

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"clinic_queue/internal/config"
	"clinic_queue/internal/storage"
)

type MigrateCommand struct {
	Logger *log.Logger
}

func (cmd MigrateCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the postgres schema",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx)
		},
	}
}

func (cmd MigrateCommand) main(cfg *config.Config, ctx context.Context) {
	db, err := storage.ConnectDatabase(ctx, cfg.Database.Postgres, cmd.Logger, cfg.LogLevel)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "migrate : failed to connect to postgresql"))
		return
	}
	if err := storage.Migrate(db); err != nil {
		cmd.Logger.WithContext(ctx).Fatal(err)
		return
	}
	cmd.Logger.WithContext(ctx).Info("migration finished")
}
