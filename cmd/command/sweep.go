package command

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"clinic_queue/internal/config"
)

// SweepCommand expires stale entries once, for use from an external scheduler.
type SweepCommand struct {
	Logger *log.Logger
}

func (cmd SweepCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "cancel entries left active from previous service days",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx)
		},
	}
}

func (cmd SweepCommand) main(cfg *config.Config, ctx context.Context) {
	loc, err := cfg.Location()
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(err)
		return
	}
	rt, err := buildBackends(ctx, cfg, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "sweep : failed to build backends"))
		return
	}
	defer rt.Close()

	n, err := rt.controller(cfg, loc, cmd.Logger, nil).ExpireStale(ctx)
	if err != nil {
		cmd.Logger.WithContext(ctx).WithField("expired", n).Error(err)
		return
	}
	cmd.Logger.WithContext(ctx).WithField("expired", n).Info("sweep finished")
}
