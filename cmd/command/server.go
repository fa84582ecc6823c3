package command

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"clinic_queue/internal/api"
	"clinic_queue/internal/auth"
	"clinic_queue/internal/config"
	"clinic_queue/internal/handlers"
	"clinic_queue/internal/tasks"
	"clinic_queue/internal/ws"
)

type Server struct {
	Logger *logrus.Logger
}

func (cmd Server) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "run the queue API server",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx)
		},
	}
}

func (cmd Server) main(cfg *config.Config, ctx context.Context) {
	if cfg.Auth.AccessSecret == "" {
		cmd.Logger.WithContext(ctx).Fatal("server : ACCESS_SECRET is not set")
		return
	}
	loc, err := cfg.Location()
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(err)
		return
	}

	rt, err := buildBackends(ctx, cfg, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to build backends"))
		return
	}
	defer rt.Close()

	if cfg.Queue.StoreBackend == config.BackendMemory {
		// nothing persists in this mode, so start with the demo roster
		if err := seedServers(ctx, rt.servers, cfg.Queue.DefaultServiceMinutes); err != nil {
			cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to seed servers"))
			return
		}
	}

	hub := ws.NewHub(cmd.Logger, cfg.Queue.SubscriberBuffer)
	go hub.Run(ctx)

	controller := rt.controller(cfg, loc, cmd.Logger, hub)

	scheduler := tasks.NewScheduler(controller, cmd.Logger, loc)
	if err := scheduler.InitSweep(cfg.Tasks.SweepSchedule); err != nil {
		cmd.Logger.WithContext(ctx).Fatal(err)
		return
	}
	scheduler.Start(ctx)
	// catch up on anything left over while the server was down
	scheduler.Sweep()

	server := api.New(cfg.HTTP, cfg.AppEnv, cmd.Logger)
	handlers.New(controller, rt.recorder, hub, cmd.Logger).
		Register(server.Router(), auth.Middleware([]byte(cfg.Auth.AccessSecret)))

	if err := server.Serve(ctx, fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
		cmd.Logger.Fatal(err)
	}

	cmd.Logger.WithFields(logrus.Fields{
		"audit_failures":   rt.recorder.Failures(),
		"dropped_messages": hub.Dropped(),
		"evicted_clients":  hub.Evicted(),
	}).Info("server stopped")
}
