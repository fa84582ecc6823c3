package main

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"clinic_queue/cmd/command"
	_ "clinic_queue/docs"
	"clinic_queue/internal/config"
)

// @Title						Clinic queue
// @Description				Live patient queues per doctor with ETA estimates
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	const description = "Clinic Queue Server"
	root := &cobra.Command{Short: description}

	cfg, err := config.Load()
	if err != nil {
		log.WithContext(ctx).Fatal(err)
	}

	logger := log.New()
	logger.SetLevel(cfg.LogLevel)
	if cfg.AppEnv == config.ProductionEnv {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	root.AddCommand(
		command.Server{Logger: logger}.Command(ctx, cfg),
		command.MigrateCommand{Logger: logger}.Command(ctx, cfg),
		command.SeedCommand{Logger: logger}.Command(ctx, cfg),
		command.SweepCommand{Logger: logger}.Command(ctx, cfg),
	)

	if err := root.Execute(); err != nil {
		logger.WithContext(ctx).Fatalf("failed to execute root command: \n%v", err)
	}
}
