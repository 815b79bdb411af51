package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"suitehub/internal/engine/webhooks"
	"suitehub/internal/pkg/logger"
	"suitehub/internal/platform/config"
	"suitehub/internal/platform/database"
	"suitehub/internal/platform/metrics"
	"suitehub/internal/platform/repositories"
	"suitehub/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.String("once", "", "Run a single job by name and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	webhookRepo := repositories.NewWebhookRepository(db)
	dispatcher := webhooks.NewDispatcher(webhookRepo, cfg.Webhooks.Timeout, cfg.Webhooks.RetryAttempts)
	m := metrics.New()
	dispatcher.OnDelivery = func(outcome string) {
		m.WebhookDeliveries.WithLabelValues(outcome).Inc()
	}

	w := workers.New(
		repositories.NewSubscriptionRepository(db),
		repositories.NewInvoiceRepository(db),
		repositories.NewPublicInviteRepository(db),
		dispatcher,
		m,
		cfg.Subscriptions.GracePeriod,
	)
	jobs := w.Jobs(cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once != "" {
		for _, job := range jobs {
			if job.Name == *once {
				n, err := job.Run(ctx)
				dispatcher.Wait()
				if err != nil {
					log.Fatal().Err(err).Str("job", job.Name).Msg("job failed")
				}
				log.Info().Str("job", job.Name).Int("affected", n).Msg("job finished")
				return
			}
		}
		log.Fatal().Str("job", *once).Msg("unknown job")
	}

	log.Info().Int("jobs", len(jobs)).Msg("workers starting")
	workers.Run(ctx, jobs)
	dispatcher.Wait()
	log.Info().Msg("workers stopped")
}
