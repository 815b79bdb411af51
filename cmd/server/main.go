package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"suitehub/internal/api"
	"suitehub/internal/pkg/logger"
	"suitehub/internal/platform/cache"
	"suitehub/internal/platform/config"
	"suitehub/internal/platform/database"
	"suitehub/internal/platform/metrics"
	"suitehub/migrations"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	applied, err := database.Migrate(db, migrations.FS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	log.Info().Strs("migrations", applied).Msg("schema up to date")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, serving catalog uncached")
		catalogCache = cache.Noop{}
	}

	m := metrics.New()
	deps, bg, err := api.NewDependencies(cfg, db, catalogCache, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build dependencies")
	}
	go bg.RateLimiter.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("access_policy", cfg.Subscriptions.AccessPolicy).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	bg.Wait()

	if closer, ok := catalogCache.(*cache.RedisCache); ok {
		closer.Close()
	}
}
