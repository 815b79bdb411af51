package main

import (
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"
	"suitehub/internal/pkg/logger"
	"suitehub/internal/platform/config"
	"suitehub/internal/platform/database"
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

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	applied, err := database.Migrate(db, migrations.FS)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	for _, name := range applied {
		log.Info().Str("file", name).Msg("applied migration")
	}

	fmt.Println("Migration completed successfully")
}
