package main

import (
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog/log"

	"superloja-social/internal/infra/config"
	"superloja-social/internal/infra/db"
	applog "superloja-social/internal/infra/log"
)

func main() {
	direction := flag.String("direction", "up", "up | down | version")
	steps := flag.Int("steps", 0, "количество шагов; 0 — все")
	flag.Parse()

	cfg := config.Load()
	log.Logger = applog.NewLogger(cfg.AppEnv)
	if cfg.PGDSN == "" {
		log.Fatal().Msg("migrate: PG_DSN не задан")
	}

	m, err := db.NewMigrator(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("migrate: не удалось создать мигратор")
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal().Err(verr).Msg("migrate: не удалось получить версию")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrate: текущая версия")
		return
	default:
		log.Error().Str("direction", *direction).Msg("migrate: неизвестное направление")
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("migrate: ошибка применения")
	}
	log.Info().Str("direction", *direction).Msg("migrate: готово")
}
