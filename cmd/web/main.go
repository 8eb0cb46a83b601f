package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/triclue/triclue/internal/httpserver"
	"github.com/triclue/triclue/internal/puzzle"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	lib, err := puzzle.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load puzzle library")
	}

	db, err := httpserver.OpenDB(getEnv("DB_PATH", "./data/triclue.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := httpserver.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Web players live wherever the server does: day boundaries follow
	// the host's local time.
	srv := httpserver.New(db, lib, time.Local)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting web server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
