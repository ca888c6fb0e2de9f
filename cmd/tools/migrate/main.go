package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

// migrate applies or rolls back the embedded catalog schema.
// Exit code 0 = ok, 1 = migration failed, 2 = bad arguments.
func main() {
	var (
		down   = flag.Int("down", 0, "roll back this many migrations instead of applying")
		format = flag.String("log-format", "console", "log format: json or console")
	)
	flag.Parse()
	_ = godotenv.Load()
	logger := obs.NewLogger(*format, "info")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Error().Msg("DATABASE_URL is not set")
		os.Exit(2)
	}

	m, err := db.New(dbURL)
	if err != nil {
		logger.Error().Err(err).Msg("open migrations")
		os.Exit(1)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrate")
		}
	}()

	if *down > 0 {
		err = db.Down(m, *down)
	} else {
		err = db.Up(m)
	}
	if err != nil {
		logger.Error().Err(err).Msg("migrate")
		os.Exit(1)
	}
	version, dirty, err := m.Version()
	logger.Info().Uint("version", version).Bool("dirty", dirty).AnErr("version_err", err).Msg("migrations applied")
}
