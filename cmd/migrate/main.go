package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"shop-insights/internal/config"
	"shop-insights/internal/infrastructure/repository"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
)

const usage = `usage: migrate <command>

commands:
  up         apply all pending migrations
  down [n]   roll back n migrations (default 1)
  version    print the current schema version
  force <v>  mark version v as applied without running it
`

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, warnings, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}

	m, err := repository.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open migrator")
	}
	defer m.Close()

	if err := run(m, flag.Args()); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Migration failed")
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info().Msg("No migrations applied")
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to read schema version")
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
}

func run(m *migrate.Migrate, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		return m.Steps(-steps)
	case "version":
		return nil
	case "force":
		if len(args) < 2 {
			return errors.New("force needs a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.Force(v)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
