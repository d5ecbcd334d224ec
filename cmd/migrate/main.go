// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/migration"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	command := flag.String("command", "up", "migration command (up/down/status/version)")
	flag.Parse()

	if err := run(*configPath, *command); err != nil {
		slog.Error("migration failed", "command", *command, "error", err)
		os.Exit(1)
	}
}

func run(configPath, command string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exits right after

	migrator, err := migration.NewMigrator(db.DB.DB, logger)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return migrator.Up(ctx)
	case "down":
		return migrator.Down(ctx)
	case "status":
		return migrator.Status(ctx)
	case "version":
		v, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		logger.Info("current migration version", "version", v)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
