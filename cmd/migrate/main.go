package main

import (
	"errors"
	"flag"
	"os"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/yourusername/studyhub-api/internal/config"
	"github.com/yourusername/studyhub-api/pkg/database"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// Использование:
//
//	migrate -action up
//	migrate -action down -steps 1
//	migrate -action force -version 1   (снять dirty-состояние после упавшей миграции)
//	migrate -action version
func main() {
	action := flag.String("action", "up", "up | down | force | version")
	steps := flag.Int("steps", 1, "количество миграций для down")
	version := flag.Int("version", -1, "версия для force")
	flag.Parse()

	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	m, err := database.NewMigrator(db, cfg.Database.MigrationsPath)
	if err != nil {
		log.Fatal("failed to create migrator", "error", err)
	}
	defer m.Close()

	switch *action {
	case "up":
		err = database.MigrateDB(db, cfg.Database.MigrationsPath, log)
	case "down":
		if *steps <= 0 {
			log.Fatal("steps must be positive", "steps", *steps)
		}
		err = m.Steps(-*steps)
	case "force":
		if *version < 0 {
			log.Fatal("-version is required for force")
		}
		err = m.Force(*version)
	case "version":
		v, dirty, verr := m.Version()
		if errors.Is(verr, migrateV4.ErrNilVersion) {
			log.Info("no migrations applied")
			return
		}
		err = verr
		if err == nil {
			log.Info("current migration version", "version", v, "dirty", dirty)
		}
	default:
		log.Fatal("unknown action", "action", *action)
	}

	if err != nil && !errors.Is(err, migrateV4.ErrNoChange) {
		log.Fatal("migration failed", "action", *action, "error", err)
	}
	log.Info("migration finished", "action", *action)
}
