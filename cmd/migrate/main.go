package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/database"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/migrations"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dir := flag.String("dir", cfg.MigrationsDir, "Read migrations from this directory; the embedded set is used when it holds no .sql files")
	status := flag.Bool("status", false, "List applied migrations and exit")
	flag.Parse()
	logger.Init(logger.Config{
		Service: "ahrie-migrate",
		Env:     string(cfg.Env),
		Backend: cfg.LogBackend,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if *status {
		var rows []struct {
			Name      string
			AppliedAt time.Time
		}
		if err := db.Gorm.WithContext(ctx).Table("schema_migrations").Order("name").Find(&rows).Error; err != nil {
			log.Fatalf("failed to read migration status: %v", err)
		}
		if len(rows) == 0 {
			fmt.Println("No migrations applied.")
		}
		for _, r := range rows {
			fmt.Printf("%s\t%s\n", r.AppliedAt.Format(time.RFC3339), r.Name)
		}
		return
	}

	source := database.MigrationSource(*dir, migrations.FS)
	if err := database.RunMigrations(db.Gorm.WithContext(ctx), source); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	fmt.Println("All migrations applied successfully.")
}
