package database

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/models"
)

// MigrationSource returns dir as a filesystem when it holds .sql files,
// and fallback otherwise.
func MigrationSource(dir string, fallback fs.FS) fs.FS {
	if dir == "" {
		return fallback
	}
	source := os.DirFS(dir)
	if names, err := fs.Glob(source, "*.sql"); err != nil || len(names) == 0 {
		return fallback
	}
	return source
}

// RunMigrations applies every .sql file in migrations that has not been applied yet.
// SQLite, used by tests, is migrated from the gorm models instead.
func RunMigrations(db *gorm.DB, migrations fs.FS) error {
	log := logger.L()

	if db.Dialector.Name() == "sqlite" {
		log.Debug("using gorm auto-migration for sqlite")
		return db.AutoMigrate(models.All()...)
	}

	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, name := range names {
		var count int64
		if err := db.Table("schema_migrations").Where("name = ?", name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if count > 0 {
			log.Debug("skipping applied migration", slog.String("migration", name))
			continue
		}

		content, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(content)).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", name, err)
			}
			if err := tx.Exec("INSERT INTO schema_migrations (name) VALUES (?)", name).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		log.Info("applied migration", slog.String("migration", name))
	}

	return nil
}
