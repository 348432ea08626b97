// Package db opens the database connection and keeps the schema up to date
package db

import (
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/pkg/util"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table managed by AutoMigrate
var Models = []any{
	model.User{},
	model.Session{},
	model.OAuthIdentity{},
	model.QuizProgress{},
	model.QuizResult{},
	model.ChatThread{},
	model.ChatMessage{},
	model.ActiveChat{},
	model.Review{},
	model.ReviewLike{},
	model.ResendRequest{},
	model.Migration{},
}

func New() (*gorm.DB, error) {
	driver := viper.GetString("db.driver")
	dsn := viper.GetString("db.dsn")

	var dialector gorm.Dialector

	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() {
			if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", dsn)
			}
		}

		dialector = sqlite.Open(dsn + "?_foreign_keys=on&_busy_timeout=5000")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database, %w", driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	zap.L().Info("Database ready", zap.String("driver", driver))
	return db, nil
}

// Migrate creates missing tables and runs one-shot data migrations
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	for _, m := range migrations {
		if err := runOnce(db, m.name, m.fn); err != nil {
			return fmt.Errorf("migration %s failed, %w", m.name, err)
		}
	}

	return nil
}
