package db

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smith3v/lexicon-clash/pkg/config"
	"github.com/smith3v/lexicon-clash/pkg/logger"
)

// Export DB variable
var DB *gorm.DB

func InitDB(cfg config.DatabaseConfig) error {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		logger.Error("unsupported database configuration", "driver", cfg.Driver, "error", err)
		return err
	}
	gormLogger, gormErr := newGormLogger(config.AppConfig.Logging.GormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", gormErr)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return err
	}
	if err := Migrate(gdb); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	DB = gdb
	logger.Info("database ready", "driver", gdb.Dialector.Name())
	return nil
}

// Migrate creates or updates every table the service uses.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	if err := gdb.AutoMigrate(&GameSession{}); err != nil {
		return err
	}
	return backfillExpiry(gdb)
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres":
		return postgres.Open(postgresDSN(cfg)), nil
	case "", "sqlite":
		path := cfg.Path
		if strings.TrimSpace(path) == "" {
			path = "file::memory:?cache=shared"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func postgresDSN(cfg config.DatabaseConfig) string {
	dsn := "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port)
	if cfg.SSLMode != "" {
		dsn += " sslmode=" + cfg.SSLMode
	}
	return dsn
}

// backfillExpiry gives rows written before expiry tracking existed a deadline
// relative to their last update, so the sweeper eventually reclaims them.
func backfillExpiry(gdb *gorm.DB) error {
	if !gdb.Migrator().HasColumn(&GameSession{}, "expires_at") {
		return nil
	}
	switch gdb.Dialector.Name() {
	case "postgres":
		return gdb.Exec(`
UPDATE game_sessions
SET expires_at = updated_at + interval '30 days'
WHERE expires_at IS NULL OR expires_at < '0002-01-01'
`).Error
	case "sqlite":
		return gdb.Exec(`
UPDATE game_sessions
SET expires_at = datetime(updated_at, '+30 days')
WHERE expires_at IS NULL OR expires_at < '0002-01-01'
`).Error
	default:
		return nil
	}
}
