package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQL connects to the slot database without touching its schema.
// Postgres goes through the pgx stdlib driver.
func OpenSQL(ctx context.Context, cfg internal.SessionConfig) (*sql.DB, error) {
	var driverName string
	switch cfg.Driver {
	case "postgres":
		driverName = "pgx"
	case "sqlite":
		driverName = "sqlite3"
	default:
		return nil, fmt.Errorf("unsupported session driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(driverName, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// one writer; also keeps ":memory:" databases on a single connection
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping session db: %w", err)
	}
	return sqlDB, nil
}

// Open connects to the slot database, applies migrations and wraps the
// connection in gorm.
func Open(ctx context.Context, cfg internal.SessionConfig, logger *slog.Logger) (*gorm.DB, *sql.DB, error) {
	sqlDB, err := OpenSQL(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if _, err := migrations.Up(ctx, sqlDB, cfg.Driver, logger); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}

	var dialector gorm.Dialector
	if cfg.Driver == "postgres" {
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	} else {
		dialector = sqlite.New(sqlite.Config{Conn: sqlDB})
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("gorm open: %w", err)
	}
	return gdb, sqlDB, nil
}
