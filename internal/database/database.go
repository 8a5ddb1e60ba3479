package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/storefront/internal/models"
)

// Open connects to the session database, creating it on first use, and
// migrates the session table.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	if err := createIfMissing(ctx, dsn, log); err != nil {
		return nil, fmt.Errorf("prepare database: %w", err)
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	pool.SetMaxOpenConns(20)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.WithContext(ctx).AutoMigrate(&models.Session{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return conn, nil
}

// createIfMissing issues CREATE DATABASE through the maintenance database
// when the target named in a URL-style dsn does not exist. Keyword dsns are
// left alone.
func createIfMissing(ctx context.Context, dsn string, log zerolog.Logger) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return nil
	}
	u.Path = "/postgres"

	admin, err := sql.Open("postgres", u.String())
	if err != nil {
		return err
	}
	defer admin.Close()

	var found bool
	row := admin.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name)
	if err := row.Scan(&found); err != nil {
		return err
	}
	if found {
		return nil
	}

	log.Info().Str("database", name).Msg("creating session database")
	_, err = admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name))
	return err
}
