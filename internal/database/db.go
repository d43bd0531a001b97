package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/iliyamo/hotel-backoffice/internal/config"
)

// DSN builds the MySQL data source name.  parseTime maps DATETIME onto
// time.Time and loc=UTC keeps times consistent.  clientFoundRows makes
// UPDATE report matched rather than changed rows.  The short dial timeout
// lets requests reach the mirror while the server is down.
func DSN(cfg config.Config, multiStatements bool) string {
	auth := cfg.DBUser
	if cfg.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true&timeout=2s",
		auth, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if multiStatements {
		dsn += "&multiStatements=true"
	}
	return dsn
}

// Open prepares a MySQL pool.  It does not require the server to be up: the
// fallback coordinator serves from the mirror until it is.
func Open(cfg config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", DSN(cfg, false))
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Ping verifies the connection with a timeout.
func Ping(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
