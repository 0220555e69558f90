package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"ingressos-web/internal/logger"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// The follow-up table sees a handful of writes per failed checkout; a small
// pool is enough.
const (
	maxOpenConns    = 5
	maxIdleConns    = 2
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// InitDB opens the follow-up database or exits.
func InitDB(dbURL string) *sql.DB {
	db, err := NewDatabase(dbURL)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return db
}

func NewDatabase(dbURL string) (*sql.DB, error) {
	return open("postgres", dbURL)
}

func open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.L().Info("Database connection established", zap.String("driver", driver))
	return db, nil
}
