package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, config Config) (*DB, error) {
	connString := config.ConnectionString()
	pgPool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to database, Error: %w", err)
	}

	return &DB{
		Pool: pgPool,
	}, nil
}

// NewWithBackoff connects and pings with exponential backoff between
// attempts.
func NewWithBackoff(ctx context.Context, config Config, maxRetries int) (*DB, error) {
	var err error
	for i := range maxRetries {
		if i > 0 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Info().Dur("backoff", backoff).Msg("Waiting before database retry")
			time.Sleep(backoff)
		}

		var db *DB
		db, err = New(ctx, config)
		if err != nil {
			log.Warn().Err(err).Int("attempt", i+1).Msg("Database connect failed")
			continue
		}

		if err = db.Ping(ctx); err == nil {
			return db, nil
		}

		db.Close()
		log.Warn().Err(err).Int("attempt", i+1).Msg("Database ping failed")
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return err
	}

	return nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
