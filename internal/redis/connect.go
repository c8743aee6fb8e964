package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect dials the conversation store backend with exponential backoff
// between attempts, mirroring database.NewWithBackoff.
func Connect(ctx context.Context, config Config, maxRetries int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            config.Addr,
		Password:        config.Password,
		DB:              config.DB,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	})

	var err error
	for i := range maxRetries {
		if i > 0 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Info().Dur("backoff", backoff).Msg("Waiting before conversation store retry")
			time.Sleep(backoff)
		}

		err = client.Ping(ctx).Err()
		if err == nil {
			log.Info().Str("addr", config.Addr).Int("db", config.DB).Int("attempts_needed", i+1).Msg("Conversation store connected")
			return client, nil
		}

		log.Warn().Err(err).Str("addr", config.Addr).Int("attempt", i+1).Msg("Conversation store ping failed")
	}

	return nil, fmt.Errorf("failed to connect to conversation store at %s after %d attempts: %w", config.Addr, maxRetries, err)
}
