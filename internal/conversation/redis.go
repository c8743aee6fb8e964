package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "conversation:"

// RedisStore keeps conversation history in Redis lists with a TTL, so
// histories survive a process restart and idle conversations expire on
// their own. Redis serializes commands per key, which gives the
// per-user append ordering the Store contract requires.
type RedisStore struct {
	client       *redis.Client
	ttl          time.Duration
	maxExchanges int
}

func NewRedisStore(client *redis.Client, ttl time.Duration, maxExchanges int) *RedisStore {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	return &RedisStore{
		client:       client,
		ttl:          ttl,
		maxExchanges: maxExchanges,
	}
}

func (s *RedisStore) GetHistory(ctx context.Context, userID string) ([]Message, error) {
	values, err := s.client.LRange(ctx, redisKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", userID, err)
	}

	messages := make([]Message, 0, len(values))
	for _, value := range values {
		var msg Message
		if err := json.Unmarshal([]byte(value), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message for %s: %w", userID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *RedisStore) AddMessage(ctx context.Context, userID string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := redisKeyPrefix + userID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.maxExchanges*2), -1)
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("failed to clear history for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) ActiveCount(ctx context.Context) (int, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan conversations: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}
