package conversation

import (
	"context"
	"time"
)

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultMaxExchanges is how many user/assistant exchanges a history
// keeps before the oldest are trimmed.
const DefaultMaxExchanges = 10

// Store keeps per-user conversation history. Implementations must be
// safe for concurrent use across users and serialize mutation of the
// same user's history.
type Store interface {
	GetHistory(ctx context.Context, userID string) ([]Message, error)
	AddMessage(ctx context.Context, userID string, msg Message) error
	Clear(ctx context.Context, userID string) error
	ActiveCount(ctx context.Context) (int, error)
}
