package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func message(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now()}
}

func TestMemoryStore_AddAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	if err := store.AddMessage(ctx, "user-1", message("user", "siapa imam syafii")); err != nil {
		t.Fatalf("AddMessage() failed: %v", err)
	}
	if err := store.AddMessage(ctx, "user-1", message("assistant", "Imam Muhammad bin Idris asy-Syafi'i")); err != nil {
		t.Fatalf("AddMessage() failed: %v", err)
	}

	history, err := store.GetHistory(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("Expected user then assistant, got %q then %q", history[0].Role, history[1].Role)
	}
}

func TestMemoryStore_UnknownUserIsEmpty(t *testing.T) {
	store := NewMemoryStore(10)

	history, err := store.GetHistory(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected no history, got %d messages", len(history))
	}
}

func TestMemoryStore_TrimsOldestExchanges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2) // keeps 4 messages

	for i := 0; i < 5; i++ {
		store.AddMessage(ctx, "user-1", message("user", fmt.Sprintf("question %d", i)))
		store.AddMessage(ctx, "user-1", message("assistant", fmt.Sprintf("answer %d", i)))
	}

	history, err := store.GetHistory(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("Expected history trimmed to 4 messages, got %d", len(history))
	}
	if history[0].Content != "question 3" {
		t.Errorf("Expected oldest kept message 'question 3', got %q", history[0].Content)
	}
	if history[3].Content != "answer 4" {
		t.Errorf("Expected newest message 'answer 4', got %q", history[3].Content)
	}
}

func TestMemoryStore_ClearAndActiveCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.AddMessage(ctx, "user-1", message("user", "halo"))
	store.AddMessage(ctx, "user-2", message("user", "halo"))

	count, err := store.ActiveCount(ctx)
	if err != nil {
		t.Fatalf("ActiveCount() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 active conversations, got %d", count)
	}

	if err := store.Clear(ctx, "user-1"); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	history, _ := store.GetHistory(ctx, "user-1")
	if len(history) != 0 {
		t.Errorf("Expected cleared history, got %d messages", len(history))
	}

	count, _ = store.ActiveCount(ctx)
	if count != 1 {
		t.Errorf("Expected 1 active conversation after clear, got %d", count)
	}
}

func TestMemoryStore_ConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(50)

	var wg sync.WaitGroup
	for u := 0; u < 10; u++ {
		userID := fmt.Sprintf("user-%d", u)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				store.AddMessage(ctx, userID, message("user", fmt.Sprintf("message %d", i)))
				store.GetHistory(ctx, userID)
			}
		}()
	}
	wg.Wait()

	for u := 0; u < 10; u++ {
		history, err := store.GetHistory(ctx, fmt.Sprintf("user-%d", u))
		if err != nil {
			t.Fatalf("GetHistory() failed: %v", err)
		}
		if len(history) != 20 {
			t.Errorf("user-%d: expected 20 messages, got %d", u, len(history))
		}
	}
}
