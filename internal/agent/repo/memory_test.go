package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestMemoryRepositoryLazyCreation(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx := context.Background()

	history, err := r.LoadHistory(ctx, "fresh")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if history.SessionID != "fresh" {
		t.Errorf("SessionID = %q, want %q", history.SessionID, "fresh")
	}
	if len(history.Messages) != 0 {
		t.Errorf("new session has %d messages, want 0", len(history.Messages))
	}
}

func TestMemoryRepositoryAppendOrder(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx := context.Background()

	const n = 10
	for i := 0; i < n; i++ {
		if err := r.AddMessage(ctx, "abc", schema.UserMessage(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("AddMessage %d: %v", i, err)
		}
	}

	history, err := r.LoadHistory(ctx, "abc")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(history.Messages) != n {
		t.Fatalf("got %d messages, want %d", len(history.Messages), n)
	}
	for i, m := range history.Messages {
		want := fmt.Sprintf("msg-%d", i)
		if m.Content != want {
			t.Errorf("message %d = %q, want %q", i, m.Content, want)
		}
	}

	count, err := r.GetMessageCount(ctx, "abc")
	if err != nil {
		t.Fatalf("GetMessageCount: %v", err)
	}
	if count != n {
		t.Errorf("count = %d, want %d", count, n)
	}
}

func TestMemoryRepositorySessionIsolation(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx := context.Background()

	if err := r.AddMessage(ctx, "a", schema.UserMessage("for a")); err != nil {
		t.Fatal(err)
	}
	if err := r.AddMessage(ctx, "b", schema.UserMessage("for b")); err != nil {
		t.Fatal(err)
	}

	ha, _ := r.LoadHistory(ctx, "a")
	hb, _ := r.LoadHistory(ctx, "b")
	if len(ha.Messages) != 1 || ha.Messages[0].Content != "for a" {
		t.Errorf("session a history wrong: %+v", ha.Messages)
	}
	if len(hb.Messages) != 1 || hb.Messages[0].Content != "for b" {
		t.Errorf("session b history wrong: %+v", hb.Messages)
	}
}

func TestMemoryRepositoryClear(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx := context.Background()

	_ = r.AddMessage(ctx, "s", schema.UserMessage("hello"))
	if err := r.ClearHistory(ctx, "s"); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	count, _ := r.GetMessageCount(ctx, "s")
	if count != 0 {
		t.Errorf("count after clear = %d, want 0", count)
	}
}

func TestMemoryRepositoryLoadReturnsCopy(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx := context.Background()

	_ = r.AddMessage(ctx, "s", schema.UserMessage("original"))
	history, _ := r.LoadHistory(ctx, "s")
	history.Messages[0] = schema.UserMessage("mutated slice")

	again, _ := r.LoadHistory(ctx, "s")
	if again.Messages[0].Content != "original" {
		t.Errorf("stored history mutated through loaded copy")
	}
}

func TestMemoryRepositoryConcurrentAppends(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx := context.Background()

	const writers = 16
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := r.AddMessage(ctx, "shared", schema.UserMessage("x")); err != nil {
					t.Errorf("AddMessage: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	count, err := r.GetMessageCount(ctx, "shared")
	if err != nil {
		t.Fatalf("GetMessageCount: %v", err)
	}
	if count != writers*perWriter {
		t.Errorf("count = %d, want %d", count, writers*perWriter)
	}
}

func TestMemoryRepositoryCancelledContext(t *testing.T) {
	r := NewMemoryConversationRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.AddMessage(ctx, "s", schema.UserMessage("late")); err == nil {
		t.Error("AddMessage with cancelled context should fail")
	}
	if _, err := r.LoadHistory(ctx, "s"); err == nil {
		t.Error("LoadHistory with cancelled context should fail")
	}
}
