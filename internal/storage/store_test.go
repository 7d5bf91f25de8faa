package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/haasonsaas/nexus/pkg/models"
)

func openTestStore(t *testing.T, window int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "agent.db"), "alpha", window)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendTurnTrimsOldMessagesBeyondWindow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 3)

	for i := 0; i < 5; i++ {
		msg := &models.Message{Role: models.RoleUser, Content: fmt.Sprintf("msg-%d", i)}
		if _, err := s.AppendTurn(ctx, msg); err != nil {
			t.Fatalf("append turn %d: %v", i, err)
		}
	}

	got, err := s.MessagesAfter(ctx, 0, 100)
	if err != nil {
		t.Fatalf("messages after: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 surviving messages after trim, got %d", len(got))
	}
	for i, m := range got {
		want := fmt.Sprintf("msg-%d", i+2) // the oldest two (msg-0, msg-1) were trimmed from the head
		if m.Content != want {
			t.Fatalf("message %d: expected content %q, got %q", i, want, m.Content)
		}
	}
}

func TestAppendTurnDefaultWindowKeepsFewMessages(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 0) // non-positive falls back to DefaultSessionWindow

	if _, err := s.AppendTurn(ctx, &models.Message{Role: models.RoleUser, Content: "hello"}); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	got, err := s.MessagesAfter(ctx, 0, 100)
	if err != nil {
		t.Fatalf("messages after: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
}

func TestTrimSessionNoopWhenWindowNonPositive(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 100)

	for i := 0; i < 3; i++ {
		if _, err := s.AppendTurn(ctx, &models.Message{Role: models.RoleUser, Content: fmt.Sprintf("m-%d", i)}); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}

	if err := s.TrimSession(ctx, 0); err != nil {
		t.Fatalf("trim session: %v", err)
	}

	got, err := s.MessagesAfter(ctx, 0, 100)
	if err != nil {
		t.Fatalf("messages after: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected trim(0) to be a no-op, got %d messages", len(got))
	}
}
