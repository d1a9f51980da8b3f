package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestUserIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if userID := GetUserID(context.Background()); userID != "" {
			t.Errorf("Expected empty string, got %s", userID)
		}
	})

	t.Run("with user ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithUserID(context.Background(), "U1234567890")
		if userID := GetUserID(ctx); userID != "U1234567890" {
			t.Errorf("Expected userID U1234567890, got %s", userID)
		}
	})
}

func TestChatIDContext(t *testing.T) {
	t.Parallel()

	if chatID := GetChatID(context.Background()); chatID != "" {
		t.Errorf("Expected empty string, got %s", chatID)
	}

	ctx := WithChatID(context.Background(), "C1234567890")
	if chatID := GetChatID(ctx); chatID != "C1234567890" {
		t.Errorf("Expected chatID C1234567890, got %s", chatID)
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("Expected no request ID in empty context")
	}

	ctx := WithRequestID(context.Background(), "req-1")
	requestID, ok := GetRequestID(ctx)
	if !ok || requestID != "req-1" {
		t.Errorf("Expected request ID req-1, got %q (ok=%v)", requestID, ok)
	}
}

func TestEventIDContext(t *testing.T) {
	t.Parallel()

	if eventID := GetEventID(context.Background()); eventID != "" {
		t.Errorf("Expected empty string, got %s", eventID)
	}

	ctx := WithEventID(context.Background(), "01HZYX")
	if eventID := GetEventID(ctx); eventID != "01HZYX" {
		t.Errorf("Expected event ID 01HZYX, got %s", eventID)
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithUserID(parent, "U1")
	parent = WithChatID(parent, "C1")
	parent = WithRequestID(parent, "req-1")
	parent = WithEventID(parent, "evt-1")
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Errorf("Expected detached context to be alive, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("Expected detached context to have no deadline")
	}
	if GetUserID(detached) != "U1" {
		t.Errorf("Expected user ID U1, got %s", GetUserID(detached))
	}
	if GetChatID(detached) != "C1" {
		t.Errorf("Expected chat ID C1, got %s", GetChatID(detached))
	}
	if id, _ := GetRequestID(detached); id != "req-1" {
		t.Errorf("Expected request ID req-1, got %s", id)
	}
	if GetEventID(detached) != "evt-1" {
		t.Errorf("Expected event ID evt-1, got %s", GetEventID(detached))
	}
}
