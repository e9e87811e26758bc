package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"parcelas/internal/core"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection error", errors.New("connection refused"), true},
		{"closed connection error", errors.New("connection closed"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe error", errors.New("broken pipe"), true},
		{"closed network connection error", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"not connected", errNotConnected, true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{
		exchangeName: "test_exchange",
		queueName:    "test_queue",
		breaker:      newBreaker("test"),
	}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.breaker.State() != gobreaker.StateClosed {
			t.Errorf("state = %v, want closed", client.breaker.State())
		}
	})

	t.Run("consecutive failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.breaker.Execute(func() (interface{}, error) {
				return nil, errors.New("connection refused")
			})
		}
		if client.breaker.State() != gobreaker.StateOpen {
			t.Errorf("state = %v, want open", client.breaker.State())
		}
	})

	t.Run("publish fails fast when circuit is open", func(t *testing.T) {
		err := client.Publish(context.Background(), NewEvent(EventPlanCreated, 1))
		if err == nil {
			t.Fatal("Publish should fail when circuit is open")
		}
		if !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Errorf("error should mention circuit breaker, got: %v", err)
		}
	})
}

func TestClient_PublishRespectsCancellation(t *testing.T) {
	client := &Client{breaker: newBreaker("test")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.Publish(ctx, NewEvent(EventPlanDeleted, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}
}

func TestNewInstallmentEvent(t *testing.T) {
	inst := core.Installment{
		ID:             7,
		PlanID:         3,
		SequenceNumber: 2,
		Amount:         core.Money{Cents: 3333},
		DueDate:        core.NewDate(2024, 2, 15),
	}

	ev := NewInstallmentEvent(EventInstallmentPaid, inst)

	if ev.ID == "" {
		t.Error("event id should be set")
	}
	if ev.PlanID != 3 || ev.InstallmentID != 7 || ev.SequenceNumber != 2 {
		t.Errorf("unexpected ids: %+v", ev)
	}
	if ev.AmountCents != 3333 || ev.DueDate != "2024-02-15" {
		t.Errorf("unexpected payload: %+v", ev)
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
	if other := NewEvent(EventPlanCreated, 3); other.ID == ev.ID {
		t.Error("event ids should be unique")
	}
}

func TestEventFromJSON(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ev := Event{ID: "abc", Type: EventInstallmentReminder, PlanID: 9, InstallmentID: 4, DueDate: "2024-01-10", Timestamp: ts}

	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	got, err := EventFromJSON(body)
	if err != nil {
		t.Fatalf("EventFromJSON() error = %v", err)
	}
	if got.Type != ev.Type || got.PlanID != 9 || !got.Timestamp.Equal(ts) {
		t.Errorf("EventFromJSON() = %+v", got)
	}

	if _, err := EventFromJSON([]byte(`{"id": "x", "plan_id": "nope"}`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := EventFromJSON([]byte(`{"id": "x", "plan_id": 1}`)); err == nil {
		t.Error("expected error for missing type")
	}
}
