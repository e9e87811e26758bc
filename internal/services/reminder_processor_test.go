package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"parcelas/internal/amqp"
	"parcelas/internal/core"
	"parcelas/internal/storage/memory"
)

func TestReminderProcessor_ProcessUpcoming(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	// due 2024-03-03, 2024-04-03, 2024-05-03
	plan := &core.InstallmentPlan{TotalAmount: core.Money{Cents: 9000}, InstallmentCount: 3, StartDate: core.NewDate(2024, 3, 3)}
	if _, err := plan.Generate(core.MonthlySchedule{}, core.GenerateOptions{Today: core.DateOf(now)}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := store.Insert(ctx, plan); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	pub := &fakePublisher{err: errors.New("broker down")}
	p := NewReminderProcessor(store, pub, 7, nil)

	sent, err := p.ProcessUpcoming(ctx, now)
	if err != nil || sent != 0 {
		t.Fatalf("ProcessUpcoming() with failing broker = %d, %v", sent, err)
	}

	pub.err = nil
	sent, err = p.ProcessUpcoming(ctx, now)
	if err != nil || sent != 1 {
		t.Fatalf("ProcessUpcoming() = %d, %v, want 1", sent, err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != amqp.EventInstallmentReminder || pub.events[0].DueDate != "2024-03-03" {
		t.Errorf("events = %+v", pub.events)
	}

	sent, _ = p.ProcessUpcoming(ctx, now.Add(time.Hour))
	if sent != 0 {
		t.Errorf("second run sent %d reminders, want 0", sent)
	}
}

func TestReminderProcessor_NotInitialized(t *testing.T) {
	p := NewReminderProcessor(nil, nil, 3, nil)
	if _, err := p.ProcessUpcoming(context.Background(), time.Now()); err == nil {
		t.Error("expected error for uninitialized processor")
	}
}
