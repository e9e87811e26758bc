package services

import (
	"context"
	"fmt"
	"time"

	"parcelas/internal/amqp"
	"parcelas/internal/core"
	"parcelas/internal/log"
)

// ReminderStore is the slice of the gateway the reminder processor needs.
type ReminderStore interface {
	UpcomingInstallments(ctx context.Context, from, to core.Date) ([]core.Installment, error)
	WasReminded(ctx context.Context, installmentID int64) (bool, error)
	RecordReminder(ctx context.Context, installmentID int64, at time.Time) error
}

// ReminderProcessor publishes one installment.reminder event per unpaid
// installment entering the reminder window.
type ReminderProcessor struct {
	store      ReminderStore
	publisher  EventPublisher
	windowDays int
	logger     *log.Logger
}

func NewReminderProcessor(store ReminderStore, publisher EventPublisher, windowDays int, logger *log.Logger) *ReminderProcessor {
	if logger == nil {
		logger = log.Default()
	}
	return &ReminderProcessor{
		store:      store,
		publisher:  publisher,
		windowDays: windowDays,
		logger:     logger.WithComponent(log.ComponentReminder),
	}
}

// ProcessUpcoming sends reminders for installments due between today and
// today+window. An installment is reminded at most once; a failed publish is
// retried on the next run.
func (p *ReminderProcessor) ProcessUpcoming(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	until := core.DateOf(today.AddDate(0, 0, p.windowDays))

	due, err := p.store.UpcomingInstallments(ctx, today, until)
	if err != nil {
		return 0, fmt.Errorf("failed to get upcoming installments: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing installment reminders",
		"due_in_window", len(due),
		"from", today.String(),
		"until", until.String())

	sent := 0
	for _, inst := range due {
		reminded, err := p.store.WasReminded(ctx, inst.ID)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to check reminder log",
				log.FieldInstallmentID, inst.ID,
				log.FieldError, err)
			continue
		}
		if reminded {
			continue
		}

		if err := p.publisher.Publish(ctx, amqp.NewInstallmentEvent(amqp.EventInstallmentReminder, inst)); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish reminder",
				log.FieldInstallmentID, inst.ID,
				log.FieldPlanID, inst.PlanID,
				log.FieldError, err)
			continue
		}

		if err := p.store.RecordReminder(ctx, inst.ID, now); err != nil {
			// the event went out; a duplicate on the next run is acceptable
			p.logger.ErrorContext(ctx, "Failed to record reminder",
				log.FieldInstallmentID, inst.ID,
				log.FieldError, err)
		}

		sent++
		p.logger.InfoContext(ctx, "Reminder sent",
			log.FieldPlanID, inst.PlanID,
			log.FieldInstallmentID, inst.ID,
			log.FieldSequence, inst.SequenceNumber,
			log.FieldDueDate, inst.DueDate.String(),
			log.FieldAmountCents, inst.Amount.Cents)
	}

	p.logger.InfoContext(ctx, "Reminder processing complete",
		"sent", sent,
		"total_checked", len(due))

	return sent, nil
}
