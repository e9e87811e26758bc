package worker

import (
	"context"
	"errors"
	"fmt"

	"parcelas/internal/amqp"
	"parcelas/internal/core"
	"parcelas/internal/log"
	"parcelas/internal/sheets"
)

// PlanReader loads the current state of a plan.
type PlanReader interface {
	FindByID(ctx context.Context, id int64) (*core.InstallmentPlan, error)
}

// ExportWorker turns plan events into spreadsheet rows.
type ExportWorker struct {
	plans    PlanReader
	exporter sheets.InstallmentExporter
	currency string
	logger   *log.Logger
}

func NewExportWorker(plans PlanReader, exporter sheets.InstallmentExporter, currency string, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &ExportWorker{
		plans:    plans,
		exporter: exporter,
		currency: currency,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single plan event from AMQP. A returned error makes
// the consumer requeue the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev amqp.Event) error {
	fields := log.NewFields().WithEvent(ev.ID, string(ev.Type))
	fields[log.FieldPlanID] = ev.PlanID
	ctx = log.NewContext(ctx, w.logger.With(fields.ToSlice()...))

	switch ev.Type {
	case amqp.EventPlanCreated, amqp.EventPlanUpdated:
		return w.exportPlan(ctx, ev)

	case amqp.EventInstallmentReminder:
		due := core.Money{Cents: ev.AmountCents}
		log.FromContext(ctx).InfoContext(ctx, "Installment due soon",
			log.FieldInstallmentID, ev.InstallmentID,
			log.FieldSequence, ev.SequenceNumber,
			log.FieldDueDate, ev.DueDate,
			"amount", due.Format(w.currency))
		return nil

	default:
		log.FromContext(ctx).InfoContext(ctx, "Event acknowledged without export")
		return nil
	}
}

func (w *ExportWorker) exportPlan(ctx context.Context, ev amqp.Event) error {
	logger := log.FromContext(ctx)

	plan, err := w.plans.FindByID(ctx, ev.PlanID)
	if errors.Is(err, core.ErrPlanNotFound) {
		// deleted after the event was published
		logger.WarnContext(ctx, "Plan no longer exists, skipping export")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load plan %d: %w", ev.PlanID, err)
	}

	ref, err := w.exporter.ExportPlan(ctx, *plan, string(ev.Type))
	if err != nil {
		return fmt.Errorf("export plan %d: %w", ev.PlanID, err)
	}

	logger.InfoContext(ctx, "Plan exported",
		log.FieldOperation, log.OpExport,
		log.FieldSheetsRef, ref,
		log.FieldPaidCents, plan.PaidAmount().Cents,
		"summary", plan.Summary(w.currency))
	return nil
}
