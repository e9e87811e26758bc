package worker

import (
	"context"
	"errors"
	"testing"

	"parcelas/internal/amqp"
	"parcelas/internal/core"
	exportmem "parcelas/internal/sheets/memory"
	planmem "parcelas/internal/storage/memory"
)

type failingExporter struct{}

func (failingExporter) ExportPlan(context.Context, core.InstallmentPlan, string) (string, error) {
	return "", errors.New("quota exceeded")
}

func seededStore(t *testing.T) (*planmem.Store, *core.InstallmentPlan) {
	t.Helper()
	store := planmem.New()
	plan := &core.InstallmentPlan{Description: "Fridge", TotalAmount: core.Money{Cents: 10000}, InstallmentCount: 3, StartDate: core.NewDate(2024, 1, 15)}
	if _, err := plan.Generate(core.MonthlySchedule{}, core.GenerateOptions{Today: core.NewDate(2030, 1, 1)}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := store.Insert(context.Background(), plan); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return store, plan
}

func TestExportWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	store, plan := seededStore(t)

	tests := []struct {
		name     string
		event    amqp.Event
		wantRows int
	}{
		{"created exports every installment", amqp.NewEvent(amqp.EventPlanCreated, plan.ID), 3},
		{"updated exports again", amqp.NewEvent(amqp.EventPlanUpdated, plan.ID), 3},
		{"reminder is logged only", amqp.NewInstallmentEvent(amqp.EventInstallmentReminder, plan.Installments[0]), 0},
		{"deleted is acknowledged", amqp.NewEvent(amqp.EventPlanDeleted, plan.ID), 0},
		{"missing plan is skipped", amqp.NewEvent(amqp.EventPlanCreated, 999), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := exportmem.New()
			w := NewExportWorker(store, exporter, "R$", nil)
			if err := w.HandleEvent(ctx, tt.event); err != nil {
				t.Fatalf("HandleEvent() error = %v", err)
			}
			if got := len(exporter.Rows()); got != tt.wantRows {
				t.Errorf("exported %d rows, want %d", got, tt.wantRows)
			}
		})
	}
}

func TestExportWorker_ExportFailureRequeues(t *testing.T) {
	store, plan := seededStore(t)
	w := NewExportWorker(store, failingExporter{}, "R$", nil)

	if err := w.HandleEvent(context.Background(), amqp.NewEvent(amqp.EventPlanCreated, plan.ID)); err == nil {
		t.Error("expected error so the message is requeued")
	}
}
