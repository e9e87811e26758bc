package memory

import (
	"context"
	"testing"

	"parcelas/internal/core"
)

func TestExporterExportPlan(t *testing.T) {
	e := New()
	plan := core.InstallmentPlan{
		ID:          4,
		Description: "Phone",
		Installments: []core.Installment{
			{SequenceNumber: 1, Amount: core.Money{Cents: 3333}, DueDate: core.NewDate(2024, 1, 15), Paid: true},
			{SequenceNumber: 2, Amount: core.Money{Cents: 3334}, DueDate: core.NewDate(2024, 2, 15)},
		},
	}

	ref, err := e.ExportPlan(context.Background(), plan, "plan.created")
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	rows := e.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][2] != "2024-01-15" || rows[0][3] != "33.33" || rows[0][4] != "yes" {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[1][4] != "no" || rows[1][5] != "Phone" || rows[1][6] != "plan.created" {
		t.Errorf("second row = %v", rows[1])
	}

	if _, err := e.ExportPlan(context.Background(), core.InstallmentPlan{ID: 9}, "plan.created"); err == nil {
		t.Error("expected error for plan without installments")
	}
}
