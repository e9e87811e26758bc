package sheets

import (
	"context"

	"parcelas/internal/core"
)

// Ports for outbound adapters.
type (
	// InstallmentExporter writes a plan's installment schedule to an
	// external sheet, one row per installment.
	InstallmentExporter interface {
		ExportPlan(ctx context.Context, plan core.InstallmentPlan, event string) (rowRef string, err error)
	}
)

// Header is the column layout used by every exporter.
var Header = []string{"Plan", "Installment", "Due date", "Amount", "Paid", "Description", "Event"}

// PlanRows renders one row per installment in Header order.
func PlanRows(plan core.InstallmentPlan, event string) [][]any {
	rows := make([][]any, 0, len(plan.Installments))
	for _, inst := range plan.Installments {
		paid := "no"
		if inst.Paid {
			paid = "yes"
		}
		rows = append(rows, []any{
			plan.ID,
			inst.SequenceNumber,
			inst.DueDate.String(),
			inst.Amount.String(),
			paid,
			plan.Description,
			event,
		})
	}
	return rows
}
