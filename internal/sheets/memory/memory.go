package memory

import (
	"context"
	"fmt"
	"sync"

	"parcelas/internal/core"
	ports "parcelas/internal/sheets"
)

var _ ports.InstallmentExporter = (*Exporter)(nil)

// Exporter keeps exported rows in memory. It backs the worker when no
// spreadsheet is configured and is used in tests.
type Exporter struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Exporter {
	return &Exporter{}
}

// ExportPlan stores the plan's rows and returns a synthetic range reference.
func (e *Exporter) ExportPlan(_ context.Context, plan core.InstallmentPlan, event string) (string, error) {
	if len(plan.Installments) == 0 {
		return "", fmt.Errorf("plan %d has no installments to export", plan.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	first := len(e.rows) + 1
	e.rows = append(e.rows, ports.PlanRows(plan, event)...)
	return fmt.Sprintf("mem:%d-%d", first, len(e.rows)), nil
}

// Rows returns a copy of every exported row.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]any, len(e.rows))
	for i, r := range e.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
