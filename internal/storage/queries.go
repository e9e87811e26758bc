package storage

import (
	"context"
	"database/sql"
)

const createCard = `
INSERT INTO credit_cards (name, closing_day, due_day)
VALUES (?, ?, ?)
RETURNING id, name, closing_day, due_day
`

type CreateCardParams struct {
	Name       string
	ClosingDay int64
	DueDay     int64
}

func (q *Queries) CreateCard(ctx context.Context, arg CreateCardParams) (CreditCard, error) {
	row := q.db.QueryRowContext(ctx, createCard, arg.Name, arg.ClosingDay, arg.DueDay)
	var i CreditCard
	err := row.Scan(&i.ID, &i.Name, &i.ClosingDay, &i.DueDay)
	return i, err
}

const getCard = `
SELECT id, name, closing_day, due_day FROM credit_cards WHERE id = ?
`

func (q *Queries) GetCard(ctx context.Context, id int64) (CreditCard, error) {
	row := q.db.QueryRowContext(ctx, getCard, id)
	var i CreditCard
	err := row.Scan(&i.ID, &i.Name, &i.ClosingDay, &i.DueDay)
	return i, err
}

const listCards = `
SELECT id, name, closing_day, due_day FROM credit_cards ORDER BY name
`

func (q *Queries) ListCards(ctx context.Context) ([]CreditCard, error) {
	rows, err := q.db.QueryContext(ctx, listCards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CreditCard
	for rows.Next() {
		var i CreditCard
		if err := rows.Scan(&i.ID, &i.Name, &i.ClosingDay, &i.DueDay); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPlan = `
INSERT INTO installment_plans (description, card_id, total_cents, installment_count, remaining_count, start_date)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreatePlanParams struct {
	Description      string
	CardID           sql.NullInt64
	TotalCents       int64
	InstallmentCount int64
	RemainingCount   int64
	StartDate        string
}

func (q *Queries) CreatePlan(ctx context.Context, arg CreatePlanParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createPlan,
		arg.Description,
		arg.CardID,
		arg.TotalCents,
		arg.InstallmentCount,
		arg.RemainingCount,
		arg.StartDate,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updatePlan = `
UPDATE installment_plans
SET description = ?, card_id = ?, total_cents = ?, installment_count = ?, start_date = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdatePlanParams struct {
	Description      string
	CardID           sql.NullInt64
	TotalCents       int64
	InstallmentCount int64
	StartDate        string
	ID               int64
}

func (q *Queries) UpdatePlan(ctx context.Context, arg UpdatePlanParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePlan,
		arg.Description,
		arg.CardID,
		arg.TotalCents,
		arg.InstallmentCount,
		arg.StartDate,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePlan = `
DELETE FROM installment_plans WHERE id = ?
`

func (q *Queries) DeletePlan(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePlan, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const planColumns = `id, description, card_id, total_cents, installment_count, remaining_count, start_date`

const getPlan = `
SELECT ` + planColumns + ` FROM installment_plans WHERE id = ?
`

func (q *Queries) GetPlan(ctx context.Context, id int64) (InstallmentPlan, error) {
	row := q.db.QueryRowContext(ctx, getPlan, id)
	var i InstallmentPlan
	err := row.Scan(
		&i.ID,
		&i.Description,
		&i.CardID,
		&i.TotalCents,
		&i.InstallmentCount,
		&i.RemainingCount,
		&i.StartDate,
	)
	return i, err
}

const listPlans = `
SELECT ` + planColumns + ` FROM installment_plans
ORDER BY start_date DESC, id DESC
`

func (q *Queries) ListPlans(ctx context.Context) ([]InstallmentPlan, error) {
	return q.queryPlans(ctx, listPlans)
}

const listActivePlans = `
SELECT ` + planColumns + ` FROM installment_plans
WHERE remaining_count > 0
ORDER BY start_date DESC, id DESC
`

func (q *Queries) ListActivePlans(ctx context.Context) ([]InstallmentPlan, error) {
	return q.queryPlans(ctx, listActivePlans)
}

func (q *Queries) queryPlans(ctx context.Context, query string, args ...interface{}) ([]InstallmentPlan, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstallmentPlan
	for rows.Next() {
		var i InstallmentPlan
		if err := rows.Scan(
			&i.ID,
			&i.Description,
			&i.CardID,
			&i.TotalCents,
			&i.InstallmentCount,
			&i.RemainingCount,
			&i.StartDate,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const recountRemaining = `
UPDATE installment_plans
SET remaining_count = (
        SELECT COUNT(*) FROM installments WHERE plan_id = installment_plans.id AND paid = 0
    ),
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

func (q *Queries) RecountRemaining(ctx context.Context, planID int64) error {
	_, err := q.db.ExecContext(ctx, recountRemaining, planID)
	return err
}

const createInstallment = `
INSERT INTO installments (plan_id, sequence_number, amount_cents, due_date, paid)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type CreateInstallmentParams struct {
	PlanID         int64
	SequenceNumber int64
	AmountCents    int64
	DueDate        string
	Paid           int64
}

func (q *Queries) CreateInstallment(ctx context.Context, arg CreateInstallmentParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createInstallment,
		arg.PlanID,
		arg.SequenceNumber,
		arg.AmountCents,
		arg.DueDate,
		arg.Paid,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteInstallmentsByPlan = `
DELETE FROM installments WHERE plan_id = ?
`

func (q *Queries) DeleteInstallmentsByPlan(ctx context.Context, planID int64) error {
	_, err := q.db.ExecContext(ctx, deleteInstallmentsByPlan, planID)
	return err
}

const installmentColumns = `id, plan_id, sequence_number, amount_cents, due_date, paid`

const getInstallment = `
SELECT ` + installmentColumns + ` FROM installments WHERE id = ?
`

func (q *Queries) GetInstallment(ctx context.Context, id int64) (Installment, error) {
	row := q.db.QueryRowContext(ctx, getInstallment, id)
	var i Installment
	err := row.Scan(
		&i.ID,
		&i.PlanID,
		&i.SequenceNumber,
		&i.AmountCents,
		&i.DueDate,
		&i.Paid,
	)
	return i, err
}

const listInstallmentsByPlan = `
SELECT ` + installmentColumns + ` FROM installments
WHERE plan_id = ?
ORDER BY sequence_number
`

func (q *Queries) ListInstallmentsByPlan(ctx context.Context, planID int64) ([]Installment, error) {
	return q.queryInstallments(ctx, listInstallmentsByPlan, planID)
}

const listUpcomingInstallments = `
SELECT ` + installmentColumns + ` FROM installments
WHERE paid = 0 AND due_date BETWEEN ? AND ?
ORDER BY due_date, plan_id, sequence_number
`

func (q *Queries) ListUpcomingInstallments(ctx context.Context, from, to string) ([]Installment, error) {
	return q.queryInstallments(ctx, listUpcomingInstallments, from, to)
}

const listOverdueInstallments = `
SELECT ` + installmentColumns + ` FROM installments
WHERE paid = 0 AND due_date < ?
ORDER BY due_date, plan_id, sequence_number
`

func (q *Queries) ListOverdueInstallments(ctx context.Context, before string) ([]Installment, error) {
	return q.queryInstallments(ctx, listOverdueInstallments, before)
}

func (q *Queries) queryInstallments(ctx context.Context, query string, args ...interface{}) ([]Installment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Installment
	for rows.Next() {
		var i Installment
		if err := rows.Scan(
			&i.ID,
			&i.PlanID,
			&i.SequenceNumber,
			&i.AmountCents,
			&i.DueDate,
			&i.Paid,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setInstallmentPaid = `
UPDATE installments SET paid = ? WHERE id = ?
`

type SetInstallmentPaidParams struct {
	Paid int64
	ID   int64
}

func (q *Queries) SetInstallmentPaid(ctx context.Context, arg SetInstallmentPaidParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setInstallmentPaid, arg.Paid, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getMonthInstallments = `
SELECT i.plan_id, p.description, i.amount_cents, i.paid
FROM installments i
JOIN installment_plans p ON p.id = i.plan_id
WHERE i.due_date BETWEEN ? AND ?
ORDER BY i.due_date, i.plan_id
`

type GetMonthInstallmentsRow struct {
	PlanID      int64
	Description string
	AmountCents int64
	Paid        int64
}

func (q *Queries) GetMonthInstallments(ctx context.Context, from, to string) ([]GetMonthInstallmentsRow, error) {
	rows, err := q.db.QueryContext(ctx, getMonthInstallments, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetMonthInstallmentsRow
	for rows.Next() {
		var i GetMonthInstallmentsRow
		if err := rows.Scan(&i.PlanID, &i.Description, &i.AmountCents, &i.Paid); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countReminders = `
SELECT COUNT(*) FROM installment_reminders WHERE installment_id = ?
`

func (q *Queries) CountReminders(ctx context.Context, installmentID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countReminders, installmentID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const upsertReminder = `
INSERT INTO installment_reminders (installment_id, reminded_at)
VALUES (?, ?)
ON CONFLICT(installment_id) DO UPDATE SET reminded_at = excluded.reminded_at
`

func (q *Queries) UpsertReminder(ctx context.Context, installmentID int64, remindedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertReminder, installmentID, remindedAt)
	return err
}
