package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"parcelas/internal/core"

	_ "modernc.org/sqlite"
)

// MemoryDBPath opens a private in-memory database.
const MemoryDBPath = ":memory:"

// SQLiteRepository is the persistence gateway for installment plans. It owns
// a single connection; every multi-row write runs in one transaction.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != MemoryDBPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn in a transaction. Domain sentinels and validation errors pass
// through untouched; anything else is reported as a StorageError for op.
func (r *SQLiteRepository) withTx(ctx context.Context, op string, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageError{Op: op, Err: fmt.Errorf("begin transaction: %w", err)}
	}

	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "operation", op, "error", rbErr)
		}
		if isDomainError(err) {
			return err
		}
		return &core.StorageError{Op: op, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &core.StorageError{Op: op, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func isDomainError(err error) bool {
	var verr *core.ValidationError
	return errors.Is(err, core.ErrPlanNotFound) ||
		errors.Is(err, core.ErrInstallmentNotFound) ||
		errors.Is(err, core.ErrCardNotFound) ||
		errors.As(err, &verr)
}

// Insert persists a plan with all of its installments and returns the new id.
// IDs are written back onto plan only after the transaction commits.
func (r *SQLiteRepository) Insert(ctx context.Context, plan *core.InstallmentPlan) (int64, error) {
	if err := plan.Validate(); err != nil {
		return 0, err
	}

	staged := clonePlan(*plan)
	staged.RecomputeRemaining()

	err := r.withTx(ctx, "insert plan", func(q *Queries) error {
		id, err := q.CreatePlan(ctx, CreatePlanParams{
			Description:      staged.Description,
			CardID:           nullID(staged.CardID),
			TotalCents:       staged.TotalAmount.Cents,
			InstallmentCount: int64(staged.InstallmentCount),
			RemainingCount:   int64(staged.RemainingCount),
			StartDate:        staged.StartDate.String(),
		})
		if err != nil {
			return fmt.Errorf("create plan row: %w", err)
		}
		staged.ID = id
		return insertInstallments(ctx, q, &staged)
	})
	if err != nil {
		return 0, err
	}

	*plan = staged
	slog.InfoContext(ctx, "Installment plan saved to SQLite",
		"id", plan.ID,
		"total_cents", plan.TotalAmount.Cents,
		"installments", plan.InstallmentCount,
		"start_date", plan.StartDate.String())

	return plan.ID, nil
}

// Update replaces the plan's scalar fields and its whole installment set.
func (r *SQLiteRepository) Update(ctx context.Context, plan *core.InstallmentPlan) error {
	if err := plan.ValidateForUpdate(); err != nil {
		return err
	}

	staged := clonePlan(*plan)

	err := r.withTx(ctx, "update plan", func(q *Queries) error {
		n, err := q.UpdatePlan(ctx, UpdatePlanParams{
			Description:      staged.Description,
			CardID:           nullID(staged.CardID),
			TotalCents:       staged.TotalAmount.Cents,
			InstallmentCount: int64(staged.InstallmentCount),
			StartDate:        staged.StartDate.String(),
			ID:               staged.ID,
		})
		if err != nil {
			return fmt.Errorf("update plan row: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("plan %d: %w", staged.ID, core.ErrPlanNotFound)
		}
		if err := q.DeleteInstallmentsByPlan(ctx, staged.ID); err != nil {
			return fmt.Errorf("delete installments: %w", err)
		}
		if err := insertInstallments(ctx, q, &staged); err != nil {
			return err
		}
		if err := q.RecountRemaining(ctx, staged.ID); err != nil {
			return fmt.Errorf("recount remaining: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	staged.RecomputeRemaining()
	*plan = staged
	slog.InfoContext(ctx, "Installment plan updated in SQLite",
		"id", plan.ID,
		"total_cents", plan.TotalAmount.Cents,
		"installments", plan.InstallmentCount)

	return nil
}

func insertInstallments(ctx context.Context, q *Queries, plan *core.InstallmentPlan) error {
	for i := range plan.Installments {
		inst := &plan.Installments[i]
		id, err := q.CreateInstallment(ctx, CreateInstallmentParams{
			PlanID:         plan.ID,
			SequenceNumber: int64(inst.SequenceNumber),
			AmountCents:    inst.Amount.Cents,
			DueDate:        inst.DueDate.String(),
			Paid:           boolToInt(inst.Paid),
		})
		if err != nil {
			return fmt.Errorf("create installment %d: %w", inst.SequenceNumber, err)
		}
		inst.ID = id
		inst.PlanID = plan.ID
	}
	return nil
}

// Delete removes a plan and its installments.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	err := r.withTx(ctx, "delete plan", func(q *Queries) error {
		if err := q.DeleteInstallmentsByPlan(ctx, id); err != nil {
			return fmt.Errorf("delete installments: %w", err)
		}
		n, err := q.DeletePlan(ctx, id)
		if err != nil {
			return fmt.Errorf("delete plan row: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("plan %d: %w", id, core.ErrPlanNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Installment plan deleted from SQLite", "id", id)
	return nil
}

// FindByID returns the plan with its installments ordered by sequence.
func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*core.InstallmentPlan, error) {
	var plan *core.InstallmentPlan
	err := r.withTx(ctx, "find plan", func(q *Queries) error {
		row, err := q.GetPlan(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("plan %d: %w", id, core.ErrPlanNotFound)
		}
		if err != nil {
			return fmt.Errorf("get plan: %w", err)
		}
		plan, err = loadPlan(ctx, q, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListAll returns every plan, newest start date first.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.InstallmentPlan, error) {
	return r.listPlans(ctx, "list plans", (*Queries).ListPlans)
}

// ListActive returns plans with at least one unpaid installment.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]core.InstallmentPlan, error) {
	return r.listPlans(ctx, "list active plans", (*Queries).ListActivePlans)
}

func (r *SQLiteRepository) listPlans(ctx context.Context, op string, list func(*Queries, context.Context) ([]InstallmentPlan, error)) ([]core.InstallmentPlan, error) {
	var plans []core.InstallmentPlan
	err := r.withTx(ctx, op, func(q *Queries) error {
		rows, err := list(q, ctx)
		if err != nil {
			return err
		}
		plans = make([]core.InstallmentPlan, 0, len(rows))
		for _, row := range rows {
			plan, err := loadPlan(ctx, q, row)
			if err != nil {
				return err
			}
			plans = append(plans, *plan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func loadPlan(ctx context.Context, q *Queries, row InstallmentPlan) (*core.InstallmentPlan, error) {
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return nil, fmt.Errorf("plan %d start date: %w", row.ID, err)
	}
	rows, err := q.ListInstallmentsByPlan(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("list installments of plan %d: %w", row.ID, err)
	}
	installments, err := toCoreInstallments(rows)
	if err != nil {
		return nil, err
	}

	plan := &core.InstallmentPlan{
		ID:               row.ID,
		Description:      row.Description,
		TotalAmount:      core.Money{Cents: row.TotalCents},
		InstallmentCount: int(row.InstallmentCount),
		RemainingCount:   int(row.RemainingCount),
		StartDate:        start,
		Installments:     installments,
	}
	if row.CardID.Valid {
		plan.CardID = row.CardID.Int64
	}
	return plan, nil
}

// MarkInstallmentPaid sets one installment's flag and recounts the owning
// plan's remaining installments in the same transaction.
func (r *SQLiteRepository) MarkInstallmentPaid(ctx context.Context, installmentID int64, paid bool) error {
	var planID int64
	err := r.withTx(ctx, "mark installment paid", func(q *Queries) error {
		inst, err := q.GetInstallment(ctx, installmentID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("installment %d: %w", installmentID, core.ErrInstallmentNotFound)
		}
		if err != nil {
			return fmt.Errorf("get installment: %w", err)
		}
		planID = inst.PlanID

		if _, err := q.SetInstallmentPaid(ctx, SetInstallmentPaidParams{Paid: boolToInt(paid), ID: installmentID}); err != nil {
			return fmt.Errorf("set paid flag: %w", err)
		}
		if err := q.RecountRemaining(ctx, inst.PlanID); err != nil {
			return fmt.Errorf("recount remaining: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Installment paid flag updated",
		"installment_id", installmentID,
		"plan_id", planID,
		"paid", paid)
	return nil
}

// FindInstallment returns a single installment by id.
func (r *SQLiteRepository) FindInstallment(ctx context.Context, id int64) (core.Installment, error) {
	row, err := r.queries.GetInstallment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, fmt.Errorf("installment %d: %w", id, core.ErrInstallmentNotFound)
	}
	if err != nil {
		return core.Installment{}, &core.StorageError{Op: "find installment", Err: err}
	}
	inst, err := toCoreInstallment(row)
	if err != nil {
		return core.Installment{}, &core.StorageError{Op: "find installment", Err: err}
	}
	return inst, nil
}

// UpcomingInstallments returns unpaid installments due within [from, to].
func (r *SQLiteRepository) UpcomingInstallments(ctx context.Context, from, to core.Date) ([]core.Installment, error) {
	rows, err := r.queries.ListUpcomingInstallments(ctx, from.String(), to.String())
	if err != nil {
		return nil, &core.StorageError{Op: "list upcoming installments", Err: err}
	}
	installments, err := toCoreInstallments(rows)
	if err != nil {
		return nil, &core.StorageError{Op: "list upcoming installments", Err: err}
	}
	return installments, nil
}

// OverdueInstallments returns unpaid installments due before today.
func (r *SQLiteRepository) OverdueInstallments(ctx context.Context, today core.Date) ([]core.Installment, error) {
	rows, err := r.queries.ListOverdueInstallments(ctx, today.String())
	if err != nil {
		return nil, &core.StorageError{Op: "list overdue installments", Err: err}
	}
	installments, err := toCoreInstallments(rows)
	if err != nil {
		return nil, &core.StorageError{Op: "list overdue installments", Err: err}
	}
	return installments, nil
}

// CreateCard stores a credit card billing configuration.
func (r *SQLiteRepository) CreateCard(ctx context.Context, card core.CreditCard) (core.CreditCard, error) {
	if err := card.Validate(); err != nil {
		return core.CreditCard{}, &core.ValidationError{Problems: []string{err.Error()}}
	}
	row, err := r.queries.CreateCard(ctx, CreateCardParams{
		Name:       card.Name,
		ClosingDay: int64(card.Billing.ClosingDay),
		DueDay:     int64(card.Billing.DueDay),
	})
	if err != nil {
		return core.CreditCard{}, &core.StorageError{Op: "create card", Err: err}
	}

	slog.InfoContext(ctx, "Credit card saved to SQLite", "id", row.ID, "name", row.Name)
	return toCoreCard(row), nil
}

// GetCard returns a card by id.
func (r *SQLiteRepository) GetCard(ctx context.Context, id int64) (core.CreditCard, error) {
	row, err := r.queries.GetCard(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditCard{}, fmt.Errorf("card %d: %w", id, core.ErrCardNotFound)
	}
	if err != nil {
		return core.CreditCard{}, &core.StorageError{Op: "get card", Err: err}
	}
	return toCoreCard(row), nil
}

// ListCards returns all cards ordered by name.
func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.CreditCard, error) {
	rows, err := r.queries.ListCards(ctx)
	if err != nil {
		return nil, &core.StorageError{Op: "list cards", Err: err}
	}
	cards := make([]core.CreditCard, len(rows))
	for i, row := range rows {
		cards[i] = toCoreCard(row)
	}
	return cards, nil
}

// ReadMonthOverview totals the installments due in the given month.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, year int, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}
	if month < 1 || month > 12 {
		return overview, &core.ValidationError{Problems: []string{fmt.Sprintf("invalid month: %d", month)}}
	}

	from := core.NewDate(year, month, 1)
	to := core.NewDate(year, month, core.LastDayOfMonth(year, month))
	rows, err := r.queries.GetMonthInstallments(ctx, from.String(), to.String())
	if err != nil {
		return overview, &core.StorageError{Op: "read month overview", Err: err}
	}

	for _, row := range rows {
		amount := core.Money{Cents: row.AmountCents}
		paid := row.Paid != 0
		overview.Total = overview.Total.Add(amount)
		if paid {
			overview.Paid = overview.Paid.Add(amount)
		} else {
			overview.Open = overview.Open.Add(amount)
		}
		overview.ByPlan = append(overview.ByPlan, core.PlanDue{
			PlanID:      row.PlanID,
			Description: row.Description,
			Amount:      amount,
			Paid:        paid,
		})
	}

	return overview, nil
}

// WasReminded reports whether a due-soon reminder went out for installmentID.
func (r *SQLiteRepository) WasReminded(ctx context.Context, installmentID int64) (bool, error) {
	n, err := r.queries.CountReminders(ctx, installmentID)
	if err != nil {
		return false, &core.StorageError{Op: "check reminder", Err: err}
	}
	return n > 0, nil
}

// RecordReminder remembers that a reminder was sent.
func (r *SQLiteRepository) RecordReminder(ctx context.Context, installmentID int64, at time.Time) error {
	if err := r.queries.UpsertReminder(ctx, installmentID, at.UTC().Format(time.RFC3339)); err != nil {
		return &core.StorageError{Op: "record reminder", Err: err}
	}
	return nil
}

func toCoreInstallments(rows []Installment) ([]core.Installment, error) {
	out := make([]core.Installment, 0, len(rows))
	for _, row := range rows {
		inst, err := toCoreInstallment(row)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func toCoreInstallment(row Installment) (core.Installment, error) {
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		return core.Installment{}, fmt.Errorf("installment %d due date: %w", row.ID, err)
	}
	return core.Installment{
		ID:             row.ID,
		PlanID:         row.PlanID,
		SequenceNumber: int(row.SequenceNumber),
		Amount:         core.Money{Cents: row.AmountCents},
		DueDate:        due,
		Paid:           row.Paid != 0,
	}, nil
}

func toCoreCard(row CreditCard) core.CreditCard {
	return core.CreditCard{
		ID:   row.ID,
		Name: row.Name,
		Billing: core.CardBilling{
			ClosingDay: int(row.ClosingDay),
			DueDay:     int(row.DueDay),
		},
	}
}

func clonePlan(p core.InstallmentPlan) core.InstallmentPlan {
	p.Installments = append([]core.Installment(nil), p.Installments...)
	return p
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
