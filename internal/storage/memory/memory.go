// Package memory is an in-process plan store with the same contract as the
// SQLite repository. Service, worker and command tests run against it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"parcelas/internal/core"
)

type Store struct {
	mu        sync.Mutex
	plans     map[int64]core.InstallmentPlan
	cards     map[int64]core.CreditCard
	reminders map[int64]time.Time
	nextPlan  int64
	nextInst  int64
	nextCard  int64

	// failInstallments makes every installment write fail after the plan row
	// has been staged.
	failInstallments error
}

func New() *Store {
	return &Store{
		plans:     map[int64]core.InstallmentPlan{},
		cards:     map[int64]core.CreditCard{},
		reminders: map[int64]time.Time{},
	}
}

// FailInstallmentWrites injects err into every subsequent installment write.
// Pass nil to clear it.
func (s *Store) FailInstallmentWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInstallments = err
}

func (s *Store) Insert(_ context.Context, plan *core.InstallmentPlan) (int64, error) {
	if err := plan.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCard("insert plan", plan.CardID); err != nil {
		return 0, err
	}

	staged := clonePlan(*plan)
	staged.ID = s.nextPlan + 1
	nextInst, err := s.stageInstallments(&staged, s.nextInst)
	if err != nil {
		return 0, &core.StorageError{Op: "insert plan", Err: err}
	}
	staged.RecomputeRemaining()

	s.nextPlan = staged.ID
	s.nextInst = nextInst
	s.plans[staged.ID] = clonePlan(staged)
	*plan = staged
	return staged.ID, nil
}

func (s *Store) Update(_ context.Context, plan *core.InstallmentPlan) error {
	if err := plan.ValidateForUpdate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[plan.ID]; !ok {
		return fmt.Errorf("plan %d: %w", plan.ID, core.ErrPlanNotFound)
	}
	if err := s.checkCard("update plan", plan.CardID); err != nil {
		return err
	}

	staged := clonePlan(*plan)
	nextInst, err := s.stageInstallments(&staged, s.nextInst)
	if err != nil {
		return &core.StorageError{Op: "update plan", Err: err}
	}
	staged.RecomputeRemaining()

	s.nextInst = nextInst
	s.plans[staged.ID] = clonePlan(staged)
	*plan = staged
	return nil
}

// checkCard mirrors the plans.card_id foreign key. Callers hold s.mu.
func (s *Store) checkCard(op string, cardID int64) error {
	if cardID <= 0 {
		return nil
	}
	if _, ok := s.cards[cardID]; !ok {
		return &core.StorageError{Op: op, Err: fmt.Errorf("card %d does not exist", cardID)}
	}
	return nil
}

func (s *Store) stageInstallments(plan *core.InstallmentPlan, next int64) (int64, error) {
	for i := range plan.Installments {
		if s.failInstallments != nil {
			return 0, fmt.Errorf("create installment %d: %w", plan.Installments[i].SequenceNumber, s.failInstallments)
		}
		next++
		plan.Installments[i].ID = next
		plan.Installments[i].PlanID = plan.ID
	}
	return next, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return fmt.Errorf("plan %d: %w", id, core.ErrPlanNotFound)
	}
	for _, inst := range p.Installments {
		delete(s.reminders, inst.ID)
	}
	delete(s.plans, id)
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*core.InstallmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %d: %w", id, core.ErrPlanNotFound)
	}
	cp := clonePlan(p)
	return &cp, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.InstallmentPlan, error) {
	return s.list(func(core.InstallmentPlan) bool { return true }), nil
}

func (s *Store) ListActive(_ context.Context) ([]core.InstallmentPlan, error) {
	return s.list(func(p core.InstallmentPlan) bool { return p.RemainingCount > 0 }), nil
}

func (s *Store) list(keep func(core.InstallmentPlan) bool) []core.InstallmentPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.InstallmentPlan, 0, len(s.plans))
	for _, p := range s.plans {
		if keep(p) {
			out = append(out, clonePlan(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[j].StartDate.Before(out[i].StartDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) MarkInstallmentPaid(_ context.Context, installmentID int64, paid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.plans {
		for i := range p.Installments {
			if p.Installments[i].ID != installmentID {
				continue
			}
			staged := clonePlan(p)
			staged.Installments[i].Paid = paid
			staged.RecomputeRemaining()
			s.plans[id] = staged
			return nil
		}
	}
	return fmt.Errorf("installment %d: %w", installmentID, core.ErrInstallmentNotFound)
}

func (s *Store) FindInstallment(_ context.Context, id int64) (core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		for _, inst := range p.Installments {
			if inst.ID == id {
				return inst, nil
			}
		}
	}
	return core.Installment{}, fmt.Errorf("installment %d: %w", id, core.ErrInstallmentNotFound)
}

func (s *Store) UpcomingInstallments(_ context.Context, from, to core.Date) ([]core.Installment, error) {
	return s.unpaid(func(d core.Date) bool { return !d.Before(from) && !to.Before(d) }), nil
}

func (s *Store) OverdueInstallments(_ context.Context, today core.Date) ([]core.Installment, error) {
	return s.unpaid(func(d core.Date) bool { return d.Before(today) }), nil
}

func (s *Store) unpaid(match func(core.Date) bool) []core.Installment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Installment
	for _, p := range s.plans {
		for _, inst := range p.Installments {
			if !inst.Paid && match(inst.DueDate) {
				out = append(out, inst)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.PlanID != b.PlanID {
			return a.PlanID < b.PlanID
		}
		return a.SequenceNumber < b.SequenceNumber
	})
	return out
}

func (s *Store) CreateCard(_ context.Context, card core.CreditCard) (core.CreditCard, error) {
	if err := card.Validate(); err != nil {
		return core.CreditCard{}, &core.ValidationError{Problems: []string{err.Error()}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if strings.EqualFold(c.Name, card.Name) {
			return core.CreditCard{}, &core.StorageError{Op: "create card", Err: fmt.Errorf("card %q already exists", card.Name)}
		}
	}
	s.nextCard++
	card.ID = s.nextCard
	s.cards[card.ID] = card
	return card, nil
}

func (s *Store) GetCard(_ context.Context, id int64) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return core.CreditCard{}, fmt.Errorf("card %d: %w", id, core.ErrCardNotFound)
	}
	return c, nil
}

func (s *Store) ListCards(_ context.Context) ([]core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CreditCard, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ReadMonthOverview(_ context.Context, year int, month int) (core.MonthOverview, error) {
	ov := core.MonthOverview{Year: year, Month: month}
	if month < 1 || month > 12 {
		return ov, &core.ValidationError{Problems: []string{fmt.Sprintf("invalid month: %d", month)}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	type row struct {
		due core.Date
		pd  core.PlanDue
	}
	var rows []row
	for _, p := range s.plans {
		for _, inst := range p.Installments {
			if inst.DueDate.Year() != year || inst.DueDate.Month() != month {
				continue
			}
			rows = append(rows, row{due: inst.DueDate, pd: core.PlanDue{
				PlanID:      p.ID,
				Description: p.Description,
				Amount:      inst.Amount,
				Paid:        inst.Paid,
			}})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].due.Equal(rows[j].due) {
			return rows[i].due.Before(rows[j].due)
		}
		return rows[i].pd.PlanID < rows[j].pd.PlanID
	})

	for _, r := range rows {
		ov.Total = ov.Total.Add(r.pd.Amount)
		if r.pd.Paid {
			ov.Paid = ov.Paid.Add(r.pd.Amount)
		} else {
			ov.Open = ov.Open.Add(r.pd.Amount)
		}
		ov.ByPlan = append(ov.ByPlan, r.pd)
	}
	return ov, nil
}

func (s *Store) WasReminded(_ context.Context, installmentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reminders[installmentID]
	return ok, nil
}

func (s *Store) RecordReminder(_ context.Context, installmentID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[installmentID] = at
	return nil
}

func clonePlan(p core.InstallmentPlan) core.InstallmentPlan {
	p.Installments = append([]core.Installment(nil), p.Installments...)
	return p
}
