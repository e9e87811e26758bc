package core

import "fmt"

// Schedule computes installment due dates. A plan either follows the plain
// calendar (MonthlySchedule) or a credit card's billing cycle (CardSchedule).
type Schedule interface {
	// DueDate returns the due date of installment n (1-based) of a plan
	// starting on start.
	DueDate(n int, start Date) (Date, error)
}

// MonthlySchedule places installment n exactly n-1 months after the start.
type MonthlySchedule struct{}

func (MonthlySchedule) DueDate(n int, start Date) (Date, error) {
	if n < 1 {
		return Date{}, fmt.Errorf("installment number %d out of range", n)
	}
	return start.AddMonths(n - 1), nil
}

// CardSchedule moves every installment onto the card's due day.
type CardSchedule struct {
	Billing CardBilling
}

func (s CardSchedule) DueDate(n int, start Date) (Date, error) {
	if n < 1 {
		return Date{}, fmt.Errorf("installment number %d out of range", n)
	}
	if err := s.Billing.Validate(); err != nil {
		return Date{}, fmt.Errorf("card billing: %w", err)
	}

	base := start.AddMonths(n - 1)
	day := s.Billing.DueDay
	if last := LastDayOfMonth(base.Year(), base.Month()); day > last {
		day = last
	}

	due := NewDate(base.Year(), base.Month(), day)
	// A due day earlier than the purchase day would land before the plan starts.
	if due.Before(start) {
		due = due.AddMonths(1)
	}
	return due, nil
}

// ScheduleFor maps an optional card onto the matching schedule.
func ScheduleFor(card *CreditCard) Schedule {
	if card == nil {
		return MonthlySchedule{}
	}
	return CardSchedule{Billing: card.Billing}
}

// DueDateForInstallment is a convenience over Schedule.DueDate that treats a
// nil schedule as the plain monthly calendar.
func DueDateForInstallment(n int, start Date, s Schedule) (Date, error) {
	if s == nil {
		s = MonthlySchedule{}
	}
	return s.DueDate(n, start)
}
