package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GenerateOptions controls the environment-dependent parts of Generate.
type GenerateOptions struct {
	// Today is used when the plan has no start date and for the same-day
	// settlement rule.
	Today Date
	// SettleSameDayFirst marks installment 1 as paid when the plan starts today.
	SettleSameDayFirst bool
}

// GenerateReport describes the recoverable conditions met during Generate.
type GenerateReport struct {
	StartDateDefaulted bool
	// Fallbacks lists the sequence numbers whose due date came from the plain
	// monthly calendar because the schedule failed.
	Fallbacks []int
	// FallbackErrs holds the schedule error for each entry in Fallbacks.
	FallbackErrs []error
	// NonPositive lists the sequence numbers whose amount rounded to zero or
	// below. Such a plan fails Validate and cannot be stored.
	NonPositive []int
}

// UsedFallback reports whether any due date was degraded.
func (r GenerateReport) UsedFallback() bool {
	return len(r.Fallbacks) > 0
}

// Generate replaces the plan's installments with a fresh split of TotalAmount.
func (p *InstallmentPlan) Generate(schedule Schedule, opts GenerateOptions) (GenerateReport, error) {
	var report GenerateReport

	if p.StartDate.IsZero() {
		p.StartDate = opts.Today
		report.StartDateDefaulted = true
	}
	if p.InstallmentCount <= 0 {
		return report, &InvalidPlanError{Reason: fmt.Sprintf("installment count must be positive, got %d", p.InstallmentCount)}
	}
	if p.TotalAmount.Cents <= 0 {
		return report, &InvalidPlanError{Reason: fmt.Sprintf("total amount must be positive, got %s", p.TotalAmount)}
	}
	if schedule == nil {
		schedule = MonthlySchedule{}
	}

	total := p.TotalAmount.Decimal()
	count := decimal.NewFromInt(int64(p.InstallmentCount))
	per := Round2(total.Div(count))
	last := Round2(total.Sub(per.Mul(decimal.NewFromInt(int64(p.InstallmentCount - 1)))))

	installments := make([]Installment, 0, p.InstallmentCount)
	for i := 1; i <= p.InstallmentCount; i++ {
		amount := per
		if i == p.InstallmentCount {
			amount = last
		}

		due, err := schedule.DueDate(i, p.StartDate)
		if err != nil {
			due = p.StartDate.AddMonths(i - 1)
			report.Fallbacks = append(report.Fallbacks, i)
			report.FallbackErrs = append(report.FallbackErrs, err)
		}

		money := MoneyFromDecimal(amount)
		if money.Cents <= 0 {
			report.NonPositive = append(report.NonPositive, i)
		}

		installments = append(installments, Installment{
			PlanID:         p.ID,
			SequenceNumber: i,
			Amount:         money,
			DueDate:        due,
			Paid:           opts.SettleSameDayFirst && i == 1 && p.StartDate.Equal(opts.Today),
		})
	}

	p.Installments = installments
	p.RecomputeRemaining()
	return report, nil
}

// RecomputeRemaining derives RemainingCount from the installments' paid flags.
func (p *InstallmentPlan) RecomputeRemaining() {
	remaining := 0
	for _, inst := range p.Installments {
		if !inst.Paid {
			remaining++
		}
	}
	p.RemainingCount = remaining
}

// SetInstallmentPaid flips the paid flag of one installment in memory.
func (p *InstallmentPlan) SetInstallmentPaid(sequence int, paid bool) error {
	for i := range p.Installments {
		if p.Installments[i].SequenceNumber == sequence {
			p.Installments[i].Paid = paid
			p.RecomputeRemaining()
			return nil
		}
	}
	return fmt.Errorf("sequence %d: %w", sequence, ErrInstallmentNotFound)
}

// PerInstallment is the regular (non-final) installment amount.
func (p InstallmentPlan) PerInstallment() Money {
	if len(p.Installments) > 0 {
		return p.Installments[0].Amount
	}
	if p.InstallmentCount <= 0 {
		return Money{}
	}
	return MoneyFromDecimal(p.TotalAmount.Decimal().Div(decimal.NewFromInt(int64(p.InstallmentCount))))
}

// PaidAmount sums the installments already settled.
func (p InstallmentPlan) PaidAmount() Money {
	var paid Money
	for _, inst := range p.Installments {
		if inst.Paid {
			paid = paid.Add(inst.Amount)
		}
	}
	return paid
}

// Summary renders "3x of R$ 33.33 (2 remaining)".
func (p InstallmentPlan) Summary(currency string) string {
	return fmt.Sprintf("%dx of %s (%d remaining)", p.InstallmentCount, p.PerInstallment().Format(currency), p.RemainingCount)
}

// Validate checks the structure a store requires before writing a plan.
func (p InstallmentPlan) Validate() error {
	verr := &ValidationError{}
	p.collectProblems(verr)
	return verr.orNil()
}

// ValidateForUpdate additionally requires a persisted plan ID.
func (p InstallmentPlan) ValidateForUpdate() error {
	verr := &ValidationError{}
	if p.ID <= 0 {
		verr.add("plan id is required for update")
	}
	p.collectProblems(verr)
	return verr.orNil()
}

func (p InstallmentPlan) collectProblems(verr *ValidationError) {
	if p.InstallmentCount <= 0 {
		verr.add("installment count must be positive")
	}
	if p.TotalAmount.Cents <= 0 {
		verr.add("total amount must be positive")
	}
	if err := p.StartDate.Validate(); err != nil {
		verr.add("start date: %v", err)
	}
	if len(p.Description) > 200 {
		verr.add("description too long (max 200 characters)")
	}
	if len(p.Installments) == 0 {
		verr.add("plan has no installments")
		return
	}
	if p.InstallmentCount > 0 && len(p.Installments) != p.InstallmentCount {
		verr.add("plan has %d installments, expected %d", len(p.Installments), p.InstallmentCount)
	}

	var sum Money
	for i, inst := range p.Installments {
		if inst.SequenceNumber != i+1 {
			verr.add("installment at position %d has sequence number %d", i+1, inst.SequenceNumber)
		}
		if err := inst.DueDate.Validate(); err != nil {
			verr.add("installment %d due date: %v", inst.SequenceNumber, err)
		}
		if inst.Amount.Cents <= 0 {
			verr.add("installment %d amount must be positive", inst.SequenceNumber)
		}
		sum = sum.Add(inst.Amount)
	}
	if p.TotalAmount.Cents > 0 && sum != p.TotalAmount {
		verr.add("installments sum to %s, expected %s", sum, p.TotalAmount)
	}
}
