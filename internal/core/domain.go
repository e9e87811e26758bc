package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// CardBilling is a credit card's monthly statement configuration.
	CardBilling struct {
		ClosingDay int
		DueDay     int
	}

	CreditCard struct {
		ID      int64
		Name    string
		Billing CardBilling
	}

	Installment struct {
		ID             int64
		PlanID         int64 // owning plan, lookups only
		SequenceNumber int
		Amount         Money
		DueDate        Date
		Paid           bool
	}

	InstallmentPlan struct {
		ID               int64 // 0 until persisted
		Description      string
		CardID           int64 // 0 when the plan is not tied to a card
		TotalAmount      Money
		InstallmentCount int
		RemainingCount   int
		StartDate        Date
		Installments     []Installment
	}
)

// Dates are stored as YYYY-MM-DD text, so only four-digit years round-trip.
const (
	minYear = 1900
	maxYear = 9999
)

var (
	ErrInvalidDay     = errors.New("invalid day")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyCardName  = errors.New("empty card name")
	ErrMissingDate    = errors.New("date is required")
	ErrDateOutOfRange = errors.New("date out of range")
)

// Validate rejects a missing date and one the store cannot represent.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	if y := d.Year(); y < minYear || y > maxYear {
		return fmt.Errorf("%w: year %d", ErrDateOutOfRange, y)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Before and Equal compare calendar days only.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves the date n calendar months, clamping the day to the
// target month's length (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), time.Month(d.Month())+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := LastDayOfMonth(first.Year(), int(first.Month())); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b CardBilling) Validate() error {
	if b.ClosingDay < 1 || b.ClosingDay > 31 {
		return fmt.Errorf("closing day %d: %w", b.ClosingDay, ErrInvalidDay)
	}
	if b.DueDay < 1 || b.DueDay > 31 {
		return fmt.Errorf("due day %d: %w", b.DueDay, ErrInvalidDay)
	}
	return nil
}

func (c CreditCard) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyCardName
	}
	if len(c.Name) > 100 {
		return errors.New("card name too long (max 100 characters)")
	}
	return c.Billing.Validate()
}
