package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		name string
		d    Date
		want error
	}{
		{"first day of year", NewDate(2025, 1, 1), nil},
		{"last day of year", NewDate(2025, 12, 31), nil},
		{"zero time", Date{Time: time.Time{}}, ErrMissingDate},
		{"before 1900", NewDate(1899, 12, 31), ErrDateOutOfRange},
		{"five-digit year", NewDate(10000, 1, 1), ErrDateOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.d.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDateAddMonths(t *testing.T) {
	tests := []struct {
		name  string
		start Date
		n     int
		want  Date
	}{
		{"same day next month", NewDate(2024, 1, 15), 1, NewDate(2024, 2, 15)},
		{"clamps to leap february", NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)},
		{"clamps to non-leap february", NewDate(2023, 1, 31), 1, NewDate(2023, 2, 28)},
		{"clamps to 30-day month", NewDate(2024, 3, 31), 1, NewDate(2024, 4, 30)},
		{"crosses year", NewDate(2024, 11, 30), 3, NewDate(2025, 2, 28)},
		{"zero months", NewDate(2024, 5, 5), 0, NewDate(2024, 5, 5)},
		{"negative months", NewDate(2024, 3, 31), -1, NewDate(2024, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.start.AddMonths(tt.n); !got.Equal(tt.want) {
				t.Errorf("AddMonths(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

func TestLastDayOfMonth(t *testing.T) {
	if got := LastDayOfMonth(2024, 2); got != 29 {
		t.Fatalf("expected 29, got %d", got)
	}
	if got := LastDayOfMonth(2023, 2); got != 28 {
		t.Fatalf("expected 28, got %d", got)
	}
	if got := LastDayOfMonth(2024, 12); got != 31 {
		t.Fatalf("expected 31, got %d", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(NewDate(2024, 2, 29)) || d.String() != "2024-02-29" {
		t.Fatalf("unexpected date %s", d)
	}
	if _, err := ParseDate("2023-02-29"); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestCreditCardValidate(t *testing.T) {
	good := CreditCard{Name: "Nubank", Billing: CardBilling{ClosingDay: 3, DueDay: 10}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []CreditCard{
		{Name: "", Billing: CardBilling{ClosingDay: 3, DueDay: 10}},
		{Name: "x", Billing: CardBilling{ClosingDay: 0, DueDay: 10}},
		{Name: "x", Billing: CardBilling{ClosingDay: 3, DueDay: 32}},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
	if err := bads[1].Validate(); !errors.Is(err, ErrInvalidDay) {
		t.Fatalf("expected ErrInvalidDay, got %v", err)
	}
}
