package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"250", 25000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"33.333333", "33.33"},
		{"33.335", "33.34"},
		{"0.005", "0.01"},
		{"0.004", "0"},
		{"12.5", "12.5"},
	}
	for _, tc := range cases {
		got := Round2(decimal.RequireFromString(tc.in))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("Round2(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	if got := MoneyFromDecimal(decimal.RequireFromString("33.335")); got.Cents != 3334 {
		t.Fatalf("expected 3334 cents, got %d", got.Cents)
	}
	if got := MoneyFromDecimal(decimal.NewFromInt(100).Div(decimal.NewFromInt(3))); got.Cents != 3333 {
		t.Fatalf("expected 3333 cents, got %d", got.Cents)
	}
}

func TestMoneyFormat(t *testing.T) {
	m := Money{Cents: 3334}
	if m.String() != "33.34" {
		t.Fatalf("String() = %q", m.String())
	}
	if m.Format("R$") != "R$ 33.34" {
		t.Fatalf("Format() = %q", m.Format("R$"))
	}
	if (Money{Cents: 5}).String() != "0.05" {
		t.Fatalf("expected 0.05, got %q", (Money{Cents: 5}).String())
	}
}
