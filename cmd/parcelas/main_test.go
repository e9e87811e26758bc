package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"parcelas/internal/core"
	"parcelas/internal/services"
	"parcelas/internal/storage/memory"
)

func newTestCLI(t *testing.T) (func(args ...string) (string, error), *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := services.NewPlanService(store, nil, services.Options{
		SettleSameDayFirst: true,
		Currency:           "R$",
		Now:                func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) },
	})
	exec := func(args ...string) (string, error) {
		var out bytes.Buffer
		err := run(context.Background(), svc, args, &out)
		return out.String(), err
	}
	return exec, store
}

func TestRun_PlanLifecycle(t *testing.T) {
	exec, store := newTestCLI(t)

	out, err := exec("plan", "create", "--desc", "Notebook", "--total", "100.00", "--count", "3", "--start", "2024-01-15")
	if err != nil {
		t.Fatalf("plan create error = %v", err)
	}
	for _, want := range []string{"plan 1 created", "2024-01-15", "2024-02-15", "2024-03-15", "R$ 33.34", "(3 remaining)"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan create output missing %q:\n%s", want, out)
		}
	}

	out, err = exec("pay", "1")
	if err != nil {
		t.Fatalf("pay error = %v", err)
	}
	if !strings.Contains(out, "marked paid") || !strings.Contains(out, "(2 remaining)") {
		t.Errorf("pay output = %q", out)
	}

	out, err = exec("plan", "show", "1")
	if err != nil {
		t.Fatalf("plan show error = %v", err)
	}
	if !strings.Contains(out, "R$ 100.00 total, R$ 33.33 paid") {
		t.Errorf("plan show output = %q", out)
	}

	out, err = exec("pay", "1", "--undo")
	if err != nil {
		t.Fatalf("pay --undo error = %v", err)
	}
	if !strings.Contains(out, "marked unpaid") || !strings.Contains(out, "(3 remaining)") {
		t.Errorf("pay --undo output = %q", out)
	}

	out, err = exec("overview", "--month", "2024-02")
	if err != nil {
		t.Fatalf("overview error = %v", err)
	}
	if !strings.Contains(out, "2024-02  total R$ 33.33  paid R$ 0.00  open R$ 33.33") {
		t.Errorf("overview output = %q", out)
	}

	out, err = exec("upcoming", "--days", "10")
	if err != nil {
		t.Fatalf("upcoming error = %v", err)
	}
	if !strings.Contains(out, "2024-01-15") || strings.Contains(out, "2024-02-15") {
		t.Errorf("upcoming output = %q", out)
	}

	if _, err := exec("plan", "delete", "1"); err != nil {
		t.Fatalf("plan delete error = %v", err)
	}
	plans, _ := store.ListAll(context.Background())
	if len(plans) != 0 {
		t.Errorf("plans after delete = %d, want 0", len(plans))
	}
}

func TestRun_PreviewDoesNotSave(t *testing.T) {
	exec, store := newTestCLI(t)

	out, err := exec("plan", "preview", "--desc", "TV", "--total", "250", "--count", "2", "--start", "2024-02-01")
	if err != nil {
		t.Fatalf("plan preview error = %v", err)
	}
	if !strings.Contains(out, "R$ 125.00") {
		t.Errorf("preview output = %q", out)
	}
	plans, _ := store.ListAll(context.Background())
	if len(plans) != 0 {
		t.Errorf("preview stored %d plans", len(plans))
	}
}

func TestRun_PreviewWarnsAboutNonPositiveAmounts(t *testing.T) {
	exec, _ := newTestCLI(t)

	out, err := exec("plan", "preview", "--total", "0.01", "--count", "3", "--start", "2024-02-01")
	if err != nil {
		t.Fatalf("plan preview error = %v", err)
	}
	if !strings.Contains(out, "warning: installments [1 2] round to zero or below") {
		t.Errorf("preview output = %q", out)
	}

	if _, err := exec("plan", "create", "--total", "0.01", "--count", "3", "--start", "2024-02-01"); err == nil {
		t.Error("expected create to reject a plan with zero installments")
	}
}

func TestRun_Cards(t *testing.T) {
	exec, _ := newTestCLI(t)

	out, err := exec("card", "add", "--name", "Nubank", "--closing", "20", "--due", "31")
	if err != nil {
		t.Fatalf("card add error = %v", err)
	}
	if !strings.Contains(out, "card 1 added: Nubank") {
		t.Errorf("card add output = %q", out)
	}

	out, err = exec("card", "list")
	if err != nil {
		t.Fatalf("card list error = %v", err)
	}
	if !strings.Contains(out, "Nubank") {
		t.Errorf("card list output = %q", out)
	}

	if _, err := exec("card", "add", "--name", "Bad", "--closing", "0", "--due", "10"); err == nil {
		t.Error("expected error for closing day 0")
	}
}

func TestRun_Errors(t *testing.T) {
	exec, _ := newTestCLI(t)

	usageCases := [][]string{
		{},
		{"bogus"},
		{"plan"},
		{"plan", "show"},
		{"plan", "show", "abc"},
		{"plan", "create", "--count", "3"},
		{"plan", "create", "--total", "1,2,3", "--count", "3"},
		{"plan", "create", "--total", "10", "--count", "3", "--start", "15/01/2024"},
		{"pay"},
		{"overview", "--month", "2024/02"},
		{"card", "remove"},
	}
	for _, args := range usageCases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := exec(args...); !errors.Is(err, errUsage) {
				t.Errorf("run(%v) error = %v, want usage error", args, err)
			}
		})
	}

	t.Run("missing plan", func(t *testing.T) {
		_, err := exec("plan", "show", "99")
		if !errors.Is(err, core.ErrPlanNotFound) {
			t.Errorf("error = %v, want ErrPlanNotFound", err)
		}
	})

	t.Run("invalid plan", func(t *testing.T) {
		_, err := exec("plan", "create", "--total", "10", "--count", "0")
		if err == nil || errors.Is(err, errUsage) {
			t.Errorf("error = %v, want domain error", err)
		}
	})
}
