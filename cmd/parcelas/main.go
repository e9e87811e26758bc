package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"parcelas/internal/cli"
	"parcelas/internal/log"
	"parcelas/internal/services"
)

const usage = `usage: parcelas <command> [flags]

commands:
  card add --name N --closing D --due D   register a credit card
  card list                               list credit cards
  plan preview  [plan flags]              show the installments without saving
  plan create   [plan flags]              create an installment plan
  plan update   <id> [plan flags]         regenerate an existing plan
  plan list     [--active]                list plans
  plan show     <id>                      show a plan and its installments
  plan delete   <id>                      delete a plan
  pay           <installment-id> [--undo] mark an installment paid (or unpaid)
  upcoming      [--days N]                unpaid installments due soon
  overdue                                 unpaid installments past their due date
  overview      [--month YYYY-MM]         amounts due in a month

plan flags: --desc TEXT --total 100.00 --count N [--start YYYY-MM-DD] [--card ID]
`

var errUsage = errors.New("invalid usage")

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	opts := services.Options{
		SettleSameDayFirst: cfg.SettleSameDayFirst,
		Currency:           cfg.CurrencySymbol,
		Logger:             logger,
	}

	var svc *services.PlanService
	if client := cli.ConnectAMQP(logger, cfg); client != nil {
		defer client.Close()
		svc = services.NewPlanService(repo, client, opts)
	} else {
		svc = services.NewPlanService(repo, nil, opts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx, svc, os.Args[1:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run dispatches one command. It writes results to out and returns errors
// wrapping errUsage for malformed invocations.
func run(ctx context.Context, svc *services.PlanService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "card":
		return runCard(ctx, svc, rest, out)
	case "plan":
		return runPlan(ctx, svc, rest, out)
	case "pay":
		return runPay(ctx, svc, rest, out)
	case "upcoming":
		return runUpcoming(ctx, svc, rest, out)
	case "overdue":
		return runOverdue(ctx, svc, rest, out)
	case "overview":
		return runOverview(ctx, svc, rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}
