package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"parcelas/internal/core"
	"parcelas/internal/services"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

// parseID reads the leading positional id and returns the remaining args.
func parseID(what string, args []string) (int64, []string, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("%w: missing %s id", errUsage, what)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("%w: invalid %s id %q", errUsage, what, args[0])
	}
	return id, args[1:], nil
}

func runCard(ctx context.Context, svc *services.PlanService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: card needs add or list", errUsage)
	}

	switch args[0] {
	case "add":
		fs := newFlagSet("card add")
		name := fs.String("name", "", "card name")
		closing := fs.Int("closing", 0, "statement closing day (1-31)")
		due := fs.Int("due", 0, "payment due day (1-31)")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}

		card, err := svc.AddCard(ctx, *name, core.CardBilling{ClosingDay: *closing, DueDay: *due})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "card %d added: %s (closes on %d, due on %d)\n",
			card.ID, card.Name, card.Billing.ClosingDay, card.Billing.DueDay)
		return nil

	case "list":
		cards, err := svc.ListCards(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCLOSING\tDUE")
		for _, c := range cards {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", c.ID, c.Name, c.Billing.ClosingDay, c.Billing.DueDay)
		}
		return tw.Flush()

	default:
		return fmt.Errorf("%w: unknown card command %q", errUsage, args[0])
	}
}

// planFlags binds the flags shared by preview, create and update.
type planFlags struct {
	desc  *string
	total *string
	count *int
	start *string
	card  *int64
}

func bindPlanFlags(fs *flag.FlagSet) planFlags {
	return planFlags{
		desc:  fs.String("desc", "", "description"),
		total: fs.String("total", "", "total amount, e.g. 1299.90"),
		count: fs.Int("count", 0, "number of installments"),
		start: fs.String("start", "", "first due date YYYY-MM-DD (default today)"),
		card:  fs.Int64("card", 0, "credit card id"),
	}
}

func (f planFlags) request() (services.PlanRequest, error) {
	req := services.PlanRequest{
		Description: *f.desc,
		Count:       *f.count,
		CardID:      *f.card,
	}

	if strings.TrimSpace(*f.total) == "" {
		return req, fmt.Errorf("%w: --total is required", errUsage)
	}
	cents, err := core.ParseDecimalToCents(*f.total)
	if err != nil {
		return req, fmt.Errorf("%w: --total: %v", errUsage, err)
	}
	req.Total = core.Money{Cents: cents}

	if s := strings.TrimSpace(*f.start); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return req, fmt.Errorf("%w: --start: %v", errUsage, err)
		}
		req.StartDate = d
	}
	return req, nil
}

func runPlan(ctx context.Context, svc *services.PlanService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: plan needs a subcommand", errUsage)
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "preview", "create":
		fs := newFlagSet("plan " + sub)
		pf := bindPlanFlags(fs)
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		req, err := pf.request()
		if err != nil {
			return err
		}

		if sub == "preview" {
			plan, report, err := svc.Preview(ctx, req)
			if err != nil {
				return err
			}
			printPlan(out, plan, svc.Currency())
			printWarnings(out, report)
			return nil
		}
		plan, err := svc.CreatePlan(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "plan %d created\n", plan.ID)
		printPlan(out, plan, svc.Currency())
		return nil

	case "update":
		id, rest, err := parseID("plan", rest)
		if err != nil {
			return err
		}
		fs := newFlagSet("plan update")
		pf := bindPlanFlags(fs)
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		req, err := pf.request()
		if err != nil {
			return err
		}
		plan, err := svc.UpdatePlan(ctx, id, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "plan %d updated\n", plan.ID)
		printPlan(out, plan, svc.Currency())
		return nil

	case "list":
		fs := newFlagSet("plan list")
		active := fs.Bool("active", false, "only plans with unpaid installments")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		plans, err := svc.ListPlans(ctx, *active)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDESCRIPTION\tTOTAL\tSTART\tSUMMARY")
		for _, p := range plans {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
				p.ID, p.Description, p.TotalAmount.Format(svc.Currency()), p.StartDate, p.Summary(svc.Currency()))
		}
		return tw.Flush()

	case "show":
		id, _, err := parseID("plan", rest)
		if err != nil {
			return err
		}
		plan, err := svc.GetPlan(ctx, id)
		if err != nil {
			return err
		}
		printPlan(out, plan, svc.Currency())
		return nil

	case "delete":
		id, _, err := parseID("plan", rest)
		if err != nil {
			return err
		}
		if err := svc.DeletePlan(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "plan %d deleted\n", id)
		return nil

	default:
		return fmt.Errorf("%w: unknown plan command %q", errUsage, sub)
	}
}

func runPay(ctx context.Context, svc *services.PlanService, args []string, out io.Writer) error {
	id, rest, err := parseID("installment", args)
	if err != nil {
		return err
	}
	fs := newFlagSet("pay")
	undo := fs.Bool("undo", false, "mark the installment unpaid again")
	if err := parseFlags(fs, rest); err != nil {
		return err
	}

	plan, err := svc.MarkInstallmentPaid(ctx, id, !*undo)
	if err != nil {
		return err
	}
	state := "paid"
	if *undo {
		state = "unpaid"
	}
	fmt.Fprintf(out, "installment %d marked %s; %s\n", id, state, plan.Summary(svc.Currency()))
	return nil
}

func runUpcoming(ctx context.Context, svc *services.PlanService, args []string, out io.Writer) error {
	fs := newFlagSet("upcoming")
	days := fs.Int("days", 30, "window in days")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	insts, err := svc.Upcoming(ctx, *days)
	if err != nil {
		return err
	}
	return printInstallments(out, insts, svc.Currency())
}

func runOverdue(ctx context.Context, svc *services.PlanService, args []string, out io.Writer) error {
	if err := parseFlags(newFlagSet("overdue"), args); err != nil {
		return err
	}
	insts, err := svc.Overdue(ctx)
	if err != nil {
		return err
	}
	return printInstallments(out, insts, svc.Currency())
}

func runOverview(ctx context.Context, svc *services.PlanService, args []string, out io.Writer) error {
	fs := newFlagSet("overview")
	month := fs.String("month", "", "month as YYYY-MM (default current month)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	today := svc.Today()
	year, mon := today.Year(), today.Month()
	if *month != "" {
		t, err := time.Parse("2006-01", *month)
		if err != nil {
			return fmt.Errorf("%w: --month: expected YYYY-MM, got %q", errUsage, *month)
		}
		year, mon = t.Year(), int(t.Month())
	}

	ov, err := svc.MonthOverview(ctx, year, mon)
	if err != nil {
		return err
	}

	cur := svc.Currency()
	fmt.Fprintf(out, "%04d-%02d  total %s  paid %s  open %s\n",
		ov.Year, ov.Month, ov.Total.Format(cur), ov.Paid.Format(cur), ov.Open.Format(cur))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tDESCRIPTION\tAMOUNT\tPAID")
	for _, d := range ov.ByPlan {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.PlanID, d.Description, d.Amount.Format(cur), yesNo(d.Paid))
	}
	return tw.Flush()
}

func printPlan(out io.Writer, p *core.InstallmentPlan, currency string) {
	if p.ID > 0 {
		fmt.Fprintf(out, "#%d ", p.ID)
	}
	fmt.Fprintf(out, "%s: %s total, %s paid, %s\n",
		p.Description, p.TotalAmount.Format(currency), p.PaidAmount().Format(currency), p.Summary(currency))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tN\tDUE\tAMOUNT\tPAID")
	for _, inst := range p.Installments {
		id := "-"
		if inst.ID > 0 {
			id = strconv.FormatInt(inst.ID, 10)
		}
		fmt.Fprintf(tw, "%s\t%d/%d\t%s\t%s\t%s\n",
			id, inst.SequenceNumber, p.InstallmentCount, inst.DueDate, inst.Amount.Format(currency), yesNo(inst.Paid))
	}
	_ = tw.Flush()
}

func printWarnings(out io.Writer, report core.GenerateReport) {
	for i, seq := range report.Fallbacks {
		fmt.Fprintf(out, "warning: installment %d uses the monthly due date (%v)\n", seq, report.FallbackErrs[i])
	}
	if len(report.NonPositive) > 0 {
		fmt.Fprintf(out, "warning: installments %v round to zero or below; this plan cannot be saved\n", report.NonPositive)
	}
}

func printInstallments(out io.Writer, insts []core.Installment, currency string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLAN\tN\tDUE\tAMOUNT")
	for _, inst := range insts {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\n",
			inst.ID, inst.PlanID, inst.SequenceNumber, inst.DueDate, inst.Amount.Format(currency))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
