package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parcelas/internal/amqp"
	"parcelas/internal/core"
	"parcelas/internal/log"
)

// PlanStore is the persistence gateway the service writes through. Both the
// SQLite repository and the in-memory store satisfy it.
type PlanStore interface {
	Insert(ctx context.Context, plan *core.InstallmentPlan) (int64, error)
	Update(ctx context.Context, plan *core.InstallmentPlan) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*core.InstallmentPlan, error)
	ListAll(ctx context.Context) ([]core.InstallmentPlan, error)
	ListActive(ctx context.Context) ([]core.InstallmentPlan, error)
	MarkInstallmentPaid(ctx context.Context, installmentID int64, paid bool) error
	FindInstallment(ctx context.Context, id int64) (core.Installment, error)
	UpcomingInstallments(ctx context.Context, from, to core.Date) ([]core.Installment, error)
	OverdueInstallments(ctx context.Context, today core.Date) ([]core.Installment, error)
	CreateCard(ctx context.Context, card core.CreditCard) (core.CreditCard, error)
	GetCard(ctx context.Context, id int64) (core.CreditCard, error)
	ListCards(ctx context.Context) ([]core.CreditCard, error)
	ReadMonthOverview(ctx context.Context, year int, month int) (core.MonthOverview, error)
}

// EventPublisher sends plan events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// PlanRequest is the user input for creating or updating a plan.
type PlanRequest struct {
	Description string
	Total       core.Money
	Count       int
	StartDate   core.Date // zero means today
	CardID      int64     // 0 means plain monthly schedule
}

type Options struct {
	SettleSameDayFirst bool
	Currency           string
	Now                func() time.Time
	Logger             *log.Logger
}

// PlanService orchestrates plan operations across the store and AMQP.
type PlanService struct {
	store      PlanStore
	publisher  EventPublisher
	opts       Options
	logger     *log.Logger
	structured *log.StructuredLogger
}

// NewPlanService wires a service. publisher may be nil, in which case no
// events are sent.
func NewPlanService(store PlanStore, publisher EventPublisher, opts Options) *PlanService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Currency == "" {
		opts.Currency = "R$"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentPlan)

	return &PlanService{
		store:      store,
		publisher:  publisher,
		opts:       opts,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}
}

// Currency is the symbol used when formatting amounts.
func (s *PlanService) Currency() string {
	return s.opts.Currency
}

// Today is the service clock truncated to a calendar day.
func (s *PlanService) Today() core.Date {
	return core.DateOf(s.opts.Now())
}

func (s *PlanService) build(ctx context.Context, id int64, req PlanRequest) (*core.InstallmentPlan, core.GenerateReport, error) {
	var schedule core.Schedule = core.MonthlySchedule{}
	if req.CardID > 0 {
		card, err := s.store.GetCard(ctx, req.CardID)
		if err != nil {
			return nil, core.GenerateReport{}, fmt.Errorf("resolve card: %w", err)
		}
		schedule = core.ScheduleFor(&card)
	}

	plan := &core.InstallmentPlan{
		ID:               id,
		Description:      strings.TrimSpace(req.Description),
		CardID:           req.CardID,
		TotalAmount:      req.Total,
		InstallmentCount: req.Count,
		StartDate:        req.StartDate,
	}
	report, err := plan.Generate(schedule, core.GenerateOptions{
		Today:              s.Today(),
		SettleSameDayFirst: s.opts.SettleSameDayFirst,
	})
	if err != nil {
		return nil, report, err
	}
	s.structured.LogGenerateReport(ctx, *plan, report)
	return plan, report, nil
}

// Preview generates the installments for req without saving anything.
func (s *PlanService) Preview(ctx context.Context, req PlanRequest) (*core.InstallmentPlan, core.GenerateReport, error) {
	return s.build(ctx, 0, req)
}

// CreatePlan generates and stores a new plan, then publishes plan.created.
func (s *PlanService) CreatePlan(ctx context.Context, req PlanRequest) (*core.InstallmentPlan, error) {
	plan, _, err := s.build(ctx, 0, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Insert(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	s.structured.LogPlanSaved(ctx, log.OpCreate, *plan)
	s.publish(ctx, amqp.NewEvent(amqp.EventPlanCreated, plan.ID))
	return plan, nil
}

// UpdatePlan regenerates the plan from req and replaces the stored
// installments wholesale.
func (s *PlanService) UpdatePlan(ctx context.Context, id int64, req PlanRequest) (*core.InstallmentPlan, error) {
	plan, _, err := s.build(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	s.structured.LogPlanSaved(ctx, log.OpUpdate, *plan)
	s.publish(ctx, amqp.NewEvent(amqp.EventPlanUpdated, plan.ID))
	return plan, nil
}

// DeletePlan removes a plan and its installments.
func (s *PlanService) DeletePlan(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	s.logger.InfoContext(ctx, "Installment plan deleted", log.FieldPlanID, id)
	s.publish(ctx, amqp.NewEvent(amqp.EventPlanDeleted, id))
	return nil
}

// MarkInstallmentPaid flips one installment's flag and returns the owning
// plan as stored afterwards.
func (s *PlanService) MarkInstallmentPaid(ctx context.Context, installmentID int64, paid bool) (*core.InstallmentPlan, error) {
	if err := s.store.MarkInstallmentPaid(ctx, installmentID, paid); err != nil {
		return nil, fmt.Errorf("mark installment %d: %w", installmentID, err)
	}

	inst, err := s.store.FindInstallment(ctx, installmentID)
	if err != nil {
		return nil, fmt.Errorf("reload installment: %w", err)
	}
	plan, err := s.store.FindByID(ctx, inst.PlanID)
	if err != nil {
		return nil, fmt.Errorf("reload plan: %w", err)
	}

	stored := plan.RemainingCount
	plan.RecomputeRemaining()
	if plan.RemainingCount != stored {
		s.logger.WarnContext(ctx, "Stored remaining count disagrees with installments",
			log.FieldPlanID, plan.ID,
			"stored", stored,
			"derived", plan.RemainingCount)
	}

	s.structured.LogInstallmentPaid(ctx, inst, plan.RemainingCount)

	evType := amqp.EventInstallmentPaid
	if !paid {
		evType = amqp.EventInstallmentUnpaid
	}
	s.publish(ctx, amqp.NewInstallmentEvent(evType, inst))
	return plan, nil
}

func (s *PlanService) GetPlan(ctx context.Context, id int64) (*core.InstallmentPlan, error) {
	return s.store.FindByID(ctx, id)
}

// ListPlans returns all plans, or only those with unpaid installments.
func (s *PlanService) ListPlans(ctx context.Context, activeOnly bool) ([]core.InstallmentPlan, error) {
	if activeOnly {
		return s.store.ListActive(ctx)
	}
	return s.store.ListAll(ctx)
}

// Upcoming returns unpaid installments due from today through today+days.
func (s *PlanService) Upcoming(ctx context.Context, days int) ([]core.Installment, error) {
	if days < 0 {
		return nil, &core.ValidationError{Problems: []string{fmt.Sprintf("window must not be negative, got %d days", days)}}
	}
	today := s.Today()
	return s.store.UpcomingInstallments(ctx, today, core.DateOf(today.AddDate(0, 0, days)))
}

// Overdue returns unpaid installments due before today.
func (s *PlanService) Overdue(ctx context.Context) ([]core.Installment, error) {
	return s.store.OverdueInstallments(ctx, s.Today())
}

func (s *PlanService) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	return s.store.ReadMonthOverview(ctx, year, month)
}

// AddCard stores a credit card billing configuration.
func (s *PlanService) AddCard(ctx context.Context, name string, billing core.CardBilling) (core.CreditCard, error) {
	card, err := s.store.CreateCard(ctx, core.CreditCard{Name: strings.TrimSpace(name), Billing: billing})
	if err != nil {
		return core.CreditCard{}, err
	}
	s.logger.InfoContext(ctx, "Credit card added",
		log.FieldCardID, card.ID,
		"name", card.Name,
		"closing_day", card.Billing.ClosingDay,
		"due_day", card.Billing.DueDay)
	return card, nil
}

func (s *PlanService) ListCards(ctx context.Context) ([]core.CreditCard, error) {
	return s.store.ListCards(ctx)
}

// publish never fails the caller: the write has already been committed.
func (s *PlanService) publish(ctx context.Context, ev amqp.Event) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping event",
			log.FieldEventType, string(ev.Type),
			log.FieldPlanID, ev.PlanID)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.structured.LogError(ctx, "Failed to publish plan event", err, log.ComponentAMQP, string(ev.Type),
			log.NewFields().WithEvent(ev.ID, string(ev.Type)))
	}
}
