package log

import (
	"context"
	"errors"
	"log/slog"

	"parcelas/internal/core"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogPlanSaved logs a created or updated plan
func (sl *StructuredLogger) LogPlanSaved(ctx context.Context, op string, p core.InstallmentPlan) {
	fields := NewFields().
		WithPlan(p.ID, p.Description, p.TotalAmount.Cents, p.InstallmentCount, p.RemainingCount).
		WithOperation(op)
	fields[FieldStartDate] = p.StartDate.String()
	if p.CardID > 0 {
		fields[FieldCardID] = p.CardID
	}

	sl.logger.InfoContext(ctx, "Installment plan saved", fields.ToSlice()...)
}

// LogGenerateReport warns about recoverable conditions met while generating
// installments. It is silent when there is nothing to report.
func (sl *StructuredLogger) LogGenerateReport(ctx context.Context, p core.InstallmentPlan, report core.GenerateReport) {
	if report.StartDateDefaulted {
		sl.logger.WarnContext(ctx, "Plan had no start date, defaulted to today",
			NewFields().
				WithOperation(OpGenerate).
				WithPlan(p.ID, p.Description, p.TotalAmount.Cents, p.InstallmentCount, p.RemainingCount).
				ToSlice()...)
	}
	for i, seq := range report.Fallbacks {
		fields := NewFields().
			WithOperation(OpGenerate).
			WithError(report.FallbackErrs[i])
		fields[FieldPlanID] = p.ID
		fields[FieldSequence] = seq
		fields[FieldCardID] = p.CardID
		sl.logger.WarnContext(ctx, "Card schedule failed, used monthly due date", fields.ToSlice()...)
	}
	if len(report.NonPositive) > 0 {
		sl.logger.WarnContext(ctx, "Installment amounts rounded to zero or below",
			append(NewFields().
				WithOperation(OpGenerate).
				WithPlan(p.ID, p.Description, p.TotalAmount.Cents, p.InstallmentCount, p.RemainingCount).
				ToSlice(), FieldNonPositive, report.NonPositive)...)
	}
}

// LogInstallmentPaid logs a paid flag change
func (sl *StructuredLogger) LogInstallmentPaid(ctx context.Context, inst core.Installment, remaining int) {
	fields := NewFields().
		WithInstallment(inst.ID, inst.SequenceNumber, inst.Amount.Cents, inst.DueDate.String()).
		WithOperation(OpPay)
	fields[FieldPlanID] = inst.PlanID
	fields[FieldRemaining] = remaining
	fields["paid"] = inst.Paid

	sl.logger.InfoContext(ctx, "Installment paid flag changed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithErrorType(ErrorType(err)).
		WithOperation(operation)

	sl.logger.WithComponent(component).ErrorContext(ctx, msg, allFields.ToSlice()...)
}

// ErrorType classifies err into one of the ErrorType categories.
func ErrorType(err error) string {
	var verr *core.ValidationError
	var ierr *core.InvalidPlanError
	switch {
	case errors.As(err, &verr), errors.As(err, &ierr):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrPlanNotFound),
		errors.Is(err, core.ErrInstallmentNotFound),
		errors.Is(err, core.ErrCardNotFound):
		return ErrorTypeNotFound
	case core.IsStorageError(err):
		return ErrorTypeDatabase
	default:
		return ErrorTypeInternal
	}
}
