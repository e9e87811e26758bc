package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldPlanID        = "plan_id"
	FieldInstallmentID = "installment_id"
	FieldSequence      = "sequence_number"
	FieldDescription   = "description"
	FieldAmountCents   = "amount_cents"
	FieldInstallments  = "installments"
	FieldRemaining     = "remaining"
	FieldStartDate     = "start_date"
	FieldDueDate       = "due_date"
	FieldCardID        = "card_id"
	FieldEventID       = "event_id"
	FieldEventType     = "event_type"
	FieldSheetsRef     = "sheets_ref"
	FieldNonPositive   = "non_positive_sequences"
	FieldPaidCents     = "paid_cents"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentCLI      = "cli"
	ComponentPlan     = "plan"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentReminder = "reminder"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpPay      = "pay"
	OpExport   = "export"
	OpRemind   = "remind"
	OpGenerate = "generate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeDatabase   = "database_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds an error category
func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPlan adds the identifying fields of an installment plan
func (f LogFields) WithPlan(id int64, desc string, totalCents int64, installments, remaining int) LogFields {
	f[FieldPlanID] = id
	f[FieldDescription] = desc
	f[FieldAmountCents] = totalCents
	f[FieldInstallments] = installments
	f[FieldRemaining] = remaining
	return f
}

// WithInstallment adds the fields of a single installment
func (f LogFields) WithInstallment(id int64, seq int, amountCents int64, due string) LogFields {
	f[FieldInstallmentID] = id
	f[FieldSequence] = seq
	f[FieldAmountCents] = amountCents
	f[FieldDueDate] = due
	return f
}

// WithEvent adds event identification fields
func (f LogFields) WithEvent(id, eventType string) LogFields {
	f[FieldEventID] = id
	f[FieldEventType] = eventType
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
