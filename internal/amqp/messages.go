package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"parcelas/internal/core"

	"github.com/google/uuid"
)

type EventType string

const (
	EventPlanCreated         EventType = "plan.created"
	EventPlanUpdated         EventType = "plan.updated"
	EventPlanDeleted         EventType = "plan.deleted"
	EventInstallmentPaid     EventType = "installment.paid"
	EventInstallmentUnpaid   EventType = "installment.unpaid"
	EventInstallmentReminder EventType = "installment.reminder"
)

// Event is a lightweight notification about a plan or one of its
// installments. Consumers reload the full plan from the database.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	PlanID         int64     `json:"plan_id"`
	InstallmentID  int64     `json:"installment_id,omitempty"`
	SequenceNumber int       `json:"sequence_number,omitempty"`
	AmountCents    int64     `json:"amount_cents,omitempty"`
	DueDate        string    `json:"due_date,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewEvent creates a plan-level event with a fresh message id.
func NewEvent(t EventType, planID int64) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		PlanID:    planID,
		Timestamp: time.Now(),
	}
}

// NewInstallmentEvent creates an event carrying one installment's details.
func NewInstallmentEvent(t EventType, inst core.Installment) Event {
	e := NewEvent(t, inst.PlanID)
	e.InstallmentID = inst.ID
	e.SequenceNumber = inst.SequenceNumber
	e.AmountCents = inst.Amount.Cents
	e.DueDate = inst.DueDate.String()
	return e
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects bodies without a type.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event %q has no type", e.ID)
	}
	return e, nil
}
