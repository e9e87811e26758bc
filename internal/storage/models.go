package storage

import "database/sql"

type CreditCard struct {
	ID         int64
	Name       string
	ClosingDay int64
	DueDay     int64
}

type InstallmentPlan struct {
	ID               int64
	Description      string
	CardID           sql.NullInt64
	TotalCents       int64
	InstallmentCount int64
	RemainingCount   int64
	StartDate        string
}

type Installment struct {
	ID             int64
	PlanID         int64
	SequenceNumber int64
	AmountCents    int64
	DueDate        string
	Paid           int64
}
