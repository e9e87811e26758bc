package core

// PlanDue is the amount a single plan has due in a month.
type PlanDue struct {
	PlanID      int64
	Description string
	Amount      Money
	Paid        bool
}

// MonthOverview is a compact summary of installments due in a year+month.
type MonthOverview struct {
	Year   int
	Month  int // 1-12
	Total  Money
	Paid   Money
	Open   Money
	ByPlan []PlanDue
}
