package domain

import "github.com/shopspring/decimal"

// DurationType selects the canonical date window for an analysis filter.
type DurationType string

const (
	DurationWeekly  DurationType = "weekly"
	DurationMonthly DurationType = "monthly"
	DurationYearly  DurationType = "yearly"
	DurationCustom  DurationType = "custom"
)

// AnalysisFilter narrows the transaction set for a report. Weekly, monthly and
// yearly resolve to the ISO week / calendar month / calendar year containing
// "now"; custom uses the explicit bounds. AccountIDs, when non-empty, is an
// allowlist.
type AnalysisFilter struct {
	DurationType DurationType
	StartDate    int64 // epoch ms, custom only
	EndDate      int64 // epoch ms, custom only
	AccountIDs   []string
}

// AccountBreakdown is the per-account slice of a report. Every account appears
// exactly once, zero-filled when it has no transactions in the window.
type AccountBreakdown struct {
	AccountID   string
	AccountName string
	Color       string
	Income      decimal.Decimal
	Expense     decimal.Decimal
	Balance     decimal.Decimal
}

// DailyTotal aggregates income and expense for one local calendar day
// (YYYY-MM-DD of the transaction date).
type DailyTotal struct {
	Date    string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Report is the output of the analysis layer over one filtered snapshot.
type Report struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal // TotalIncome - TotalExpense
	ByAccount    []AccountBreakdown
	ByDate       []DailyTotal // ascending by date string
}
