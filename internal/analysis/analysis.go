// Package analysis derives filtered views and aggregate reports from the
// current snapshot of accounts and transactions. Everything here is pure:
// no store access, no side effects, recomputed on every call. The dataset is
// bounded to one user's history, so full recomputation stays cheap.
package analysis

import (
	"sort"
	"time"

	"github.com/garanaibrahim7/expense-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// Summarize computes the report for one snapshot under the given filter.
// "now" anchors the weekly/monthly/yearly windows and is injected for
// testability.
func Summarize(accounts []domain.Account, transactions []domain.Transaction, filter domain.AnalysisFilter, now time.Time) domain.Report {
	start, end := window(filter, now)
	filtered := Filter(transactions, start, end, filter.AccountIDs)

	report := domain.Report{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, t := range filtered {
		if t.Type == domain.TypeIn {
			report.TotalIncome = report.TotalIncome.Add(t.Amount)
		} else {
			report.TotalExpense = report.TotalExpense.Add(t.Amount)
		}
	}
	report.Balance = report.TotalIncome.Sub(report.TotalExpense)

	report.ByAccount = byAccount(accounts, filtered)
	report.ByDate = byDate(filtered)
	return report
}

// Filter narrows transactions to the window and allowlist. Zero bounds are
// open; an empty allowlist admits every account.
func Filter(transactions []domain.Transaction, start, end int64, accountIDs []string) []domain.Transaction {
	allowed := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		allowed[id] = true
	}

	var out []domain.Transaction
	for _, t := range transactions {
		if start != 0 && t.Date < start {
			continue
		}
		if end != 0 && t.Date > end {
			continue
		}
		if len(allowed) > 0 && !allowed[t.AccountID] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// window resolves the filter's duration to epoch-ms bounds. Weekly is the ISO
// week (Monday through Sunday) containing now; monthly and yearly are the
// calendar month and year. Custom passes the explicit bounds through.
func window(filter domain.AnalysisFilter, now time.Time) (int64, int64) {
	switch filter.DurationType {
	case domain.DurationWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 { // Sunday closes the ISO week
			weekday = 7
		}
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, -(weekday - 1))
		end := start.AddDate(0, 0, 7)
		return start.UnixMilli(), end.UnixMilli() - 1
	case domain.DurationMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, 0)
		return start.UnixMilli(), end.UnixMilli() - 1
	case domain.DurationYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(1, 0, 0)
		return start.UnixMilli(), end.UnixMilli() - 1
	default:
		return filter.StartDate, filter.EndDate
	}
}

// byAccount builds the per-account breakdown. Every account appears, zero
// filled when none of its transactions fall in the window.
func byAccount(accounts []domain.Account, filtered []domain.Transaction) []domain.AccountBreakdown {
	breakdowns := make([]domain.AccountBreakdown, 0, len(accounts))
	index := make(map[string]int, len(accounts))

	for i, a := range accounts {
		index[a.ID] = i
		breakdowns = append(breakdowns, domain.AccountBreakdown{
			AccountID:   a.ID,
			AccountName: a.Name,
			Color:       a.Color,
			Income:      decimal.Zero,
			Expense:     decimal.Zero,
			Balance:     decimal.Zero,
		})
	}

	for _, t := range filtered {
		i, ok := index[t.AccountID]
		if !ok {
			continue
		}
		if t.Type == domain.TypeIn {
			breakdowns[i].Income = breakdowns[i].Income.Add(t.Amount)
		} else {
			breakdowns[i].Expense = breakdowns[i].Expense.Add(t.Amount)
		}
	}
	for i := range breakdowns {
		breakdowns[i].Balance = breakdowns[i].Income.Sub(breakdowns[i].Expense)
	}
	return breakdowns
}

// byDate aggregates per local calendar day of the transaction date, sorted
// ascending by the YYYY-MM-DD string.
func byDate(filtered []domain.Transaction) []domain.DailyTotal {
	totals := make(map[string]*domain.DailyTotal)
	for _, t := range filtered {
		day := time.UnixMilli(t.Date).Format("2006-01-02")
		entry, ok := totals[day]
		if !ok {
			entry = &domain.DailyTotal{Date: day, Income: decimal.Zero, Expense: decimal.Zero}
			totals[day] = entry
		}
		if t.Type == domain.TypeIn {
			entry.Income = entry.Income.Add(t.Amount)
		} else {
			entry.Expense = entry.Expense.Add(t.Amount)
		}
	}

	out := make([]domain.DailyTotal, 0, len(totals))
	for _, entry := range totals {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
