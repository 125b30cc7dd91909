// Package usage reports embedding token consumption against the
// configured budget.
package usage

import (
	"context"
	"time"
)

// Period selects the reporting window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// Report is a point-in-time budget usage snapshot.
type Report struct {
	Period          Period     `json:"period"`
	TokensUsed      int64      `json:"tokens_used"`
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	PeriodStartAt   *time.Time `json:"period_start_at,omitempty"`
	PeriodEndAt     *time.Time `json:"period_end_at,omitempty"`
}

// Service handles usage reporting.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period Period) Report {
	now := time.Now().UTC()
	report := Report{Period: period}

	switch period {
	case PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24 * time.Hour)
		report.PeriodStartAt = &dayStart
		report.PeriodEndAt = &dayEnd
		if s.br != nil {
			report.TokensLimit = s.br.DailyLimit()
			report.TokensUsed = s.br.DailyUsed()
			report.TokensRemaining = s.br.RemainingDaily()
		}
	case PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, 0)
		report.PeriodStartAt = &monthStart
		report.PeriodEndAt = &monthEnd
		if s.br != nil {
			report.TokensLimit = s.br.MonthlyLimit()
			report.TokensUsed = s.br.MonthlyUsed()
			report.TokensRemaining = s.br.RemainingMonthly()
		}
	default:
		// total: no period boundaries, monthly counters are the widest we keep
		if s.br != nil {
			report.TokensLimit = s.br.MonthlyLimit()
			report.TokensUsed = s.br.MonthlyUsed()
			report.TokensRemaining = s.br.RemainingMonthly()
		}
	}

	report.IsExhausted = report.TokensLimit > 0 && report.TokensRemaining <= 0
	return report
}
