package services

import (
	"context"
	"time"

	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/pkg/money"
)

// DashboardSummary is the backoffice landing page data.
type DashboardSummary struct {
	Clients            int                       `json:"clients"`
	BudgetsByStatus    []persistence.StatusCount `json:"budgets_by_status"`
	ProjectsByStatus   []persistence.StatusCount `json:"projects_by_status"`
	RevenueThisMonth   int64                     `json:"revenue_this_month"`
	RevenueFormatted   string                    `json:"revenue_formatted"`
	PendingReceivables int64                     `json:"pending_receivables"`
	NextBusinessDay    string                    `json:"next_business_day"`
}

// DashboardService aggregates figures across the business.
type DashboardService struct {
	repo DashboardStore
	days businessDay
}

func NewDashboardService(repo DashboardStore, days businessDay) *DashboardService {
	return &DashboardService{repo: repo, days: days}
}

// Summary computes the dashboard. Revenue covers payments settled since the
// first day of the current month.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	today := s.days.today()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	var (
		out = &DashboardSummary{}
		err error
	)
	if out.Clients, err = s.repo.CountClients(ctx); err != nil {
		return nil, err
	}
	if out.BudgetsByStatus, err = s.repo.BudgetsByStatus(ctx); err != nil {
		return nil, err
	}
	if out.ProjectsByStatus, err = s.repo.ProjectsByStatus(ctx); err != nil {
		return nil, err
	}
	if out.RevenueThisMonth, err = s.repo.RevenueBetween(ctx, monthStart, today.AddDate(0, 0, 1)); err != nil {
		return nil, err
	}
	if out.PendingReceivables, err = s.repo.PendingReceivables(ctx); err != nil {
		return nil, err
	}
	out.RevenueFormatted = money.FormatBRL(out.RevenueThisMonth)
	out.NextBusinessDay = s.days.cal.NextBusinessDay(today).Format(dateLayout)
	return out, nil
}
