package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/workflow"
)

// StatusCount is one row of a GROUP BY status aggregate.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// DashboardRepository runs the aggregate queries behind the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

func (r *DashboardRepository) countByStatus(ctx context.Context, table string) ([]StatusCount, error) {
	rows := []StatusCount{}
	query := fmt.Sprintf("SELECT status, COUNT(*) AS count FROM %s GROUP BY status ORDER BY status", table)
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count %s by status: %w", table, err)
	}
	return rows, nil
}

func (r *DashboardRepository) BudgetsByStatus(ctx context.Context) ([]StatusCount, error) {
	return r.countByStatus(ctx, TableBudget)
}

func (r *DashboardRepository) ProjectsByStatus(ctx context.Context) ([]StatusCount, error) {
	return r.countByStatus(ctx, TableProject)
}

// RevenueBetween sums paid payments settled in [from, to).
func (r *DashboardRepository) RevenueBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	query := fmt.Sprintf("SELECT COALESCE(SUM(amount), 0) FROM %s WHERE status = ? AND paid_at >= ? AND paid_at < ?", TablePayment)
	if err := sqlx.GetContext(ctx, r.db, &total, query, workflow.PaymentPaid, from, to); err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}

// PendingReceivables sums payments still awaiting settlement.
func (r *DashboardRepository) PendingReceivables(ctx context.Context) (int64, error) {
	var total int64
	query := fmt.Sprintf("SELECT COALESCE(SUM(amount), 0) FROM %s WHERE status = ?", TablePayment)
	if err := sqlx.GetContext(ctx, r.db, &total, query, workflow.PaymentPending); err != nil {
		return 0, fmt.Errorf("failed to sum receivables: %w", err)
	}
	return total, nil
}

// CountClients returns the number of registered clients.
func (r *DashboardRepository) CountClients(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", TableClient)); err != nil {
		return 0, err
	}
	return n, nil
}
