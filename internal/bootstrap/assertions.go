package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
)

// AssertionViolation represents a single consistency problem found in stored data
type AssertionViolation struct {
	Category    string // e.g. "Tables", "DownPayment"
	Severity    string // "error" or "warning"
	Object      string
	Description string
}

// AssertionResult contains all violations found during assertion checks
type AssertionResult struct {
	Violations []AssertionViolation
	Passed     bool
}

func (r *AssertionResult) add(category, severity, object, format string, args ...interface{}) {
	r.Violations = append(r.Violations, AssertionViolation{
		Category:    category,
		Severity:    severity,
		Object:      object,
		Description: fmt.Sprintf(format, args...),
	})
}

// errors counts violations of severity "error".
func (r *AssertionResult) errors() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == "error" {
			n++
		}
	}
	return n
}

var criticalTables = []string{
	persistence.TableUser,
	persistence.TableClient,
	persistence.TableBudget,
	persistence.TablePayment,
	persistence.TableProject,
	persistence.TableWebhookEvent,
	persistence.TableOutboxEvent,
	persistence.TableSchedulerLock,
}

// RunAssertions checks stored data against the workflow rules. Warnings
// are only logged. In strict mode any error fails startup.
func RunAssertions(ctx context.Context, db *sqlx.DB, strictMode bool) (*AssertionResult, error) {
	log.Println("🔍 Running startup assertions...")
	result := &AssertionResult{Passed: true}

	assertCriticalTablesExist(ctx, db, result)
	if result.errors() == 0 {
		assertPaidBudgetsHaveDownPayment(ctx, db, result)
		assertInstallmentsMatchTotal(ctx, db, result)
		assertActiveAdminExists(ctx, db, result)
	}

	if len(result.Violations) == 0 {
		log.Println("✅ All assertions passed")
		return result, nil
	}

	result.Passed = false
	log.Printf("⚠️  Found %d assertion violation(s):", len(result.Violations))
	for i, v := range result.Violations {
		log.Printf("   %d. [%s] %s: %s", i+1, v.Severity, v.Category, v.Description)
	}

	if strictMode && result.errors() > 0 {
		return result, fmt.Errorf("assertion failures in strict mode: %d error(s)", result.errors())
	}
	return result, nil
}

func assertCriticalTablesExist(ctx context.Context, db *sqlx.DB, result *AssertionResult) {
	for _, table := range criticalTables {
		rows, err := db.QueryContext(ctx, "SELECT 1 FROM `"+table+"` LIMIT 1")
		if err != nil {
			result.add("Tables", "error", table, "table %s is not readable: %v", table, err)
			continue
		}
		_ = rows.Close()
	}
}

// Budgets past the down payment step must have a paid down payment or a
// paid single installment.
func assertPaidBudgetsHaveDownPayment(ctx context.Context, db *sqlx.DB, result *AssertionResult) {
	query, args, err := sqlx.In(`
		SELECT b.id FROM budgets b
		WHERE b.status IN (?)
		AND NOT EXISTS (
			SELECT 1 FROM payments p
			WHERE p.budget_id = b.id AND p.type IN (?) AND p.status = ?
		)`,
		[]string{
			string(workflow.BudgetDownPaymentPaid),
			string(workflow.BudgetProjectInProgress),
			string(workflow.BudgetCompleted),
			string(workflow.BudgetFinished),
		},
		[]string{string(workflow.PaymentDownPayment), string(workflow.PaymentFull)},
		string(workflow.PaymentPaid),
	)
	if err != nil {
		log.Printf("   ⚠️  Could not build down payment check: %v", err)
		return
	}

	var ids []string
	if err := db.SelectContext(ctx, &ids, db.Rebind(query), args...); err != nil {
		log.Printf("   ⚠️  Could not query budgets: %v", err)
		return
	}
	for _, id := range ids {
		result.add("DownPayment", "error", id, "budget %s is past the down payment step without a paid installment", id)
	}
}

// The installments of a budget must add up to its total.
func assertInstallmentsMatchTotal(ctx context.Context, db *sqlx.DB, result *AssertionResult) {
	var rows []struct {
		ID    string `db:"id"`
		Total int64  `db:"total"`
		Sum   int64  `db:"installments"`
	}
	err := db.SelectContext(ctx, &rows, `
		SELECT b.id, b.total, COALESCE(SUM(p.amount), 0) AS installments
		FROM budgets b JOIN payments p ON p.budget_id = b.id
		WHERE p.status <> ?
		GROUP BY b.id, b.total
		HAVING installments <> b.total`, string(workflow.PaymentCancelled))
	if err != nil {
		log.Printf("   ⚠️  Could not query installments: %v", err)
		return
	}
	for _, r := range rows {
		result.add("Installments", "warning", r.ID, "budget %s totals %d but installments sum to %d", r.ID, r.Total, r.Sum)
	}
}

func assertActiveAdminExists(ctx context.Context, db *sqlx.DB, result *AssertionResult) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active = TRUE"); err != nil {
		log.Printf("   ⚠️  Could not count admins: %v", err)
		return
	}
	if count == 0 {
		result.add("Users", "warning", persistence.TableUser, "no active admin, run backofficectl create-admin")
	}
}
