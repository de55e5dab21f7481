package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/database"
	"github.com/devstudio/backoffice/pkg/errors"
)

const paymentColumns = `id, budget_id, client_id, project_id, type, amount, currency, status, method,
	customer_email, stripe_session_id, stripe_payment_intent_id, checkout_url, paid_at, created_at, updated_at`

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	Status   string
	BudgetID string
	ClientID string
	Limit    int
	Offset   int
}

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :budget_id, :client_id, :project_id, :type, :amount,
		:currency, :status, :method, :customer_email, :stripe_session_id, :stripe_payment_intent_id,
		:checkout_url, :paid_at, :created_at, :updated_at)`, TablePayment, paymentColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, p); err != nil {
		if database.IsDuplicateKey(err) {
			return errors.NewConflictError("payment", "type", string(p.Type))
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*models.Payment, error) {
	return r.getBy(ctx, "id = ?", []interface{}{id}, id, false)
}

// GetForUpdate loads the payment with a row lock. Must run inside a transaction.
func (r *PaymentRepository) GetForUpdate(ctx context.Context, id string) (*models.Payment, error) {
	return r.getBy(ctx, "id = ?", []interface{}{id}, id, true)
}

// FindByIntentID matches a payment by its Stripe payment intent.
func (r *PaymentRepository) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	return r.getBy(ctx, "stripe_payment_intent_id = ?", []interface{}{intentID}, intentID, true)
}

// FindBySessionID matches a payment by its Stripe checkout session.
func (r *PaymentRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	return r.getBy(ctx, "stripe_session_id = ?", []interface{}{sessionID}, sessionID, true)
}

// FindByBudgetAndType returns the payment of a given type for a budget in any status.
func (r *PaymentRepository) FindByBudgetAndType(ctx context.Context, budgetID string, typ workflow.PaymentType) (*models.Payment, error) {
	return r.getBy(ctx, "budget_id = ? AND type = ?", []interface{}{budgetID, typ}, budgetID+"/"+string(typ), false)
}

// FindPendingByBudgetAndType matches the pending payment of a given type for a budget.
func (r *PaymentRepository) FindPendingByBudgetAndType(ctx context.Context, budgetID string, typ workflow.PaymentType) (*models.Payment, error) {
	return r.getBy(ctx, "budget_id = ? AND type = ? AND status = ?",
		[]interface{}{budgetID, typ, workflow.PaymentPending}, budgetID+"/"+string(typ), true)
}

func (r *PaymentRepository) getBy(ctx context.Context, cond string, args []interface{}, ref string, lock bool) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", paymentColumns, TablePayment, cond)
	if lock && ExtractTx(ctx) != nil {
		query += " FOR UPDATE"
	}
	var p models.Payment
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &p, query, args...); err != nil {
		return nil, notFound(err, "payment", ref)
	}
	return &p, nil
}

// FindPendingByAmountAndEmail lists pending payments with the given amount
// whose customer email matches, case-insensitively.
func (r *PaymentRepository) FindPendingByAmountAndEmail(ctx context.Context, amount int64, email string) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status = ? AND amount = ? AND LOWER(customer_email) = ? ORDER BY created_at ASC",
		paymentColumns, TablePayment)
	payments := []models.Payment{}
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &payments, query,
		workflow.PaymentPending, amount, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to match payments by amount: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) ListByBudget(ctx context.Context, budgetID string) ([]models.Payment, error) {
	return r.List(ctx, PaymentFilter{BudgetID: budgetID})
}

func (r *PaymentRepository) List(ctx context.Context, f PaymentFilter) ([]models.Payment, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.BudgetID != "" {
		where = append(where, "budget_id = ?")
		args = append(args, f.BudgetID)
	}
	if f.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", paymentColumns, TablePayment)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit), f.Offset)

	payments := []models.Payment{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &payments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// SetCheckout stores the Stripe checkout session created for a payment.
func (r *PaymentRepository) SetCheckout(ctx context.Context, id, sessionID, url string) error {
	query := fmt.Sprintf("UPDATE %s SET stripe_session_id = ?, checkout_url = ?, method = ?, updated_at = ? WHERE id = ?", TablePayment)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, sessionID, url, models.PaymentMethodStripe, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	return requireAffected(res, "payment", id)
}

// Save writes the status, settlement and processor fields of a payment.
func (r *PaymentRepository) Save(ctx context.Context, p *models.Payment) error {
	p.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET project_id = :project_id, status = :status, method = :method,
		stripe_session_id = :stripe_session_id, stripe_payment_intent_id = :stripe_payment_intent_id,
		checkout_url = :checkout_url, paid_at = :paid_at, updated_at = :updated_at WHERE id = :id`, TablePayment)
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, p)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return errors.NewConflictError("payment", "stripe reference", p.ID)
		}
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return requireAffected(res, "payment", p.ID)
}

// AttachProject links every payment of a budget to its project.
func (r *PaymentRepository) AttachProject(ctx context.Context, budgetID, projectID string) error {
	query := fmt.Sprintf("UPDATE %s SET project_id = ?, updated_at = ? WHERE budget_id = ?", TablePayment)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, projectID, time.Now().UTC(), budgetID)
	return err
}
