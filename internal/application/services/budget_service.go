package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devstudio/backoffice/internal/domain/events"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/internal/metrics"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/money"
	"github.com/devstudio/backoffice/pkg/pricing"
	"github.com/devstudio/backoffice/pkg/utils"
)

// CheckoutProvider returns a hosted payment link for a pending payment,
// creating it on first use.
type CheckoutProvider interface {
	EnsureCheckout(ctx context.Context, paymentID string) (string, error)
}

// CreateBudgetRequest is the payload for a new budget.
type CreateBudgetRequest struct {
	ClientID    string  `json:"client_id" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	pricing.EstimateInput
}

// PublicPayment is the client-facing view of an installment.
type PublicPayment struct {
	Type        workflow.PaymentType   `json:"type"`
	Amount      int64                  `json:"amount"`
	Status      workflow.PaymentStatus `json:"status"`
	CheckoutURL string                 `json:"checkout_url,omitempty"`
}

// PublicBudget is what a client sees through the public token link.
type PublicBudget struct {
	Title             string                `json:"title"`
	Description       *string               `json:"description,omitempty"`
	ClientName        string                `json:"client_name"`
	Status            workflow.BudgetStatus `json:"status"`
	ProjectType       string                `json:"project_type"`
	Features          []string              `json:"features"`
	Integrations      []string              `json:"integrations"`
	Pages             int                   `json:"pages"`
	Breakdown         models.Breakdown      `json:"breakdown"`
	Total             int64                 `json:"total"`
	TotalFormatted    string                `json:"total_formatted"`
	DownPayment       int64                 `json:"down_payment"`
	FinalPayment      int64                 `json:"final_payment"`
	BusinessDays      int                   `json:"business_days"`
	EstimatedDelivery string                `json:"estimated_delivery"`
	ValidUntil        string                `json:"valid_until"`
	Payments          []PublicPayment       `json:"payments"`
}

// budgetTransitions applies budget lifecycle actions. Every applied action
// is logged and announced as budget.status_changed. Callers run it inside a
// transaction with the budget row locked.
type budgetTransitions struct {
	repo   BudgetStore
	logs   *ActivityLogService
	outbox EventEnqueuer
}

func (t budgetTransitions) apply(ctx context.Context, b *models.Budget, action workflow.BudgetAction, actorID, note string) error {
	from := b.Status
	to, err := workflow.Budgets.Transition(from, action)
	if err != nil {
		return err
	}
	if err := t.repo.UpdateStatus(ctx, b.ID, from, to); err != nil {
		return err
	}
	b.Status = to

	msg := fmt.Sprintf("Status alterado de %s para %s", from, to)
	if note != "" {
		msg += ": " + note
	}
	if err := t.logs.Record(ctx, EntityBudget, b.ID, string(action), msg, actorID, models.JSONMap{"from": from, "to": to}); err != nil {
		return err
	}
	if err := t.outbox.Enqueue(ctx, events.BudgetStatusChanged, events.Payload{
		BudgetID: b.ID,
		ClientID: b.ClientID,
		From:     string(from),
		To:       string(to),
		ActorID:  actorID,
		Note:     note,
	}); err != nil {
		return err
	}
	metrics.RecordBudgetTransition(string(to))
	return nil
}

// BudgetService prices, stores and moves budgets through their lifecycle.
type BudgetService struct {
	repo         BudgetStore
	clients      ClientStore
	payments     PaymentStore
	tx           Transactor
	outbox       EventEnqueuer
	logs         *ActivityLogService
	estimator    *pricing.Estimator
	checkout     CheckoutProvider
	days         businessDay
	validityDays int
	transitions  budgetTransitions
}

// BudgetServiceConfig carries the collaborators of a BudgetService.
type BudgetServiceConfig struct {
	Budgets      BudgetStore
	Clients      ClientStore
	Payments     PaymentStore
	Tx           Transactor
	Outbox       EventEnqueuer
	Logs         *ActivityLogService
	Estimator    *pricing.Estimator
	Checkout     CheckoutProvider
	Clock        Clock
	Location     *time.Location
	ValidityDays int
}

func NewBudgetService(cfg BudgetServiceConfig) *BudgetService {
	if cfg.ValidityDays <= 0 {
		cfg.ValidityDays = 15
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &BudgetService{
		repo:         cfg.Budgets,
		clients:      cfg.Clients,
		payments:     cfg.Payments,
		tx:           cfg.Tx,
		outbox:       cfg.Outbox,
		logs:         cfg.Logs,
		estimator:    cfg.Estimator,
		checkout:     cfg.Checkout,
		days:         businessDay{cal: cfg.Estimator.Calendar(), loc: cfg.Location, now: cfg.Clock},
		validityDays: cfg.ValidityDays,
		transitions:  budgetTransitions{repo: cfg.Budgets, logs: cfg.Logs, outbox: cfg.Outbox},
	}
}

// Estimate prices the input without storing anything.
func (s *BudgetService) Estimate(in pricing.EstimateInput) (*pricing.Estimate, error) {
	if in.StartDate == nil {
		in.StartDate = timePtr(s.days.today())
	}
	return s.estimator.Estimate(in)
}

// Create prices the request and stores it as a pending budget.
func (s *BudgetService) Create(ctx context.Context, req CreateBudgetRequest, actorID string) (*models.Budget, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.NewValidationError("title", "title is required")
	}
	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	est, err := s.Estimate(req.EstimateInput)
	if err != nil {
		return nil, err
	}

	b := &models.Budget{
		ID:          utils.GenerateID(),
		ClientID:    client.ID,
		Title:       title,
		Description: req.Description,
		Status:      workflow.BudgetPending,
		PublicToken: utils.GeneratePublicToken(),
		CreatedBy:   models.StringPtr(actorID),
		ValidUntil:  s.days.cal.AddBusinessDays(s.days.today(), s.validityDays),
	}
	b.ApplyEstimate(est, s.estimator.DownPaymentPercent())

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		msg := fmt.Sprintf("Orçamento criado: %s (%s)", b.Title, money.FormatBRL(b.Total))
		if err := s.logs.Record(ctx, EntityBudget, b.ID, "created", msg, actorID, nil); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, events.BudgetCreated, events.Payload{
			BudgetID: b.ID, ClientID: b.ClientID, Amount: b.Total, ActorID: actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordBudgetTransition(string(workflow.BudgetPending))
	logging.FromContext(ctx).Infof("✅ Budget %s created for client %s (%s)", b.ID, b.ClientID, money.FormatBRL(b.Total))
	return b, nil
}

func (s *BudgetService) Get(ctx context.Context, id string) (*models.Budget, error) {
	return s.repo.Get(ctx, id)
}

func (s *BudgetService) List(ctx context.Context, f persistence.BudgetFilter) ([]models.Budget, error) {
	return s.repo.List(ctx, f)
}

// PublicView resolves a client token into the budget summary and its
// payment links.
func (s *BudgetService) PublicView(ctx context.Context, token string) (*PublicBudget, error) {
	if !utils.IsValidUUID(token) {
		return nil, errors.NewNotFoundError("budget", token)
	}
	b, err := s.repo.GetByPublicToken(ctx, token)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.Get(ctx, b.ClientID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByBudget(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	view := &PublicBudget{
		Title:             b.Title,
		Description:       b.Description,
		ClientName:        client.Name,
		Status:            b.Status,
		ProjectType:       b.ProjectType,
		Features:          b.Features,
		Integrations:      b.Integrations,
		Pages:             b.Pages,
		Breakdown:         b.Breakdown,
		Total:             b.Total,
		TotalFormatted:    money.FormatBRL(b.Total),
		DownPayment:       b.DownPaymentAmount,
		FinalPayment:      b.FinalPaymentAmount,
		BusinessDays:      b.BusinessDays,
		EstimatedDelivery: b.EstimatedDelivery.Format(dateLayout),
		ValidUntil:        b.ValidUntil.Format(dateLayout),
		Payments:          make([]PublicPayment, 0, len(payments)),
	}
	for _, p := range payments {
		pp := PublicPayment{Type: p.Type, Amount: p.Amount, Status: p.Status}
		if p.Status == workflow.PaymentPending {
			pp.CheckoutURL = models.Deref(p.CheckoutURL)
		}
		view.Payments = append(view.Payments, pp)
	}
	return view, nil
}

// Recalculate reprices a pending budget. A nil input reuses the stored
// parameters with today's start date.
func (s *BudgetService) Recalculate(ctx context.Context, id string, in *pricing.EstimateInput, actorID string) (*models.Budget, error) {
	var b *models.Budget
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != workflow.BudgetPending {
			return errors.NewInvalidTransitionError("budget", string(b.Status), "recalculate")
		}
		input := b.EstimateInput()
		if in != nil {
			input = *in
		}
		est, err := s.Estimate(input)
		if err != nil {
			return err
		}
		previous := b.Total
		b.ApplyEstimate(est, s.estimator.DownPaymentPercent())
		b.ValidUntil = s.days.cal.AddBusinessDays(s.days.today(), s.validityDays)
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		msg := fmt.Sprintf("Valores recalculados: %s → %s", money.FormatBRL(previous), money.FormatBRL(b.Total))
		return s.logs.Record(ctx, EntityBudget, b.ID, "recalculated", msg, actorID, nil)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Send creates the installments, opens the down payment checkout and moves
// the budget to sent. The client email goes out through budget.sent.
func (s *BudgetService) Send(ctx context.Context, id, actorID string) (*models.Budget, error) {
	var first *models.Payment
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !workflow.Budgets.CanTransition(b.Status, workflow.BudgetSend) {
			return errors.NewInvalidTransitionError("budget", string(b.Status), string(workflow.BudgetSend))
		}
		client, err := s.clients.Get(ctx, b.ClientID)
		if err != nil {
			return err
		}
		first, err = s.ensureInstallments(ctx, b, client)
		return err
	})
	if err != nil {
		return nil, err
	}

	var url string
	if s.checkout != nil {
		url, err = s.checkout.EnsureCheckout(ctx, first.ID)
		if err != nil {
			return nil, err
		}
	}

	var b *models.Budget
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		b, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.transitions.apply(ctx, b, workflow.BudgetSend, actorID, ""); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, events.BudgetSent, events.Payload{
			BudgetID:  b.ID,
			ClientID:  b.ClientID,
			PaymentID: first.ID,
			Amount:    first.Amount,
			URL:       url,
			ActorID:   actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Infof("📨 Budget %s sent to client %s", b.ID, b.ClientID)
	return b, nil
}

type installment struct {
	typ    workflow.PaymentType
	amount int64
}

// ensureInstallments creates the budget's payments when missing and
// returns the one due first. A 100% down payment yields a single full
// payment.
func (s *BudgetService) ensureInstallments(ctx context.Context, b *models.Budget, client *models.Client) (*models.Payment, error) {
	plan := []installment{
		{workflow.PaymentDownPayment, b.DownPaymentAmount},
		{workflow.PaymentFinalPayment, b.FinalPaymentAmount},
	}
	if b.FinalPaymentAmount == 0 {
		plan = []installment{{workflow.PaymentFull, b.Total}}
	}

	var first *models.Payment
	for _, step := range plan {
		p, err := s.payments.FindByBudgetAndType(ctx, b.ID, step.typ)
		if err != nil && !errors.IsNotFound(err) {
			return nil, err
		}
		if p == nil {
			p = &models.Payment{
				ID:            utils.GenerateID(),
				BudgetID:      b.ID,
				ClientID:      b.ClientID,
				ProjectID:     b.ProjectID,
				Type:          step.typ,
				Amount:        step.amount,
				Currency:      money.Currency,
				Status:        workflow.PaymentPending,
				CustomerEmail: client.Email,
			}
			if err := s.payments.Create(ctx, p); err != nil {
				return nil, err
			}
		}
		if first == nil {
			first = p
		}
	}
	return first, nil
}

// Accept records the client's acceptance of a sent budget.
func (s *BudgetService) Accept(ctx context.Context, id, actorID string) (*models.Budget, error) {
	return s.apply(ctx, id, workflow.BudgetAccept, actorID, "")
}

// Reject records the client's refusal. reason is kept in the activity log.
func (s *BudgetService) Reject(ctx context.Context, id, actorID, reason string) (*models.Budget, error) {
	return s.close(ctx, id, workflow.BudgetReject, actorID, reason)
}

// Cancel withdraws a budget that has not been paid yet.
func (s *BudgetService) Cancel(ctx context.Context, id, actorID, reason string) (*models.Budget, error) {
	return s.close(ctx, id, workflow.BudgetCancel, actorID, reason)
}

// close moves a budget to a dead end and cancels its open installments so
// their checkout links stop being offered.
func (s *BudgetService) close(ctx context.Context, id string, action workflow.BudgetAction, actorID, note string) (*models.Budget, error) {
	var b *models.Budget
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.transitions.apply(ctx, b, action, actorID, note); err != nil {
			return err
		}
		payments, err := s.payments.ListByBudget(ctx, b.ID)
		if err != nil {
			return err
		}
		for i := range payments {
			p := &payments[i]
			next, err := workflow.Payments.Transition(p.Status, workflow.PaymentCancel)
			if err != nil {
				continue
			}
			p.Status = next
			p.CheckoutURL = nil
			if err := s.payments.Save(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BudgetService) apply(ctx context.Context, id string, action workflow.BudgetAction, actorID, note string) (*models.Budget, error) {
	var b *models.Budget
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return s.transitions.apply(ctx, b, action, actorID, note)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ExpireOverdue moves every sent budget whose validity ended before day to
// expired. It returns how many were expired.
func (s *BudgetService) ExpireOverdue(ctx context.Context, day time.Time) (int, error) {
	due, err := s.repo.ListExpirable(ctx, day)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, candidate := range due {
		_, err := s.close(ctx, candidate.ID, workflow.BudgetExpire, "", "validade encerrada")
		if err != nil {
			if errors.IsConflict(err) || errors.IsInvalidTransition(err) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}
