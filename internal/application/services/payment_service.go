package services

import (
	"context"
	"fmt"
	"time"

	"github.com/devstudio/backoffice/internal/domain/events"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/cache"
	"github.com/devstudio/backoffice/internal/infrastructure/payments"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/internal/metrics"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/money"
)

// WebhookResult is the outcome of handling one processor event.
type WebhookResult string

const (
	ResultProcessed      WebhookResult = "processed"
	ResultDuplicate      WebhookResult = "duplicate"
	ResultUnmatched      WebhookResult = "unmatched"
	ResultAlreadyApplied WebhookResult = "already_applied"
	ResultIgnored        WebhookResult = "ignored"
	// ResultNeedsReview means money arrived for an installment or budget
	// that can no longer take it. The payment is flagged for the team.
	ResultNeedsReview WebhookResult = "needs_review"
)

// Matching strategies, in the order they are tried.
const (
	MatchIntentID      = "payment_intent_id"
	MatchSessionID     = "checkout_session_id"
	MatchPaymentID     = "metadata_payment_id"
	MatchBudgetAndType = "metadata_budget_type"
	MatchAmountEmail   = "amount_email"
)

const webhookClaimTTL = 24 * time.Hour

// WebhookOutcome reports what HandleWebhook did.
type WebhookOutcome struct {
	EventID   string        `json:"event_id"`
	Type      string        `json:"type"`
	Result    WebhookResult `json:"result"`
	PaymentID string        `json:"payment_id,omitempty"`
	Strategy  string        `json:"strategy,omitempty"`
}

// PaymentService collects budget installments and turns processor events
// into workflow progress.
type PaymentService struct {
	repo      PaymentStore
	budgets   BudgetStore
	webhooks  WebhookEventStore
	gateway   payments.Gateway
	idem      cache.IdempotencyStore
	tx        Transactor
	outbox    EventEnqueuer
	logs      *ActivityLogService
	lifecycle *lifecycle
	days      businessDay
}

// PaymentServiceConfig carries the collaborators of a PaymentService.
// Gateway and Idempotency are optional.
type PaymentServiceConfig struct {
	Payments    PaymentStore
	Budgets     BudgetStore
	Projects    ProjectStore
	Events      EventStore
	Webhooks    WebhookEventStore
	Gateway     payments.Gateway
	Idempotency cache.IdempotencyStore
	Tx          Transactor
	Outbox      EventEnqueuer
	Logs        *ActivityLogService
	Days        businessDay
	LeadDays    int
}

func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	if cfg.Idempotency == nil {
		cfg.Idempotency = cache.NopStore{}
	}
	if cfg.LeadDays < 0 {
		cfg.LeadDays = 0
	}
	return &PaymentService{
		repo:     cfg.Payments,
		budgets:  cfg.Budgets,
		webhooks: cfg.Webhooks,
		gateway:  cfg.Gateway,
		idem:     cfg.Idempotency,
		tx:       cfg.Tx,
		outbox:   cfg.Outbox,
		logs:     cfg.Logs,
		days:     cfg.Days,
		lifecycle: &lifecycle{
			budgets:     cfg.Budgets,
			projects:    cfg.Projects,
			payments:    cfg.Payments,
			calendar:    cfg.Events,
			logs:        cfg.Logs,
			outbox:      cfg.Outbox,
			transitions: budgetTransitions{repo: cfg.Budgets, logs: cfg.Logs, outbox: cfg.Outbox},
			days:        cfg.Days,
			leadDays:    cfg.LeadDays,
		},
	}
}

func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *PaymentService) List(ctx context.Context, f persistence.PaymentFilter) ([]models.Payment, error) {
	return s.repo.List(ctx, f)
}

func (s *PaymentService) ListWebhookEvents(ctx context.Context, status string, limit int) ([]models.WebhookEvent, error) {
	return s.webhooks.List(ctx, status, limit)
}

// CreateCheckout opens a hosted checkout for a payment that can still be
// collected and stores its session. An existing open checkout is reused.
func (s *PaymentService) CreateCheckout(ctx context.Context, paymentID string) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, errors.NewExternalServiceError("stripe", fmt.Errorf("payment gateway is not configured"))
	}
	var p *models.Payment
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == workflow.PaymentFailed || p.Status == workflow.PaymentExpired {
			next, err := workflow.Payments.Transition(p.Status, workflow.PaymentRetry)
			if err != nil {
				return err
			}
			p.Status = next
			p.StripeSessionID, p.CheckoutURL = nil, nil
			return s.repo.Save(ctx, p)
		}
		if p.Status != workflow.PaymentPending {
			return errors.NewInvalidTransitionError("payment", string(p.Status), "checkout")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.CheckoutURL != nil && *p.CheckoutURL != "" {
		return p, nil
	}

	b, err := s.budgets.Get(ctx, p.BudgetID)
	if err != nil {
		return nil, err
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		PaymentID:     p.ID,
		BudgetID:      p.BudgetID,
		PaymentType:   string(p.Type),
		Description:   fmt.Sprintf("%s (%s)", b.Title, paymentTypeLabel(p.Type)),
		AmountCents:   p.Amount,
		CustomerEmail: p.CustomerEmail,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCheckout(ctx, p.ID, session.ID, session.URL); err != nil {
		return nil, err
	}
	method := models.PaymentMethodStripe
	p.StripeSessionID, p.CheckoutURL, p.Method = &session.ID, &session.URL, &method

	logging.FromContext(ctx).Infof("💳 Checkout %s opened for payment %s (%s)", session.ID, p.ID, money.FormatBRL(p.Amount))
	return p, nil
}

// EnsureCheckout returns the checkout link of a payment. Without a gateway
// it returns an empty link.
func (s *PaymentService) EnsureCheckout(ctx context.Context, paymentID string) (string, error) {
	if s.gateway == nil {
		return "", nil
	}
	p, err := s.CreateCheckout(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return models.Deref(p.CheckoutURL), nil
}

// RegisterManualPayment marks a payment paid outside the processor and runs
// the same workflow advance as a webhook.
func (s *PaymentService) RegisterManualPayment(ctx context.Context, paymentID, method, actorID string) (*models.Payment, error) {
	switch method {
	case "":
		method = models.PaymentMethodManual
	case models.PaymentMethodManual, models.PaymentMethodPix:
	default:
		return nil, errors.NewValidationError("method", fmt.Sprintf("invalid payment method %q", method))
	}

	var p *models.Payment
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == workflow.PaymentPaid {
			return errors.NewConflictError("payment", "status", string(p.Status))
		}
		if err := s.markPaid(ctx, p, nil, method, actorID); err != nil {
			return err
		}
		b, progress, err := s.advance(ctx, p, actorID)
		if err != nil {
			return err
		}
		if progress == budgetStranded {
			return errors.NewInvalidTransitionError("budget", string(b.Status), string(workflow.PaymentMarkPaid))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Infof("✅ Payment %s registered manually via %s", p.ID, method)
	return p, nil
}

// HandleWebhook applies a verified processor event at most once.
func (s *PaymentService) HandleWebhook(ctx context.Context, evt *payments.WebhookEvent) (*WebhookOutcome, error) {
	log := logging.FromContext(ctx).WithField("event_id", evt.ID).WithField("event_type", evt.Type)
	out := &WebhookOutcome{EventID: evt.ID, Type: evt.Type}

	key := cache.WebhookKey(evt.ID)
	claimed, err := s.idem.Claim(ctx, key, webhookClaimTTL)
	if err != nil {
		log.WithError(err).Warn("⚠️ Idempotency cache unavailable, falling back to database")
		claimed = true
	}
	if !claimed {
		return s.finish(out, ResultDuplicate), nil
	}

	fresh, err := s.record(ctx, evt)
	if err != nil {
		_ = s.idem.Release(ctx, key)
		return nil, err
	}
	if !fresh {
		log.Info("🔁 Duplicate webhook event ignored")
		return s.finish(out, ResultDuplicate), nil
	}

	target, handled := webhookTargets[evt.Type]
	if !handled {
		if err := s.webhooks.MarkProcessed(ctx, evt.ID, models.WebhookIgnored, nil); err != nil {
			log.WithError(err).Warn("⚠️ Failed to record ignored webhook event")
		}
		return s.finish(out, ResultIgnored), nil
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, strategy, err := s.match(ctx, evt)
		if err != nil {
			return err
		}
		if p == nil {
			out.Result = ResultUnmatched
			return nil
		}
		out.PaymentID, out.Strategy = p.ID, strategy
		metrics.RecordPaymentMatch(strategy)

		if p.Status == target.status {
			out.Result = ResultAlreadyApplied
			return nil
		}
		if !workflow.Payments.CanTransition(p.Status, target.action) {
			log.Warnf("⚠️ Payment %s is %s, cannot %s", p.ID, p.Status, target.action)
			if target.action == workflow.PaymentMarkPaid {
				out.Result = ResultNeedsReview
				return s.flagForReview(ctx, p, evt, fmt.Sprintf("payment is %s", p.Status))
			}
			out.Result = ResultIgnored
			return nil
		}
		result, err := s.apply(ctx, p, evt, target.action)
		out.Result = result
		return err
	})
	if err != nil {
		log.WithError(err).Error("❌ Webhook processing failed")
		if markErr := s.webhooks.MarkFailed(ctx, evt.ID, err); markErr != nil {
			log.WithError(markErr).Warn("⚠️ Failed to record webhook failure")
		}
		_ = s.idem.Release(ctx, key)
		metrics.RecordWebhook(evt.Type, string(models.WebhookFailed))
		return nil, err
	}

	status := string(out.Result)
	switch out.Result {
	case ResultUnmatched:
		status = models.WebhookUnmatched
		log.Warnf("⚠️ Webhook event matched no payment (amount %s, email %s)",
			money.FormatBRL(evt.AmountCents), logging.MaskEmail(evt.CustomerEmail))
		if err := s.outbox.Enqueue(ctx, events.PaymentUnmatched, events.Payload{
			Amount: evt.AmountCents,
			Note:   evt.ID,
		}); err != nil {
			log.WithError(err).Warn("⚠️ Failed to enqueue unmatched payment event")
		}
	case ResultAlreadyApplied:
		status = models.WebhookProcessed
	case ResultNeedsReview:
		status = models.WebhookNeedsReview
	}
	if err := s.webhooks.MarkProcessed(ctx, evt.ID, status, models.StringPtr(out.PaymentID)); err != nil {
		log.WithError(err).Warn("⚠️ Failed to record webhook outcome")
	}
	log.Infof("✅ Webhook handled: %s (payment %s via %s)", out.Result, out.PaymentID, out.Strategy)
	return s.finish(out, out.Result), nil
}

// ReplayEvent processes an event again, forgetting a failed earlier attempt.
func (s *PaymentService) ReplayEvent(ctx context.Context, evt *payments.WebhookEvent) (*WebhookOutcome, error) {
	if err := s.webhooks.Forget(ctx, evt.ID); err != nil {
		return nil, err
	}
	_ = s.idem.Release(ctx, cache.WebhookKey(evt.ID))
	return s.HandleWebhook(ctx, evt)
}

func (s *PaymentService) finish(out *WebhookOutcome, result WebhookResult) *WebhookOutcome {
	out.Result = result
	metrics.RecordWebhook(out.Type, string(result))
	return out
}

// record claims the event in the database. A previously failed attempt is
// forgotten so the processor's retry goes through.
func (s *PaymentService) record(ctx context.Context, evt *payments.WebhookEvent) (bool, error) {
	fresh, err := s.webhooks.TryRecord(ctx, evt.ID, evt.Type)
	if err != nil || fresh {
		return fresh, err
	}
	prev, err := s.webhooks.Get(ctx, evt.ID)
	if err != nil {
		return false, err
	}
	if prev.Status != models.WebhookFailed {
		return false, nil
	}
	if err := s.webhooks.Forget(ctx, evt.ID); err != nil {
		return false, err
	}
	return s.webhooks.TryRecord(ctx, evt.ID, evt.Type)
}

type webhookTarget struct {
	action workflow.PaymentAction
	status workflow.PaymentStatus
}

var webhookTargets = map[string]webhookTarget{
	payments.EventCheckoutCompleted:      {workflow.PaymentMarkPaid, workflow.PaymentPaid},
	payments.EventPaymentIntentSucceeded: {workflow.PaymentMarkPaid, workflow.PaymentPaid},
	payments.EventPaymentIntentFailed:    {workflow.PaymentMarkFailed, workflow.PaymentFailed},
	payments.EventCheckoutExpired:        {workflow.PaymentExpire, workflow.PaymentExpired},
	payments.EventChargeRefunded:         {workflow.PaymentRefund, workflow.PaymentRefunded},
}

// match finds the payment an event refers to. Strategies run in order and
// the first hit wins. The matched row is locked.
func (s *PaymentService) match(ctx context.Context, evt *payments.WebhookEvent) (*models.Payment, string, error) {
	try := func(p *models.Payment, err error) (*models.Payment, error) {
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return p, nil
	}

	if evt.PaymentIntentID != "" {
		p, err := try(s.repo.FindByIntentID(ctx, evt.PaymentIntentID))
		if err != nil || p != nil {
			return p, MatchIntentID, err
		}
	}
	if evt.SessionID != "" {
		p, err := try(s.repo.FindBySessionID(ctx, evt.SessionID))
		if err != nil || p != nil {
			return p, MatchSessionID, err
		}
	}
	if id := evt.Metadata[payments.MetaPaymentID]; id != "" {
		p, err := try(s.repo.GetForUpdate(ctx, id))
		if err != nil || p != nil {
			return p, MatchPaymentID, err
		}
	}
	budgetID, typ := evt.Metadata[payments.MetaBudgetID], workflow.PaymentType(evt.Metadata[payments.MetaPaymentType])
	if budgetID != "" && typ.Valid() {
		p, err := try(s.repo.FindPendingByBudgetAndType(ctx, budgetID, typ))
		if err != nil || p != nil {
			return p, MatchBudgetAndType, err
		}
	}
	if evt.AmountCents > 0 && evt.CustomerEmail != "" {
		candidates, err := s.repo.FindPendingByAmountAndEmail(ctx, evt.AmountCents, evt.CustomerEmail)
		if err != nil {
			return nil, "", err
		}
		if len(candidates) == 1 {
			p, err := try(s.repo.GetForUpdate(ctx, candidates[0].ID))
			if err != nil || p != nil {
				return p, MatchAmountEmail, err
			}
		}
		if len(candidates) > 1 {
			logging.FromContext(ctx).Warnf("⚠️ %d pending payments share amount %s and email, refusing to guess",
				len(candidates), money.FormatBRL(evt.AmountCents))
		}
	}
	return nil, "", nil
}

// apply moves p by action and runs the consequences.
func (s *PaymentService) apply(ctx context.Context, p *models.Payment, evt *payments.WebhookEvent, action workflow.PaymentAction) (WebhookResult, error) {
	if evt.AmountCents > 0 && evt.AmountCents != p.Amount && action == workflow.PaymentMarkPaid {
		logging.FromContext(ctx).Warnf("⚠️ Payment %s expected %s but event carried %s",
			p.ID, money.FormatBRL(p.Amount), money.FormatBRL(evt.AmountCents))
	}

	switch action {
	case workflow.PaymentMarkPaid:
		if err := s.markPaid(ctx, p, evt, models.PaymentMethodStripe, ""); err != nil {
			return "", err
		}
		b, progress, err := s.advance(ctx, p, "")
		if err != nil {
			return "", err
		}
		if progress == budgetStranded {
			return ResultNeedsReview, s.flagForReview(ctx, p, evt, fmt.Sprintf("budget is %s", b.Status))
		}
		return ResultProcessed, nil
	case workflow.PaymentMarkFailed:
		if err := s.setStatus(ctx, p, action, evt); err != nil {
			return "", err
		}
		return ResultProcessed, s.outbox.Enqueue(ctx, events.PaymentFailed, events.Payload{
			PaymentID: p.ID,
			BudgetID:  p.BudgetID,
			ClientID:  p.ClientID,
			Amount:    p.Amount,
			Note:      evt.FailureMessage,
		})
	default:
		return ResultProcessed, s.setStatus(ctx, p, action, evt)
	}
}

// flagForReview logs money the workflow cannot absorb and asks the team to
// sort it out, usually with a refund.
func (s *PaymentService) flagForReview(ctx context.Context, p *models.Payment, evt *payments.WebhookEvent, reason string) error {
	logging.FromContext(ctx).Warnf("⚠️ Payment %s needs review: %s", p.ID, reason)
	msg := fmt.Sprintf("Evento %s recebido mas não aplicado: %s", evt.ID, reason)
	if err := s.logs.Record(ctx, EntityPayment, p.ID, string(ResultNeedsReview), msg, "", nil); err != nil {
		return err
	}
	amount := evt.AmountCents
	if amount == 0 {
		amount = p.Amount
	}
	return s.outbox.Enqueue(ctx, events.PaymentNeedsReview, events.Payload{
		PaymentID: p.ID,
		BudgetID:  p.BudgetID,
		ClientID:  p.ClientID,
		Amount:    amount,
		Note:      reason,
	})
}

func (s *PaymentService) setStatus(ctx context.Context, p *models.Payment, action workflow.PaymentAction, evt *payments.WebhookEvent) error {
	next, err := workflow.Payments.Transition(p.Status, action)
	if err != nil {
		return err
	}
	from := p.Status
	p.Status = next
	if action == workflow.PaymentExpire {
		p.CheckoutURL = nil
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return err
	}
	msg := fmt.Sprintf("Pagamento %s: %s → %s", p.ID, from, next)
	if evt != nil && evt.FailureMessage != "" {
		msg += " (" + evt.FailureMessage + ")"
	}
	return s.logs.Record(ctx, EntityPayment, p.ID, string(action), msg, "", nil)
}

func (s *PaymentService) markPaid(ctx context.Context, p *models.Payment, evt *payments.WebhookEvent, method, actorID string) error {
	next, err := workflow.Payments.Transition(p.Status, workflow.PaymentMarkPaid)
	if err != nil {
		return err
	}
	p.Status = next
	p.PaidAt = timePtr(s.days.now().UTC())
	p.Method = &method
	if evt != nil {
		if evt.PaymentIntentID != "" {
			p.StripePaymentIntentID = &evt.PaymentIntentID
		}
		if evt.SessionID != "" {
			p.StripeSessionID = &evt.SessionID
		}
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return err
	}
	msg := fmt.Sprintf("Pagamento de %s recebido (%s)", money.FormatBRL(p.Amount), paymentTypeLabel(p.Type))
	return s.logs.Record(ctx, EntityPayment, p.ID, string(workflow.PaymentMarkPaid), msg, actorID, models.JSONMap{"method": method})
}

// budgetProgress says what a paid installment did to its budget.
type budgetProgress int

const (
	budgetAdvanced budgetProgress = iota
	// budgetAwaitingCompletion: a final payment arrived before the project
	// completed. The budget catches up on completion.
	budgetAwaitingCompletion
	// budgetStranded: the budget can no longer take this payment.
	budgetStranded
)

// advance moves the budget and project after p was paid. A budget that
// cannot move is left untouched and reported as stranded.
func (s *PaymentService) advance(ctx context.Context, p *models.Payment, actorID string) (*models.Budget, budgetProgress, error) {
	b, err := s.budgets.GetForUpdate(ctx, p.BudgetID)
	if err != nil {
		return nil, budgetStranded, err
	}
	switch p.Type {
	case workflow.PaymentDownPayment, workflow.PaymentFull:
		if !workflow.Budgets.CanTransition(b.Status, workflow.BudgetPayDownPayment) {
			return b, budgetStranded, nil
		}
		_, err = s.lifecycle.downPaymentReceived(ctx, b, p, actorID)
		return b, budgetAdvanced, err
	case workflow.PaymentFinalPayment:
		switch {
		case workflow.Budgets.CanTransition(b.Status, workflow.BudgetPayFinal):
			return b, budgetAdvanced, s.lifecycle.finalPaymentReceived(ctx, b, p, actorID)
		case b.Status == workflow.BudgetProjectInProgress:
			return b, budgetAwaitingCompletion, s.lifecycle.finalPaidEarly(ctx, b, p, actorID)
		}
		return b, budgetStranded, nil
	}
	return b, budgetStranded, errors.NewValidationError("type", fmt.Sprintf("unknown payment type %q", p.Type))
}

func paymentTypeLabel(t workflow.PaymentType) string {
	switch t {
	case workflow.PaymentDownPayment:
		return "entrada"
	case workflow.PaymentFinalPayment:
		return "pagamento final"
	case workflow.PaymentFull:
		return "pagamento integral"
	}
	return string(t)
}
