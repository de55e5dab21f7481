package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/payments"
	"github.com/devstudio/backoffice/pkg/calendar"
	"github.com/devstudio/backoffice/pkg/pricing"
)

// testNow is a Friday.
var testNow = time.Date(2026, time.October, 16, 10, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const checkoutURL = "https://checkout.test/cs_1"

type workflowFixture struct {
	cal        *calendar.Calendar
	days       businessDay
	tx         *fakeTx
	outbox     *recordingOutbox
	clients    *memClients
	budgets    *memBudgets
	payments   *memPayments
	projects   *memProjects
	events     *memEvents
	activity   *memActivity
	webhooks   *memWebhooks
	tasks      *memTasks
	milestones *memMilestones
	checkout   *MockCheckout

	budgetSvc  *BudgetService
	paymentSvc *PaymentService
	projectSvc *ProjectService
	client     models.Client
}

// newWorkflowFixture wires the budget, payment and project services over
// in-memory stores. downPaymentPercent controls the installment split.
func newWorkflowFixture(t *testing.T, downPaymentPercent int) *workflowFixture {
	t.Helper()
	cal := calendar.New()
	clock := func() time.Time { return testNow }
	f := &workflowFixture{
		cal:        cal,
		days:       businessDay{cal: cal, loc: time.UTC, now: clock},
		tx:         &fakeTx{},
		outbox:     &recordingOutbox{},
		budgets:    newMemBudgets(),
		payments:   newMemPayments(),
		projects:   newMemProjects(),
		events:     &memEvents{},
		activity:   &memActivity{},
		webhooks:   newMemWebhooks(),
		tasks:      newMemTasks(),
		milestones: newMemMilestones(),
		checkout:   &MockCheckout{},
		client:     models.Client{ID: "client-1", Name: "Ana Souza", Email: "ana@acme.com"},
	}
	f.clients = newMemClients(f.client)
	f.checkout.On("EnsureCheckout", mock.Anything, mock.Anything).Return(checkoutURL, nil).Maybe()

	logs := NewActivityLogService(f.activity)
	estimator := pricing.NewEstimator(cal, downPaymentPercent, pricing.WithClock(clock))

	f.paymentSvc = NewPaymentService(PaymentServiceConfig{
		Payments: f.payments,
		Budgets:  f.budgets,
		Projects: f.projects,
		Events:   f.events,
		Webhooks: f.webhooks,
		Tx:       f.tx,
		Outbox:   f.outbox,
		Logs:     logs,
		Days:     f.days,
		LeadDays: 2,
	})
	f.budgetSvc = NewBudgetService(BudgetServiceConfig{
		Budgets:      f.budgets,
		Clients:      f.clients,
		Payments:     f.payments,
		Tx:           f.tx,
		Outbox:       f.outbox,
		Logs:         logs,
		Estimator:    estimator,
		Checkout:     f.checkout,
		Clock:        clock,
		Location:     time.UTC,
		ValidityDays: 15,
	})
	f.projectSvc = NewProjectService(ProjectServiceConfig{
		Projects:   f.projects,
		Clients:    f.clients,
		Budgets:    f.budgets,
		Payments:   f.payments,
		Tasks:      f.tasks,
		Milestones: f.milestones,
		Events:     f.events,
		Tx:         f.tx,
		Outbox:     f.outbox,
		Logs:       logs,
		Checkout:   f.checkout,
		Days:       f.days,
		LeadDays:   2,
	})
	return f
}

func landingPageRequest(clientID string) CreateBudgetRequest {
	return CreateBudgetRequest{
		ClientID: clientID,
		Title:    "Site da Acme",
		EstimateInput: pricing.EstimateInput{
			ProjectType: pricing.TypeLandingPage,
			Complexity:  pricing.ComplexityMedium,
			Timeline:    pricing.TimelineNormal,
		},
	}
}

// sentBudget creates and sends a landing page budget.
func (f *workflowFixture) sentBudget(t *testing.T) *models.Budget {
	t.Helper()
	ctx := context.Background()
	b, err := f.budgetSvc.Create(ctx, landingPageRequest(f.client.ID), "user-1")
	require.NoError(t, err)
	b, err = f.budgetSvc.Send(ctx, b.ID, "user-1")
	require.NoError(t, err)
	return b
}

// paidEvent is a checkout completion pointing at p through its metadata.
func paidEvent(id string, p models.Payment) *payments.WebhookEvent {
	return &payments.WebhookEvent{
		ID:          id,
		Type:        payments.EventCheckoutCompleted,
		AmountCents: p.Amount,
		Metadata:    map[string]string{payments.MetaPaymentID: p.ID},
	}
}

// startedProject sends a budget and pays its first installment.
func (f *workflowFixture) startedProject(t *testing.T) (*models.Budget, models.Project) {
	t.Helper()
	b := f.sentBudget(t)
	first := f.payments.byType(b.ID, workflow.PaymentDownPayment)
	if first.ID == "" {
		first = f.payments.byType(b.ID, workflow.PaymentFull)
	}
	out, err := f.paymentSvc.HandleWebhook(context.Background(), paidEvent("evt_down", first))
	require.NoError(t, err)
	require.Equal(t, ResultProcessed, out.Result)
	return b, f.projects.only()
}
