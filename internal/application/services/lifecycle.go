package services

import (
	"context"
	"fmt"
	"time"

	"github.com/devstudio/backoffice/internal/domain/events"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/money"
	"github.com/devstudio/backoffice/pkg/utils"
)

// lifecycle advances budgets and projects when money arrives or work ends.
// Every method expects a transaction in ctx.
type lifecycle struct {
	budgets     BudgetStore
	projects    ProjectStore
	payments    PaymentStore
	calendar    EventStore
	logs        *ActivityLogService
	outbox      EventEnqueuer
	transitions budgetTransitions
	days        businessDay
	leadDays    int
}

// downPaymentReceived starts the project paid for by p. The project begins
// on the next business day and is due after the budget's business days.
func (l *lifecycle) downPaymentReceived(ctx context.Context, b *models.Budget, p *models.Payment, actorID string) (*models.Project, error) {
	if err := l.transitions.apply(ctx, b, workflow.BudgetPayDownPayment, actorID, ""); err != nil {
		return nil, err
	}

	project, err := l.projects.GetByBudget(ctx, b.ID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if project == nil {
		start := l.days.cal.NextBusinessDay(l.days.today())
		due := l.days.cal.AddBusinessDays(start, b.BusinessDays)
		project = &models.Project{
			ID:          utils.GenerateID(),
			ClientID:    b.ClientID,
			BudgetID:    &b.ID,
			Name:        b.Title,
			Description: b.Description,
			Status:      workflow.ProjectInProgress,
			TotalValue:  b.Total,
			StartDate:   &start,
			DueDate:     &due,
		}
		if err := l.projects.Create(ctx, project); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Projeto iniciado a partir do orçamento %s", b.ID)
		if err := l.logs.Record(ctx, EntityProject, project.ID, "created", msg, actorID, nil); err != nil {
			return nil, err
		}
	}

	if err := l.budgets.SetProject(ctx, b.ID, project.ID); err != nil {
		return nil, err
	}
	b.ProjectID = &project.ID
	if err := l.payments.AttachProject(ctx, b.ID, project.ID); err != nil {
		return nil, err
	}
	if err := l.transitions.apply(ctx, b, workflow.BudgetStartProject, actorID, ""); err != nil {
		return nil, err
	}

	if err := l.outbox.Enqueue(ctx, events.PaymentDownPaymentReceived, events.Payload{
		BudgetID:  b.ID,
		ProjectID: project.ID,
		PaymentID: p.ID,
		ClientID:  b.ClientID,
		Amount:    p.Amount,
		Date:      project.StartDate,
	}); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Infof("🚀 Project %s started from budget %s", project.ID, b.ID)
	return project, nil
}

// finalPaymentReceived finishes the budget and schedules the delivery of
// its project.
func (l *lifecycle) finalPaymentReceived(ctx context.Context, b *models.Budget, p *models.Payment, actorID string) error {
	if err := l.transitions.apply(ctx, b, workflow.BudgetPayFinal, actorID, ""); err != nil {
		return err
	}
	if err := l.outbox.Enqueue(ctx, events.PaymentFinalReceived, events.Payload{
		BudgetID:  b.ID,
		ProjectID: models.Deref(b.ProjectID),
		PaymentID: p.ID,
		ClientID:  b.ClientID,
		Amount:    p.Amount,
	}); err != nil {
		return err
	}
	if b.ProjectID == nil {
		return errors.NewInternalError(fmt.Sprintf("budget %s has no project to deliver", b.ID), nil)
	}
	project, err := l.projects.GetForUpdate(ctx, *b.ProjectID)
	if err != nil {
		return err
	}
	paidAt := l.days.now()
	if p.PaidAt != nil {
		paidAt = *p.PaidAt
	}
	return l.scheduleDelivery(ctx, project, paidAt, actorID)
}

// finalPaidEarly records a final payment that arrived while the project is
// still running. The budget is finished when the project completes.
func (l *lifecycle) finalPaidEarly(ctx context.Context, b *models.Budget, p *models.Payment, actorID string) error {
	msg := fmt.Sprintf("Pagamento final de %s recebido antes da conclusão do projeto", money.FormatBRL(p.Amount))
	if err := l.logs.Record(ctx, EntityBudget, b.ID, "final_paid_early", msg, actorID, nil); err != nil {
		return err
	}
	if err := l.outbox.Enqueue(ctx, events.PaymentFinalReceived, events.Payload{
		BudgetID:  b.ID,
		ProjectID: models.Deref(b.ProjectID),
		PaymentID: p.ID,
		ClientID:  b.ClientID,
		Amount:    p.Amount,
	}); err != nil {
		return err
	}
	logging.FromContext(ctx).Infof("💰 Final payment %s for budget %s arrived early, waiting for the project", p.ID, b.ID)
	return nil
}

// scheduleDelivery books the delivery lead business days after paidAt and
// puts it on the calendar.
func (l *lifecycle) scheduleDelivery(ctx context.Context, project *models.Project, paidAt time.Time, actorID string) error {
	next, err := workflow.Projects.Transition(project.Status, workflow.ProjectScheduleDelivery)
	if err != nil {
		return err
	}
	date := l.days.cal.AddBusinessDays(dateIn(paidAt, l.days.loc), l.leadDays)
	project.Status = next
	project.DeliveryDate = &date
	if err := l.projects.Update(ctx, project); err != nil {
		return err
	}

	entry := &models.Event{
		ID:          utils.GenerateID(),
		Title:       "Entrega: " + project.Name,
		Description: models.StringPtr(fmt.Sprintf("Entrega do projeto %s", project.Name)),
		Type:        models.EventTypeDelivery,
		StartsAt:    date,
		ProjectID:   &project.ID,
		ClientID:    &project.ClientID,
	}
	if err := l.calendar.Create(ctx, entry); err != nil {
		return err
	}
	msg := fmt.Sprintf("Entrega agendada para %s", date.Format(dateLayout))
	if err := l.logs.Record(ctx, EntityProject, project.ID, string(workflow.ProjectScheduleDelivery), msg, actorID, nil); err != nil {
		return err
	}
	return l.outbox.Enqueue(ctx, events.ProjectDeliveryScheduled, events.Payload{
		ProjectID: project.ID,
		BudgetID:  models.Deref(project.BudgetID),
		ClientID:  project.ClientID,
		Date:      &date,
	})
}

// projectCompleted moves the budget of a completed project to completed.
// When the project was paid in full up front, or its final payment arrived
// early, the budget is finished and the delivery scheduled right away.
// Otherwise it returns the pending final payment to collect, or nil.
func (l *lifecycle) projectCompleted(ctx context.Context, project *models.Project, actorID string) (*models.Payment, error) {
	if project.BudgetID == nil {
		return nil, nil
	}
	b, err := l.budgets.GetForUpdate(ctx, *project.BudgetID)
	if err != nil {
		return nil, err
	}
	if !workflow.Budgets.CanTransition(b.Status, workflow.BudgetCompleteProject) {
		logging.FromContext(ctx).Warnf("⚠️ Budget %s is %s, not completing it with project %s", b.ID, b.Status, project.ID)
		return nil, nil
	}
	if err := l.transitions.apply(ctx, b, workflow.BudgetCompleteProject, actorID, ""); err != nil {
		return nil, err
	}

	for _, settled := range []struct {
		typ  workflow.PaymentType
		note string
	}{
		{workflow.PaymentFull, "pagamento integral"},
		{workflow.PaymentFinalPayment, "pagamento final antecipado"},
	} {
		paid, err := l.payments.FindByBudgetAndType(ctx, b.ID, settled.typ)
		if err != nil && !errors.IsNotFound(err) {
			return nil, err
		}
		if paid == nil || paid.Status != workflow.PaymentPaid {
			continue
		}
		if err := l.transitions.apply(ctx, b, workflow.BudgetPayFinal, actorID, settled.note); err != nil {
			return nil, err
		}
		return nil, l.scheduleDelivery(ctx, project, l.days.now(), actorID)
	}

	final, err := l.payments.FindPendingByBudgetAndType(ctx, b.ID, workflow.PaymentFinalPayment)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	logging.FromContext(ctx).Infof("💰 Final payment %s of %s due for project %s", final.ID, money.FormatBRL(final.Amount), project.ID)
	return final, nil
}
