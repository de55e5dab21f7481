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
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/utils"
)

// ProgressThresholds are the completion percentages announced to clients.
var ProgressThresholds = []int{25, 50, 75, 100}

// ProjectService runs projects, their tasks and their milestones.
type ProjectService struct {
	repo       ProjectStore
	clients    ClientStore
	tasks      TaskStore
	milestones MilestoneStore
	tx         Transactor
	outbox     EventEnqueuer
	logs       *ActivityLogService
	checkout   CheckoutProvider
	lifecycle  *lifecycle
	days       businessDay
}

// ProjectServiceConfig carries the collaborators of a ProjectService.
type ProjectServiceConfig struct {
	Projects   ProjectStore
	Clients    ClientStore
	Budgets    BudgetStore
	Payments   PaymentStore
	Tasks      TaskStore
	Milestones MilestoneStore
	Events     EventStore
	Tx         Transactor
	Outbox     EventEnqueuer
	Logs       *ActivityLogService
	Checkout   CheckoutProvider
	Days       businessDay
	LeadDays   int
}

func NewProjectService(cfg ProjectServiceConfig) *ProjectService {
	return &ProjectService{
		repo:       cfg.Projects,
		clients:    cfg.Clients,
		tasks:      cfg.Tasks,
		milestones: cfg.Milestones,
		tx:         cfg.Tx,
		outbox:     cfg.Outbox,
		logs:       cfg.Logs,
		checkout:   cfg.Checkout,
		days:       cfg.Days,
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

// ProjectInput holds the editable fields of a project.
type ProjectInput struct {
	ClientID    string     `json:"client_id"`
	Name        string     `json:"name" binding:"required"`
	Description *string    `json:"description"`
	TotalValue  int64      `json:"total_value"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

func (in ProjectInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.NewValidationError("name", "name is required")
	}
	if in.TotalValue < 0 {
		return errors.NewValidationError("total_value", "total value cannot be negative")
	}
	if in.StartDate != nil && in.DueDate != nil && in.DueDate.Before(*in.StartDate) {
		return errors.NewValidationError("due_date", "due date is before the start date")
	}
	return nil
}

// Create stores a project that did not come from a budget.
func (s *ProjectService) Create(ctx context.Context, in ProjectInput, actorID string) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.clients.Get(ctx, in.ClientID); err != nil {
		return nil, err
	}
	p := &models.Project{
		ID:          utils.GenerateID(),
		ClientID:    in.ClientID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      workflow.ProjectPlanning,
		TotalValue:  in.TotalValue,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.logs.Record(ctx, EntityProject, p.ID, "created", "Projeto criado: "+p.Name, actorID, nil)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	return s.repo.Get(ctx, id)
}

func (s *ProjectService) List(ctx context.Context, f persistence.ProjectFilter) ([]models.Project, error) {
	return s.repo.List(ctx, f)
}

// Update edits the descriptive fields. Status and progress have their own
// operations.
func (s *ProjectService) Update(ctx context.Context, id string, in ProjectInput, actorID string) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var p *models.Project
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.Name = strings.TrimSpace(in.Name)
		p.Description = in.Description
		p.TotalValue = in.TotalValue
		p.StartDate = in.StartDate
		p.DueDate = in.DueDate
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		return s.logs.Record(ctx, EntityProject, p.ID, "updated", "Projeto atualizado", actorID, nil)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Delete(ctx context.Context, id, actorID string) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.BudgetID != nil {
		return errors.NewConflictError("project", "budget_id", *p.BudgetID)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.logs.Record(ctx, EntityProject, id, "deleted", "Projeto removido: "+p.Name, actorID, nil)
}

// UpdateProgress sets the completion percentage, clamped to [0,100]. Each
// threshold crossed is announced once. Reaching 100 completes the project
// and opens the final payment.
func (s *ProjectService) UpdateProgress(ctx context.Context, id string, percent int, actorID string) (*models.Project, error) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	var (
		p     *models.Project
		final *models.Payment
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch p.Status {
		case workflow.ProjectPlanning, workflow.ProjectInProgress, workflow.ProjectOnHold, workflow.ProjectReview:
		default:
			return errors.NewInvalidTransitionError("project", string(p.Status), "progress")
		}
		if percent == 100 && !workflow.Projects.CanTransition(p.Status, workflow.ProjectComplete) {
			return errors.NewInvalidTransitionError("project", string(p.Status), string(workflow.ProjectComplete))
		}

		previous := p.Progress
		p.Progress = percent
		for _, threshold := range ProgressThresholds {
			if percent < threshold || p.NotifiedProgress >= threshold {
				continue
			}
			p.NotifiedProgress = threshold
			if err := s.outbox.Enqueue(ctx, events.ProjectProgress, events.Payload{
				ProjectID: p.ID,
				BudgetID:  models.Deref(p.BudgetID),
				ClientID:  p.ClientID,
				Progress:  threshold,
			}); err != nil {
				return err
			}
		}

		if percent == 100 {
			next, err := workflow.Projects.Transition(p.Status, workflow.ProjectComplete)
			if err != nil {
				return err
			}
			p.Status = next
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		msg := fmt.Sprintf("Progresso alterado de %d%% para %d%%", previous, percent)
		if err := s.logs.Record(ctx, EntityProject, p.ID, "progress", msg, actorID, nil); err != nil {
			return err
		}
		if p.Status != workflow.ProjectCompleted {
			return nil
		}

		final, err = s.lifecycle.projectCompleted(ctx, p, actorID)
		if err != nil {
			return err
		}
		payload := events.Payload{
			ProjectID: p.ID,
			BudgetID:  models.Deref(p.BudgetID),
			ClientID:  p.ClientID,
			ActorID:   actorID,
		}
		if final != nil {
			payload.PaymentID = final.ID
			payload.Amount = final.Amount
		}
		return s.outbox.Enqueue(ctx, events.ProjectCompleted, payload)
	})
	if err != nil {
		return nil, err
	}

	if final != nil && s.checkout != nil {
		if _, err := s.checkout.EnsureCheckout(ctx, final.ID); err != nil {
			logging.FromContext(ctx).WithError(err).Warnf("⚠️ Could not open final payment checkout for project %s", p.ID)
		}
	}
	return p, nil
}

// manualProjectActions are the lifecycle actions an operator may trigger
// directly.
var manualProjectActions = map[workflow.ProjectAction]bool{
	workflow.ProjectStart:        true,
	workflow.ProjectHold:         true,
	workflow.ProjectResume:       true,
	workflow.ProjectSendToReview: true,
	workflow.ProjectCancel:       true,
}

// Transition applies a manual lifecycle action. Completion goes through
// UpdateProgress and delivery through MarkDelivered.
func (s *ProjectService) Transition(ctx context.Context, id string, action workflow.ProjectAction, actorID string) (*models.Project, error) {
	if action == workflow.ProjectComplete {
		return s.UpdateProgress(ctx, id, 100, actorID)
	}
	if action == workflow.ProjectDeliver {
		return s.MarkDelivered(ctx, id, actorID)
	}
	if !manualProjectActions[action] {
		return nil, errors.NewValidationError("action", fmt.Sprintf("invalid action %q", action))
	}

	var p *models.Project
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from := p.Status
		p.Status, err = workflow.Projects.Transition(p.Status, action)
		if err != nil {
			return err
		}
		if action == workflow.ProjectStart && p.StartDate == nil {
			p.StartDate = timePtr(s.days.today())
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		msg := fmt.Sprintf("Status alterado de %s para %s", from, p.Status)
		return s.logs.Record(ctx, EntityProject, p.ID, string(action), msg, actorID, nil)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarkDelivered closes a project whose delivery was scheduled.
func (s *ProjectService) MarkDelivered(ctx context.Context, id, actorID string) (*models.Project, error) {
	var p *models.Project
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.Status, err = workflow.Projects.Transition(p.Status, workflow.ProjectDeliver)
		if err != nil {
			return err
		}
		p.DeliveredAt = timePtr(s.days.now().UTC())
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		if err := s.logs.Record(ctx, EntityProject, p.ID, string(workflow.ProjectDeliver), "Projeto entregue", actorID, nil); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, events.ProjectDelivered, events.Payload{
			ProjectID: p.ID,
			BudgetID:  models.Deref(p.BudgetID),
			ClientID:  p.ClientID,
			ActorID:   actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Infof("📦 Project %s delivered", p.ID)
	return p, nil
}

// DeliverDue marks delivered every scheduled project whose delivery date is
// on or before day.
func (s *ProjectService) DeliverDue(ctx context.Context, day time.Time) (int, error) {
	due, err := s.repo.ListDeliveryDue(ctx, day)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, p := range due {
		if _, err := s.MarkDelivered(ctx, p.ID, ""); err != nil {
			if errors.IsInvalidTransition(err) {
				continue
			}
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

// Tasks

func validateTask(t *models.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errors.NewValidationError("title", "title is required")
	}
	switch t.Status {
	case "":
		t.Status = models.TaskTodo
	case models.TaskTodo, models.TaskInProgress, models.TaskDone:
	default:
		return errors.NewValidationError("status", fmt.Sprintf("invalid task status %q", t.Status))
	}
	switch t.Priority {
	case "":
		t.Priority = models.PriorityMedium
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
	default:
		return errors.NewValidationError("priority", fmt.Sprintf("invalid task priority %q", t.Priority))
	}
	return nil
}

func (s *ProjectService) CreateTask(ctx context.Context, projectID string, t *models.Task) (*models.Task, error) {
	if _, err := s.repo.Get(ctx, projectID); err != nil {
		return nil, err
	}
	if err := validateTask(t); err != nil {
		return nil, err
	}
	t.ID = utils.GenerateID()
	t.ProjectID = projectID
	if t.Status == models.TaskDone {
		t.CompletedAt = timePtr(s.days.now().UTC())
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ProjectService) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	return s.tasks.ListByProject(ctx, projectID)
}

func (s *ProjectService) UpdateTask(ctx context.Context, projectID, taskID string, in *models.Task) (*models.Task, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.ProjectID != projectID {
		return nil, errors.NewNotFoundError("task", taskID)
	}
	if err := validateTask(in); err != nil {
		return nil, err
	}
	wasDone := t.Status == models.TaskDone
	t.Title, t.Description, t.Status, t.Priority = in.Title, in.Description, in.Status, in.Priority
	t.AssigneeID, t.DueDate = in.AssigneeID, in.DueDate
	switch {
	case t.Status == models.TaskDone && !wasDone:
		t.CompletedAt = timePtr(s.days.now().UTC())
	case t.Status != models.TaskDone:
		t.CompletedAt = nil
	}
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ProjectService) DeleteTask(ctx context.Context, projectID, taskID string) error {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if t.ProjectID != projectID {
		return errors.NewNotFoundError("task", taskID)
	}
	return s.tasks.Delete(ctx, taskID)
}

// RemindDueTasks announces the open tasks due on the business day after
// today. It returns how many reminders were queued.
func (s *ProjectService) RemindDueTasks(ctx context.Context) (int, error) {
	day := s.days.cal.NextBusinessDay(s.days.today())
	due, err := s.tasks.ListDueOn(ctx, day)
	if err != nil {
		return 0, err
	}
	for _, t := range due {
		if err := s.outbox.Enqueue(ctx, events.TaskDueSoon, events.Payload{
			TaskID:    t.ID,
			ProjectID: t.ProjectID,
			Date:      &day,
			Note:      t.Title,
			ActorID:   models.Deref(t.AssigneeID),
		}); err != nil {
			return 0, err
		}
	}
	return len(due), nil
}

// Milestones

// CreateMilestone stores a milestone. A due date on a weekend or holiday is
// moved to the next business day.
func (s *ProjectService) CreateMilestone(ctx context.Context, projectID string, m *models.Milestone) (*models.Milestone, error) {
	if _, err := s.repo.Get(ctx, projectID); err != nil {
		return nil, err
	}
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return nil, errors.NewValidationError("title", "title is required")
	}
	if m.DueDate.IsZero() {
		return nil, errors.NewValidationError("due_date", "due date is required")
	}
	m.ID = utils.GenerateID()
	m.ProjectID = projectID
	m.DueDate = s.days.cal.RollForward(m.DueDate)
	m.IsCompleted = false
	m.CompletedAt = nil
	if err := s.milestones.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ProjectService) ListMilestones(ctx context.Context, projectID string) ([]models.Milestone, error) {
	return s.milestones.ListByProject(ctx, projectID)
}

func (s *ProjectService) UpdateMilestone(ctx context.Context, projectID, milestoneID string, in *models.Milestone) (*models.Milestone, error) {
	m, err := s.milestones.Get(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if m.ProjectID != projectID {
		return nil, errors.NewNotFoundError("milestone", milestoneID)
	}
	if t := strings.TrimSpace(in.Title); t != "" {
		m.Title = t
	}
	if !in.DueDate.IsZero() {
		m.DueDate = s.days.cal.RollForward(in.DueDate)
	}
	if in.IsCompleted && !m.IsCompleted {
		m.CompletedAt = timePtr(s.days.now().UTC())
	}
	if !in.IsCompleted {
		m.CompletedAt = nil
	}
	m.IsCompleted = in.IsCompleted
	if err := s.milestones.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ProjectService) DeleteMilestone(ctx context.Context, projectID, milestoneID string) error {
	m, err := s.milestones.Get(ctx, milestoneID)
	if err != nil {
		return err
	}
	if m.ProjectID != projectID {
		return errors.NewNotFoundError("milestone", milestoneID)
	}
	return s.milestones.Delete(ctx, milestoneID)
}
