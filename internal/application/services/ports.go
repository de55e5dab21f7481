package services

import (
	"context"
	"time"

	"github.com/devstudio/backoffice/internal/domain/events"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
)

// Transactor runs fn in a transaction carried by its context.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventEnqueuer stores a domain event for asynchronous delivery. Inside a
// transaction the event commits with it.
type EventEnqueuer interface {
	Enqueue(ctx context.Context, eventType events.EventType, payload events.Payload) error
}

type UserStore interface {
	CheckUserExistsByEmail(ctx context.Context, email string) (bool, error)
	CountAdmins(ctx context.Context) (int, error)
	Create(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type SessionStore interface {
	InsertSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	RevokeSession(ctx context.Context, id string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	UpdateLastActivity(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type ClientStore interface {
	Create(ctx context.Context, c *models.Client) error
	Get(ctx context.Context, id string) (*models.Client, error)
	List(ctx context.Context, f persistence.ClientFilter) ([]models.Client, error)
	Update(ctx context.Context, c *models.Client) error
	Delete(ctx context.Context, id string) error
}

type TeamStore interface {
	Create(ctx context.Context, m *models.TeamMember) error
	Get(ctx context.Context, id string) (*models.TeamMember, error)
	List(ctx context.Context, activeOnly bool) ([]models.TeamMember, error)
	Update(ctx context.Context, m *models.TeamMember) error
	Delete(ctx context.Context, id string) error
}

type BudgetStore interface {
	Create(ctx context.Context, b *models.Budget) error
	Get(ctx context.Context, id string) (*models.Budget, error)
	GetForUpdate(ctx context.Context, id string) (*models.Budget, error)
	GetByPublicToken(ctx context.Context, token string) (*models.Budget, error)
	List(ctx context.Context, f persistence.BudgetFilter) ([]models.Budget, error)
	Update(ctx context.Context, b *models.Budget) error
	UpdateStatus(ctx context.Context, id string, from, to workflow.BudgetStatus) error
	SetProject(ctx context.Context, id, projectID string) error
	ListExpirable(ctx context.Context, day time.Time) ([]models.Budget, error)
}

type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id string) (*models.Project, error)
	GetForUpdate(ctx context.Context, id string) (*models.Project, error)
	GetByBudget(ctx context.Context, budgetID string) (*models.Project, error)
	List(ctx context.Context, f persistence.ProjectFilter) ([]models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	ListDeliveryDue(ctx context.Context, day time.Time) ([]models.Project, error)
	Delete(ctx context.Context, id string) error
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id string) (*models.Payment, error)
	GetForUpdate(ctx context.Context, id string) (*models.Payment, error)
	FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	FindByBudgetAndType(ctx context.Context, budgetID string, typ workflow.PaymentType) (*models.Payment, error)
	FindPendingByBudgetAndType(ctx context.Context, budgetID string, typ workflow.PaymentType) (*models.Payment, error)
	FindPendingByAmountAndEmail(ctx context.Context, amount int64, email string) ([]models.Payment, error)
	ListByBudget(ctx context.Context, budgetID string) ([]models.Payment, error)
	List(ctx context.Context, f persistence.PaymentFilter) ([]models.Payment, error)
	SetCheckout(ctx context.Context, id, sessionID, url string) error
	Save(ctx context.Context, p *models.Payment) error
	AttachProject(ctx context.Context, budgetID, projectID string) error
}

type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	Get(ctx context.Context, id string) (*models.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Task, error)
	ListDueOn(ctx context.Context, day time.Time) ([]models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id string) error
}

type MilestoneStore interface {
	Create(ctx context.Context, m *models.Milestone) error
	Get(ctx context.Context, id string) (*models.Milestone, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Milestone, error)
	Update(ctx context.Context, m *models.Milestone) error
	Delete(ctx context.Context, id string) error
}

type ContractStore interface {
	NextNumber(ctx context.Context, year int) (string, error)
	Create(ctx context.Context, c *models.Contract) error
	Get(ctx context.Context, id string) (*models.Contract, error)
	List(ctx context.Context, budgetID string, limit, offset int) ([]models.Contract, error)
	UpdateStatus(ctx context.Context, id, from, to string) error
}

type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, f persistence.EventFilter) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id string) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type ActivityLogStore interface {
	Create(ctx context.Context, l *models.ActivityLog) error
	List(ctx context.Context, entityType, entityID string, limit int) ([]models.ActivityLog, error)
}

type WebhookEventStore interface {
	TryRecord(ctx context.Context, id, eventType string) (bool, error)
	MarkProcessed(ctx context.Context, id, status string, paymentID *string) error
	MarkFailed(ctx context.Context, id string, cause error) error
	Forget(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.WebhookEvent, error)
	List(ctx context.Context, status string, limit int) ([]models.WebhookEvent, error)
}

type DashboardStore interface {
	BudgetsByStatus(ctx context.Context) ([]persistence.StatusCount, error)
	ProjectsByStatus(ctx context.Context) ([]persistence.StatusCount, error)
	RevenueBetween(ctx context.Context, from, to time.Time) (int64, error)
	PendingReceivables(ctx context.Context) (int64, error)
	CountClients(ctx context.Context) (int, error)
}
