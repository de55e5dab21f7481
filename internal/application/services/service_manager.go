package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/internal/i18n"
	"github.com/devstudio/backoffice/internal/infrastructure/cache"
	"github.com/devstudio/backoffice/internal/infrastructure/mailer"
	"github.com/devstudio/backoffice/internal/infrastructure/payments"
	"github.com/devstudio/backoffice/internal/infrastructure/pdf"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/pkg/auth"
	"github.com/devstudio/backoffice/pkg/calendar"
	"github.com/devstudio/backoffice/pkg/pricing"
)

// Dependencies are the external clients built by the caller. Gateway,
// Idempotency and Mailer may be nil.
type Dependencies struct {
	Gateway     payments.Gateway
	Idempotency cache.IdempotencyStore
	Mailer      mailer.Mailer
	Translator  *i18n.Translator
	Clock       Clock
}

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db  *sqlx.DB
	cfg *config.Config

	// Core services
	TxManager *persistence.TransactionManager
	EventBus  *EventBus
	Outbox    *OutboxService
	Calendar  *calendar.Calendar
	Estimator *pricing.Estimator
	Logs      *ActivityLogService
	// Gateway is nil when no processor is configured.
	Gateway payments.Gateway

	Auth         *AuthService
	Clients      *ClientService
	Team         *TeamService
	Budgets      *BudgetService
	Payments     *PaymentService
	Projects     *ProjectService
	Contracts    *ContractService
	Events       *EventService
	Notification *NotificationService
	Dispatcher   *NotificationDispatcher
	Dashboard    *DashboardService
	Scheduler    *SchedulerService
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *sqlx.DB, cfg *config.Config, deps Dependencies) (*ServiceManager, error) {
	sm := &ServiceManager{db: db, cfg: cfg, Gateway: deps.Gateway}

	extra, err := cfg.ExtraHolidayDates()
	if err != nil {
		return nil, err
	}
	sm.Calendar = calendar.New(extra...)

	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	days := businessDay{cal: sm.Calendar, loc: cfg.Location(), now: deps.Clock}

	opts := []pricing.Option{pricing.WithClock(deps.Clock)}
	if cfg.Pricing.RulesFile != "" {
		rules, err := pricing.LoadRuleSet(cfg.Pricing.RulesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pricing.WithRules(rules))
	}
	sm.Estimator = pricing.NewEstimator(sm.Calendar, cfg.Pricing.DownPaymentPercent, opts...)

	// Repositories
	var (
		users         = persistence.NewUserRepository(db)
		sessions      = persistence.NewSessionRepository(db)
		clients       = persistence.NewClientRepository(db)
		team          = persistence.NewTeamRepository(db)
		budgets       = persistence.NewBudgetRepository(db)
		projects      = persistence.NewProjectRepository(db)
		paymentRepo   = persistence.NewPaymentRepository(db)
		tasks         = persistence.NewTaskRepository(db)
		milestones    = persistence.NewMilestoneRepository(db)
		contracts     = persistence.NewContractRepository(db)
		calendarRepo  = persistence.NewEventRepository(db)
		notifications = persistence.NewNotificationRepository(db)
		activity      = persistence.NewActivityLogRepository(db)
		webhooks      = persistence.NewWebhookEventRepository(db)
		dashboard     = persistence.NewDashboardRepository(db)
		schedulerRepo = persistence.NewSchedulerRepository(db)
		outboxRepo    = persistence.NewOutboxRepository(db)
	)

	// Initialize services in dependency order
	sm.TxManager = persistence.NewTransactionManager(db)
	sm.EventBus = NewEventBus()
	sm.Outbox = NewOutboxService(outboxRepo, sm.EventBus, sm.TxManager)
	sm.Logs = NewActivityLogService(activity)

	sm.Auth = NewAuthService(users, sessions, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	sm.Clients = NewClientService(clients, sm.Logs)
	sm.Team = NewTeamService(team)
	sm.Events = NewEventService(calendarRepo)
	sm.Notification = NewNotificationService(notifications)
	sm.Dashboard = NewDashboardService(dashboard, days)

	sm.Payments = NewPaymentService(PaymentServiceConfig{
		Payments:    paymentRepo,
		Budgets:     budgets,
		Projects:    projects,
		Events:      calendarRepo,
		Webhooks:    webhooks,
		Gateway:     deps.Gateway,
		Idempotency: deps.Idempotency,
		Tx:          sm.TxManager,
		Outbox:      sm.Outbox,
		Logs:        sm.Logs,
		Days:        days,
		LeadDays:    cfg.Workflow.DeliveryLeadDays,
	})
	sm.Budgets = NewBudgetService(BudgetServiceConfig{
		Budgets:      budgets,
		Clients:      clients,
		Payments:     paymentRepo,
		Tx:           sm.TxManager,
		Outbox:       sm.Outbox,
		Logs:         sm.Logs,
		Estimator:    sm.Estimator,
		Checkout:     sm.Payments,
		Clock:        deps.Clock,
		Location:     days.loc,
		ValidityDays: cfg.Pricing.BudgetValidityDays,
	})
	sm.Projects = NewProjectService(ProjectServiceConfig{
		Projects:   projects,
		Clients:    clients,
		Budgets:    budgets,
		Payments:   paymentRepo,
		Tasks:      tasks,
		Milestones: milestones,
		Events:     calendarRepo,
		Tx:         sm.TxManager,
		Outbox:     sm.Outbox,
		Logs:       sm.Logs,
		Checkout:   sm.Payments,
		Days:       days,
		LeadDays:   cfg.Workflow.DeliveryLeadDays,
	})
	sm.Contracts = NewContractService(ContractServiceConfig{
		Contracts: contracts,
		Budgets:   budgets,
		Clients:   clients,
		Renderer:  pdf.NewRenderer(),
		Mail:      deps.Mailer,
		Logs:      sm.Logs,
		Tx:        sm.TxManager,
		Days:      days,
	})

	if deps.Translator != nil {
		sm.Dispatcher = NewNotificationDispatcher(DispatcherConfig{
			Translator:    deps.Translator,
			Mail:          deps.Mailer,
			Notifications: sm.Notification,
			Users:         users,
			Clients:       clients,
			Budgets:       budgets,
			Projects:      projects,
			Checkout:      sm.Payments,
			Locale:        cfg.Mail.Locale,
			BaseURL:       cfg.Server.BaseURL,
		})
		sm.Dispatcher.Register(sm.EventBus)
	}

	sm.Scheduler = NewSchedulerService(schedulerRepo, days)
	if err := sm.Scheduler.RegisterDefaults(cfg.Scheduler.DailySpec, sm.Budgets, sm.Projects, sm.Outbox, sm.Auth); err != nil {
		return nil, fmt.Errorf("failed to register scheduled jobs: %w", err)
	}
	return sm, nil
}

// StartOutboxWorker starts the background outbox event processing worker.
// Call this during server startup. The worker processes pending events every 500ms.
func (sm *ServiceManager) StartOutboxWorker() {
	if sm.Outbox != nil {
		sm.Outbox.StartWorker(500 * time.Millisecond)
	}
}

// StopOutboxWorker stops the background outbox event processing worker gracefully.
// Call this during server shutdown.
func (sm *ServiceManager) StopOutboxWorker() {
	if sm.Outbox != nil {
		sm.Outbox.StopWorker()
	}
}

// StartBackground starts the outbox worker and the scheduler.
func (sm *ServiceManager) StartBackground(ctx context.Context) error {
	sm.StartOutboxWorker()
	return sm.Scheduler.Start(ctx)
}

// StopBackground stops the scheduler, then drains the outbox worker.
func (sm *ServiceManager) StopBackground() {
	sm.Scheduler.Stop()
	sm.StopOutboxWorker()
}

// Ping checks the database connection.
func (sm *ServiceManager) Ping(ctx context.Context) error {
	return sm.db.PingContext(ctx)
}
