package persistence

// Table names
const (
	TableUser          = "users"
	TableSession       = "sessions"
	TableClient        = "clients"
	TableTeamMember    = "team_members"
	TableBudget        = "budgets"
	TableProject       = "projects"
	TablePayment       = "payments"
	TableTask          = "tasks"
	TableMilestone     = "milestones"
	TableContract      = "contracts"
	TableEvent         = "events"
	TableNotification  = "notifications"
	TableActivityLog   = "activity_logs"
	TableWebhookEvent  = "webhook_events"
	TableOutboxEvent   = "outbox_events"
	TableSchedulerLock = "scheduler_locks"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// clampLimit keeps list page sizes within bounds.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
