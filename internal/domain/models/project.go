package models

import (
	"time"

	"github.com/devstudio/backoffice/internal/domain/workflow"
)

// Project is paid work being delivered to a client.
type Project struct {
	ID               string                 `db:"id" json:"id"`
	ClientID         string                 `db:"client_id" json:"client_id"`
	BudgetID         *string                `db:"budget_id" json:"budget_id,omitempty"`
	Name             string                 `db:"name" json:"name"`
	Description      *string                `db:"description" json:"description,omitempty"`
	Status           workflow.ProjectStatus `db:"status" json:"status"`
	Progress         int                    `db:"progress" json:"progress"`
	NotifiedProgress int                    `db:"notified_progress" json:"notified_progress"`
	TotalValue       int64                  `db:"total_value" json:"total_value"`
	StartDate        *time.Time             `db:"start_date" json:"start_date,omitempty"`
	DueDate          *time.Time             `db:"due_date" json:"due_date,omitempty"`
	DeliveryDate     *time.Time             `db:"delivery_date" json:"delivery_date,omitempty"`
	DeliveredAt      *time.Time             `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt        time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time              `db:"updated_at" json:"updated_at"`
}

// Task statuses
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

// Task priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a unit of work inside a project.
type Task struct {
	ID          string     `db:"id" json:"id"`
	ProjectID   string     `db:"project_id" json:"project_id"`
	Title       string     `db:"title" json:"title" binding:"required"`
	Description *string    `db:"description" json:"description,omitempty"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	AssigneeID  *string    `db:"assignee_id" json:"assignee_id,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Milestone is a dated checkpoint of a project.
type Milestone struct {
	ID          string     `db:"id" json:"id"`
	ProjectID   string     `db:"project_id" json:"project_id"`
	Title       string     `db:"title" json:"title" binding:"required"`
	DueDate     time.Time  `db:"due_date" json:"due_date" binding:"required"`
	IsCompleted bool       `db:"is_completed" json:"is_completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
