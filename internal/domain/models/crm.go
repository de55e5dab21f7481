package models

import "time"

// Client is a customer of the agency.
type Client struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name" binding:"required"`
	Email     string    `db:"email" json:"email" binding:"required"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Company   *string   `db:"company" json:"company,omitempty"`
	Document  *string   `db:"document" json:"document,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Team member roles
const (
	TeamRoleDeveloper = "developer"
	TeamRoleDesigner  = "designer"
	TeamRoleManager   = "manager"
	TeamRoleQA        = "qa"
)

// IsValidTeamRole reports whether role is one of the known team roles.
func IsValidTeamRole(role string) bool {
	switch role {
	case TeamRoleDeveloper, TeamRoleDesigner, TeamRoleManager, TeamRoleQA:
		return true
	}
	return false
}

// TeamMember is someone who works on projects.
type TeamMember struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name" binding:"required"`
	Email     string    `db:"email" json:"email" binding:"required"`
	Role      string    `db:"role" json:"role" binding:"required"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Notification is an in-app message for a user.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Link      *string   `db:"link" json:"link,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ActivityLog is an append-only record of something that happened to an entity.
type ActivityLog struct {
	ID         string    `db:"id" json:"id"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	Action     string    `db:"action" json:"action"`
	Message    string    `db:"message" json:"message"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Metadata   JSONMap   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Calendar event types
const (
	EventTypeMeeting  = "meeting"
	EventTypeDelivery = "delivery"
	EventTypeDeadline = "deadline"
)

// IsValidEventType reports whether t is a known calendar event type.
func IsValidEventType(t string) bool {
	switch t {
	case EventTypeMeeting, EventTypeDelivery, EventTypeDeadline:
		return true
	}
	return false
}

// Event is a calendar entry.
type Event struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title" binding:"required"`
	Description *string    `db:"description" json:"description,omitempty"`
	Type        string     `db:"type" json:"type" binding:"required"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at" binding:"required"`
	EndsAt      *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	ProjectID   *string    `db:"project_id" json:"project_id,omitempty"`
	ClientID    *string    `db:"client_id" json:"client_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
