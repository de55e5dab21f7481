package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/utils"
)

// EventService manages calendar entries.
type EventService struct {
	repo EventStore
}

func NewEventService(repo EventStore) *EventService {
	return &EventService{repo: repo}
}

func validateEvent(e *models.Event) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return errors.NewValidationError("title", "title is required")
	}
	if !models.IsValidEventType(e.Type) {
		return errors.NewValidationError("type", fmt.Sprintf("invalid event type %q", e.Type))
	}
	if e.StartsAt.IsZero() {
		return errors.NewValidationError("starts_at", "start time is required")
	}
	if e.EndsAt != nil && e.EndsAt.Before(e.StartsAt) {
		return errors.NewValidationError("ends_at", "end time is before the start time")
	}
	return nil
}

func (s *EventService) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	if err := validateEvent(e); err != nil {
		return nil, err
	}
	e.ID = utils.GenerateID()
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.repo.Get(ctx, id)
}

func (s *EventService) List(ctx context.Context, f persistence.EventFilter) ([]models.Event, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, errors.NewValidationError("to", "range end is before its start")
	}
	return s.repo.List(ctx, f)
}

func (s *EventService) Update(ctx context.Context, id string, e *models.Event) (*models.Event, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateEvent(e); err != nil {
		return nil, err
	}
	e.ID = existing.ID
	e.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
