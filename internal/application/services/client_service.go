package services

import (
	"context"
	"strings"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/utils"
)

// ClientService manages the agency's customers.
type ClientService struct {
	repo ClientStore
	logs *ActivityLogService
}

func NewClientService(repo ClientStore, logs *ActivityLogService) *ClientService {
	return &ClientService{repo: repo, logs: logs}
}

func normalizeClient(c *models.Client) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return errors.NewValidationError("name", "name is required")
	}
	if !utils.IsValidEmail(c.Email) {
		return errors.NewValidationError("email", "invalid email address")
	}
	c.Email = utils.NormalizeEmail(c.Email)
	return nil
}

// Create stores a new client. The email must be unique.
func (s *ClientService) Create(ctx context.Context, c *models.Client, actorID string) (*models.Client, error) {
	if err := normalizeClient(c); err != nil {
		return nil, err
	}
	c.ID = utils.GenerateID()
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := s.logs.Record(ctx, EntityClient, c.ID, "created", "Cliente cadastrado: "+c.Name, actorID, nil); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	return s.repo.Get(ctx, id)
}

func (s *ClientService) List(ctx context.Context, f persistence.ClientFilter) ([]models.Client, error) {
	return s.repo.List(ctx, f)
}

// Update replaces the editable fields of a client.
func (s *ClientService) Update(ctx context.Context, id string, c *models.Client, actorID string) (*models.Client, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := normalizeClient(c); err != nil {
		return nil, err
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	if err := s.logs.Record(ctx, EntityClient, c.ID, "updated", "Cliente atualizado", actorID, nil); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.logs.Record(ctx, EntityClient, id, "deleted", "Cliente removido", actorID, nil)
}
