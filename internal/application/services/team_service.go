package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/utils"
)

// TeamService manages the people assigned to project work.
type TeamService struct {
	repo TeamStore
}

func NewTeamService(repo TeamStore) *TeamService {
	return &TeamService{repo: repo}
}

func normalizeMember(m *models.TeamMember) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return errors.NewValidationError("name", "name is required")
	}
	if !utils.IsValidEmail(m.Email) {
		return errors.NewValidationError("email", "invalid email address")
	}
	m.Email = utils.NormalizeEmail(m.Email)
	if !models.IsValidTeamRole(m.Role) {
		return errors.NewValidationError("role", fmt.Sprintf("invalid role %q", m.Role))
	}
	return nil
}

func (s *TeamService) Create(ctx context.Context, m *models.TeamMember) (*models.TeamMember, error) {
	if err := normalizeMember(m); err != nil {
		return nil, err
	}
	m.ID = utils.GenerateID()
	m.IsActive = true
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *TeamService) Get(ctx context.Context, id string) (*models.TeamMember, error) {
	return s.repo.Get(ctx, id)
}

func (s *TeamService) List(ctx context.Context, activeOnly bool) ([]models.TeamMember, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *TeamService) Update(ctx context.Context, id string, m *models.TeamMember) (*models.TeamMember, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := normalizeMember(m); err != nil {
		return nil, err
	}
	m.ID = existing.ID
	m.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *TeamService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
