package rest

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/domain/models"
)

type TeamService interface {
	Create(ctx context.Context, m *models.TeamMember) (*models.TeamMember, error)
	Get(ctx context.Context, id string) (*models.TeamMember, error)
	List(ctx context.Context, activeOnly bool) ([]models.TeamMember, error)
	Update(ctx context.Context, id string, m *models.TeamMember) (*models.TeamMember, error)
	Delete(ctx context.Context, id string) error
}

type TeamHandler struct {
	svc TeamService
}

func NewTeamHandler(svc TeamService) *TeamHandler {
	return &TeamHandler{svc: svc}
}

// ListMembers handles GET /api/team
func (h *TeamHandler) ListMembers(c *gin.Context) {
	HandleGetEnvelope(c, "members", func() (interface{}, error) {
		return h.svc.List(c.Request.Context(), c.Query("active") == "true")
	})
}

func (h *TeamHandler) GetMember(c *gin.Context) {
	HandleGetEnvelope(c, "member", func() (interface{}, error) {
		return h.svc.Get(c.Request.Context(), c.Param("id"))
	})
}

func (h *TeamHandler) CreateMember(c *gin.Context) {
	var m models.TeamMember
	HandleCreateEnvelope(c, "member", "Team member created successfully", &m, func() (interface{}, error) {
		return h.svc.Create(c.Request.Context(), &m)
	})
}

func (h *TeamHandler) UpdateMember(c *gin.Context) {
	var m models.TeamMember
	HandleUpdateEnvelope(c, "member", "Team member updated successfully", &m, func() (interface{}, error) {
		return h.svc.Update(c.Request.Context(), c.Param("id"), &m)
	})
}

func (h *TeamHandler) DeleteMember(c *gin.Context) {
	HandleDeleteEnvelope(c, "Team member deleted successfully", func() error {
		return h.svc.Delete(c.Request.Context(), c.Param("id"))
	})
}
