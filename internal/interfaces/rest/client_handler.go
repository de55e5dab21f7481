package rest

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
)

// ClientService defines the client operations used by ClientHandler.
type ClientService interface {
	Create(ctx context.Context, c *models.Client, actorID string) (*models.Client, error)
	Get(ctx context.Context, id string) (*models.Client, error)
	List(ctx context.Context, f persistence.ClientFilter) ([]models.Client, error)
	Update(ctx context.Context, id string, c *models.Client, actorID string) (*models.Client, error)
	Delete(ctx context.Context, id, actorID string) error
}

type ClientHandler struct {
	svc ClientService
}

func NewClientHandler(svc ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

// ListClients handles GET /api/clients
func (h *ClientHandler) ListClients(c *gin.Context) {
	HandleGetEnvelope(c, "clients", func() (interface{}, error) {
		limit, offset, err := pagination(c)
		if err != nil {
			return nil, err
		}
		return h.svc.List(c.Request.Context(), persistence.ClientFilter{
			Search: c.Query("q"),
			Limit:  limit,
			Offset: offset,
		})
	})
}

// GetClient handles GET /api/clients/:id
func (h *ClientHandler) GetClient(c *gin.Context) {
	HandleGetEnvelope(c, "client", func() (interface{}, error) {
		return h.svc.Get(c.Request.Context(), c.Param("id"))
	})
}

// CreateClient handles POST /api/clients
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var client models.Client
	HandleCreateEnvelope(c, "client", "Client created successfully", &client, func() (interface{}, error) {
		return h.svc.Create(c.Request.Context(), &client, actorID(c))
	})
}

// UpdateClient handles PUT /api/clients/:id
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var client models.Client
	HandleUpdateEnvelope(c, "client", "Client updated successfully", &client, func() (interface{}, error) {
		return h.svc.Update(c.Request.Context(), c.Param("id"), &client, actorID(c))
	})
}

// DeleteClient handles DELETE /api/clients/:id
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	HandleDeleteEnvelope(c, "Client deleted successfully", func() error {
		return h.svc.Delete(c.Request.Context(), c.Param("id"), actorID(c))
	})
}
