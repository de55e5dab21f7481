package rest

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
)

// EventService manages calendar entries.
type EventService interface {
	Create(ctx context.Context, e *models.Event) (*models.Event, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, f persistence.EventFilter) ([]models.Event, error)
	Update(ctx context.Context, id string, e *models.Event) (*models.Event, error)
	Delete(ctx context.Context, id string) error
}

type EventHandler struct {
	svc EventService
}

func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// ListEvents handles GET /api/events?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *EventHandler) ListEvents(c *gin.Context) {
	HandleGetEnvelope(c, "events", func() (interface{}, error) {
		from, err := queryDate(c, "from")
		if err != nil {
			return nil, err
		}
		to, err := queryDate(c, "to")
		if err != nil {
			return nil, err
		}
		limit, err := queryInt(c, "limit", 200)
		if err != nil {
			return nil, err
		}
		return h.svc.List(c.Request.Context(), persistence.EventFilter{
			From:      from,
			To:        to,
			ProjectID: c.Query("project_id"),
			Limit:     limit,
		})
	})
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	HandleGetEnvelope(c, "event", func() (interface{}, error) {
		return h.svc.Get(c.Request.Context(), c.Param("id"))
	})
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var e models.Event
	HandleCreateEnvelope(c, "event", "Event created successfully", &e, func() (interface{}, error) {
		return h.svc.Create(c.Request.Context(), &e)
	})
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var e models.Event
	HandleUpdateEnvelope(c, "event", "Event updated successfully", &e, func() (interface{}, error) {
		return h.svc.Update(c.Request.Context(), c.Param("id"), &e)
	})
}

func (h *EventHandler) DeleteEvent(c *gin.Context) {
	HandleDeleteEnvelope(c, "Event deleted successfully", func() error {
		return h.svc.Delete(c.Request.Context(), c.Param("id"))
	})
}
