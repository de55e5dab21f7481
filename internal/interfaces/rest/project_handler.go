package rest

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
)

// ProjectService defines the project operations used by ProjectHandler.
type ProjectService interface {
	Create(ctx context.Context, in services.ProjectInput, actorID string) (*models.Project, error)
	Get(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, f persistence.ProjectFilter) ([]models.Project, error)
	Update(ctx context.Context, id string, in services.ProjectInput, actorID string) (*models.Project, error)
	Delete(ctx context.Context, id, actorID string) error
	UpdateProgress(ctx context.Context, id string, percent int, actorID string) (*models.Project, error)
	Transition(ctx context.Context, id string, action workflow.ProjectAction, actorID string) (*models.Project, error)
	MarkDelivered(ctx context.Context, id, actorID string) (*models.Project, error)

	CreateTask(ctx context.Context, projectID string, t *models.Task) (*models.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)
	UpdateTask(ctx context.Context, projectID, taskID string, in *models.Task) (*models.Task, error)
	DeleteTask(ctx context.Context, projectID, taskID string) error

	CreateMilestone(ctx context.Context, projectID string, m *models.Milestone) (*models.Milestone, error)
	ListMilestones(ctx context.Context, projectID string) ([]models.Milestone, error)
	UpdateMilestone(ctx context.Context, projectID, milestoneID string, in *models.Milestone) (*models.Milestone, error)
	DeleteMilestone(ctx context.Context, projectID, milestoneID string) error
}

type ProjectHandler struct {
	svc ProjectService
}

func NewProjectHandler(svc ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// ProgressRequest sets the completion percentage of a project.
type ProgressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

// TransitionRequest applies a manual workflow action.
type TransitionRequest struct {
	Action workflow.ProjectAction `json:"action" binding:"required"`
}

// ListProjects handles GET /api/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	HandleGetEnvelope(c, "projects", func() (interface{}, error) {
		limit, offset, err := pagination(c)
		if err != nil {
			return nil, err
		}
		return h.svc.List(c.Request.Context(), persistence.ProjectFilter{
			Status:   c.Query("status"),
			ClientID: c.Query("client_id"),
			Limit:    limit,
			Offset:   offset,
		})
	})
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	HandleGetEnvelope(c, "project", func() (interface{}, error) {
		return h.svc.Get(c.Request.Context(), c.Param("id"))
	})
}

// CreateProject handles POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var in services.ProjectInput
	HandleCreateEnvelope(c, "project", "Project created successfully", &in, func() (interface{}, error) {
		return h.svc.Create(c.Request.Context(), in, actorID(c))
	})
}

// UpdateProject handles PUT /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var in services.ProjectInput
	HandleUpdateEnvelope(c, "project", "Project updated successfully", &in, func() (interface{}, error) {
		return h.svc.Update(c.Request.Context(), c.Param("id"), in, actorID(c))
	})
}

// DeleteProject handles DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	HandleDeleteEnvelope(c, "Project deleted successfully", func() error {
		return h.svc.Delete(c.Request.Context(), c.Param("id"), actorID(c))
	})
}

// UpdateProgress handles POST /api/projects/:id/progress
func (h *ProjectHandler) UpdateProgress(c *gin.Context) {
	var req ProgressRequest
	if !BindJSON(c, &req) {
		return
	}
	HandleUpdateEnvelope(c, "project", "Progress updated", nil, func() (interface{}, error) {
		return h.svc.UpdateProgress(c.Request.Context(), c.Param("id"), *req.Progress, actorID(c))
	})
}

// Transition handles POST /api/projects/:id/transition
func (h *ProjectHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if !BindJSON(c, &req) {
		return
	}
	HandleUpdateEnvelope(c, "project", "Project updated", nil, func() (interface{}, error) {
		return h.svc.Transition(c.Request.Context(), c.Param("id"), req.Action, actorID(c))
	})
}

// Deliver handles POST /api/projects/:id/deliver
func (h *ProjectHandler) Deliver(c *gin.Context) {
	HandleUpdateEnvelope(c, "project", "Project delivered", nil, func() (interface{}, error) {
		return h.svc.MarkDelivered(c.Request.Context(), c.Param("id"), actorID(c))
	})
}

// ListTasks handles GET /api/projects/:id/tasks
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	HandleGetEnvelope(c, "tasks", func() (interface{}, error) {
		return h.svc.ListTasks(c.Request.Context(), c.Param("id"))
	})
}

// CreateTask handles POST /api/projects/:id/tasks
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	var t models.Task
	HandleCreateEnvelope(c, "task", "Task created successfully", &t, func() (interface{}, error) {
		return h.svc.CreateTask(c.Request.Context(), c.Param("id"), &t)
	})
}

// UpdateTask handles PUT /api/projects/:id/tasks/:taskId
func (h *ProjectHandler) UpdateTask(c *gin.Context) {
	var t models.Task
	HandleUpdateEnvelope(c, "task", "Task updated successfully", &t, func() (interface{}, error) {
		return h.svc.UpdateTask(c.Request.Context(), c.Param("id"), c.Param("taskId"), &t)
	})
}

// DeleteTask handles DELETE /api/projects/:id/tasks/:taskId
func (h *ProjectHandler) DeleteTask(c *gin.Context) {
	HandleDeleteEnvelope(c, "Task deleted successfully", func() error {
		return h.svc.DeleteTask(c.Request.Context(), c.Param("id"), c.Param("taskId"))
	})
}

// ListMilestones handles GET /api/projects/:id/milestones
func (h *ProjectHandler) ListMilestones(c *gin.Context) {
	HandleGetEnvelope(c, "milestones", func() (interface{}, error) {
		return h.svc.ListMilestones(c.Request.Context(), c.Param("id"))
	})
}

// CreateMilestone handles POST /api/projects/:id/milestones
func (h *ProjectHandler) CreateMilestone(c *gin.Context) {
	var m models.Milestone
	HandleCreateEnvelope(c, "milestone", "Milestone created successfully", &m, func() (interface{}, error) {
		return h.svc.CreateMilestone(c.Request.Context(), c.Param("id"), &m)
	})
}

// UpdateMilestone handles PUT /api/projects/:id/milestones/:milestoneId
func (h *ProjectHandler) UpdateMilestone(c *gin.Context) {
	var m models.Milestone
	HandleUpdateEnvelope(c, "milestone", "Milestone updated successfully", &m, func() (interface{}, error) {
		return h.svc.UpdateMilestone(c.Request.Context(), c.Param("id"), c.Param("milestoneId"), &m)
	})
}

// DeleteMilestone handles DELETE /api/projects/:id/milestones/:milestoneId
func (h *ProjectHandler) DeleteMilestone(c *gin.Context) {
	HandleDeleteEnvelope(c, "Milestone deleted successfully", func() error {
		return h.svc.DeleteMilestone(c.Request.Context(), c.Param("id"), c.Param("milestoneId"))
	})
}
