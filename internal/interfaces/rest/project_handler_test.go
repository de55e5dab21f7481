package rest_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/internal/interfaces/rest"
	"github.com/devstudio/backoffice/pkg/errors"
)

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) project(args mock.Arguments) (*models.Project, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) Create(ctx context.Context, in services.ProjectInput, actorID string) (*models.Project, error) {
	return m.project(m.Called(ctx, in, actorID))
}

func (m *MockProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	return m.project(m.Called(ctx, id))
}

func (m *MockProjectService) List(ctx context.Context, f persistence.ProjectFilter) ([]models.Project, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockProjectService) Update(ctx context.Context, id string, in services.ProjectInput, actorID string) (*models.Project, error) {
	return m.project(m.Called(ctx, id, in, actorID))
}

func (m *MockProjectService) Delete(ctx context.Context, id, actorID string) error {
	return m.Called(ctx, id, actorID).Error(0)
}

func (m *MockProjectService) UpdateProgress(ctx context.Context, id string, percent int, actorID string) (*models.Project, error) {
	return m.project(m.Called(ctx, id, percent, actorID))
}

func (m *MockProjectService) Transition(ctx context.Context, id string, action workflow.ProjectAction, actorID string) (*models.Project, error) {
	return m.project(m.Called(ctx, id, action, actorID))
}

func (m *MockProjectService) MarkDelivered(ctx context.Context, id, actorID string) (*models.Project, error) {
	return m.project(m.Called(ctx, id, actorID))
}

func (m *MockProjectService) CreateTask(ctx context.Context, projectID string, t *models.Task) (*models.Task, error) {
	args := m.Called(ctx, projectID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockProjectService) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockProjectService) UpdateTask(ctx context.Context, projectID, taskID string, in *models.Task) (*models.Task, error) {
	args := m.Called(ctx, projectID, taskID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockProjectService) DeleteTask(ctx context.Context, projectID, taskID string) error {
	return m.Called(ctx, projectID, taskID).Error(0)
}

func (m *MockProjectService) CreateMilestone(ctx context.Context, projectID string, ms *models.Milestone) (*models.Milestone, error) {
	args := m.Called(ctx, projectID, ms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *MockProjectService) ListMilestones(ctx context.Context, projectID string) ([]models.Milestone, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Milestone), args.Error(1)
}

func (m *MockProjectService) UpdateMilestone(ctx context.Context, projectID, milestoneID string, in *models.Milestone) (*models.Milestone, error) {
	args := m.Called(ctx, projectID, milestoneID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *MockProjectService) DeleteMilestone(ctx context.Context, projectID, milestoneID string) error {
	return m.Called(ctx, projectID, milestoneID).Error(0)
}

func TestProjectHandler_UpdateProgress(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockProjectService)
		handler := rest.NewProjectHandler(svc)
		c, w := newTestContext(http.MethodPost, "/api/projects/p-1/progress", map[string]int{"progress": 50}, "id", "p-1")
		svc.On("UpdateProgress", mock.Anything, "p-1", 50, "u-1").
			Return(&models.Project{ID: "p-1", Status: workflow.ProjectInProgress, Progress: 50}, nil).Once()

		handler.UpdateProgress(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 50, decodeBody(t, w)["project"].(map[string]interface{})["progress"])
	})

	t.Run("Zero is a valid value", func(t *testing.T) {
		svc := new(MockProjectService)
		handler := rest.NewProjectHandler(svc)
		c, w := newTestContext(http.MethodPost, "/api/projects/p-1/progress", map[string]int{"progress": 0}, "id", "p-1")
		svc.On("UpdateProgress", mock.Anything, "p-1", 0, "u-1").Return(&models.Project{ID: "p-1"}, nil).Once()

		handler.UpdateProgress(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Missing progress", func(t *testing.T) {
		svc := new(MockProjectService)
		handler := rest.NewProjectHandler(svc)
		c, w := newTestContext(http.MethodPost, "/api/projects/p-1/progress", map[string]int{}, "id", "p-1")

		handler.UpdateProgress(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Out of range", func(t *testing.T) {
		svc := new(MockProjectService)
		handler := rest.NewProjectHandler(svc)
		c, w := newTestContext(http.MethodPost, "/api/projects/p-1/progress", map[string]int{"progress": 120}, "id", "p-1")
		svc.On("UpdateProgress", mock.Anything, "p-1", 120, "u-1").
			Return(nil, errors.NewValidationError("progress", "must be between 0 and 100")).Once()

		handler.UpdateProgress(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProjectHandler_Transition(t *testing.T) {
	t.Run("Hold", func(t *testing.T) {
		svc := new(MockProjectService)
		handler := rest.NewProjectHandler(svc)
		c, w := newTestContext(http.MethodPost, "/api/projects/p-1/transition", map[string]string{"action": "hold"}, "id", "p-1")
		svc.On("Transition", mock.Anything, "p-1", workflow.ProjectHold, "u-1").
			Return(&models.Project{ID: "p-1", Status: workflow.ProjectOnHold}, nil).Once()

		handler.Transition(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "on_hold", decodeBody(t, w)["project"].(map[string]interface{})["status"])
	})

	t.Run("Not allowed from current status", func(t *testing.T) {
		svc := new(MockProjectService)
		handler := rest.NewProjectHandler(svc)
		c, w := newTestContext(http.MethodPost, "/api/projects/p-1/transition", map[string]string{"action": "deliver"}, "id", "p-1")
		svc.On("Transition", mock.Anything, "p-1", workflow.ProjectDeliver, "u-1").
			Return(nil, errors.NewInvalidTransitionError("project", "planning", "deliver")).Once()

		handler.Transition(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestProjectHandler_Tasks(t *testing.T) {
	svc := new(MockProjectService)
	handler := rest.NewProjectHandler(svc)

	t.Run("Create", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/api/projects/p-1/tasks", map[string]string{"title": "Layout"}, "id", "p-1")
		svc.On("CreateTask", mock.Anything, "p-1", mock.MatchedBy(func(task *models.Task) bool {
			return task.Title == "Layout"
		})).Return(&models.Task{ID: "t-1", Title: "Layout"}, nil).Once()

		handler.CreateTask(c)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Delete unknown", func(t *testing.T) {
		c, w := newTestContext(http.MethodDelete, "/api/projects/p-1/tasks/t-9", nil, "id", "p-1", "taskId", "t-9")
		svc.On("DeleteTask", mock.Anything, "p-1", "t-9").Return(errors.NewNotFoundError("task", "t-9")).Once()

		handler.DeleteTask(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	svc.AssertExpectations(t)
}
