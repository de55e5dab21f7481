package rest_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/interfaces/rest"
	"github.com/devstudio/backoffice/pkg/errors"
)

type MockContractService struct {
	mock.Mock
}

func (m *MockContractService) contract(args mock.Arguments) (*models.Contract, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *MockContractService) Generate(ctx context.Context, budgetID, actorID string) (*models.Contract, error) {
	return m.contract(m.Called(ctx, budgetID, actorID))
}

func (m *MockContractService) Get(ctx context.Context, id string) (*models.Contract, error) {
	return m.contract(m.Called(ctx, id))
}

func (m *MockContractService) List(ctx context.Context, budgetID string, limit, offset int) ([]models.Contract, error) {
	args := m.Called(ctx, budgetID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Contract), args.Error(1)
}

func (m *MockContractService) RenderPDF(ctx context.Context, id string, w io.Writer) (*models.Contract, error) {
	args := m.Called(ctx, id, w)
	if fn, ok := args.Get(2).(func(io.Writer)); ok {
		fn(w)
	}
	return m.contract(args)
}

func (m *MockContractService) MarkSent(ctx context.Context, id, actorID string) (*models.Contract, error) {
	return m.contract(m.Called(ctx, id, actorID))
}

func (m *MockContractService) MarkSigned(ctx context.Context, id, actorID string) (*models.Contract, error) {
	return m.contract(m.Called(ctx, id, actorID))
}

func TestContractHandler_DownloadPDF(t *testing.T) {
	t.Run("Streams the document", func(t *testing.T) {
		svc := new(MockContractService)
		handler := rest.NewContractHandler(svc)
		c, w := newTestContext(http.MethodGet, "/api/contracts/k-1/pdf", nil, "id", "k-1")
		svc.On("RenderPDF", mock.Anything, "k-1", mock.Anything).
			Return(&models.Contract{ID: "k-1", Number: "CT-2026-0001"}, nil, func(w io.Writer) {
				_, _ = w.Write([]byte("%PDF-1.3 fake"))
			}).Once()

		handler.DownloadPDF(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="CT-2026-0001.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "%PDF-1.3 fake", w.Body.String())
	})

	t.Run("Unknown contract answers JSON", func(t *testing.T) {
		svc := new(MockContractService)
		handler := rest.NewContractHandler(svc)
		c, w := newTestContext(http.MethodGet, "/api/contracts/k-9/pdf", nil, "id", "k-9")
		svc.On("RenderPDF", mock.Anything, "k-9", mock.Anything).
			Return(nil, errors.NewNotFoundError("contract", "k-9"), nil).Once()

		handler.DownloadPDF(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decodeBody(t, w)["code"])
	})
}

func TestContractHandler_GenerateContract(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockContractService)
		handler := rest.NewContractHandler(svc)
		c, w := newTestContext(http.MethodPost, "/api/contracts", map[string]string{"budget_id": "b-1"})
		svc.On("Generate", mock.Anything, "b-1", "u-1").
			Return(&models.Contract{ID: "k-1", BudgetID: "b-1", Status: "draft"}, nil).Once()

		handler.GenerateContract(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "draft", decodeBody(t, w)["contract"].(map[string]interface{})["status"])
	})

	t.Run("Budget required", func(t *testing.T) {
		svc := new(MockContractService)
		handler := rest.NewContractHandler(svc)
		c, w := newTestContext(http.MethodPost, "/api/contracts", map[string]string{})

		handler.GenerateContract(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
