package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/domain/models"
)

type ContractService interface {
	Generate(ctx context.Context, budgetID, actorID string) (*models.Contract, error)
	Get(ctx context.Context, id string) (*models.Contract, error)
	List(ctx context.Context, budgetID string, limit, offset int) ([]models.Contract, error)
	RenderPDF(ctx context.Context, id string, w io.Writer) (*models.Contract, error)
	MarkSent(ctx context.Context, id, actorID string) (*models.Contract, error)
	MarkSigned(ctx context.Context, id, actorID string) (*models.Contract, error)
}

type ContractHandler struct {
	svc ContractService
}

func NewContractHandler(svc ContractService) *ContractHandler {
	return &ContractHandler{svc: svc}
}

// GenerateContractRequest names the budget to draft a contract for.
type GenerateContractRequest struct {
	BudgetID string `json:"budget_id" binding:"required"`
}

// ListContracts handles GET /api/contracts
func (h *ContractHandler) ListContracts(c *gin.Context) {
	HandleGetEnvelope(c, "contracts", func() (interface{}, error) {
		limit, offset, err := pagination(c)
		if err != nil {
			return nil, err
		}
		return h.svc.List(c.Request.Context(), c.Query("budget_id"), limit, offset)
	})
}

func (h *ContractHandler) GetContract(c *gin.Context) {
	HandleGetEnvelope(c, "contract", func() (interface{}, error) {
		return h.svc.Get(c.Request.Context(), c.Param("id"))
	})
}

// GenerateContract handles POST /api/contracts
func (h *ContractHandler) GenerateContract(c *gin.Context) {
	var req GenerateContractRequest
	HandleCreateEnvelope(c, "contract", "Contract generated successfully", &req, func() (interface{}, error) {
		return h.svc.Generate(c.Request.Context(), req.BudgetID, actorID(c))
	})
}

// DownloadPDF handles GET /api/contracts/:id/pdf. The document is rendered
// into memory first so errors still produce a JSON response.
func (h *ContractHandler) DownloadPDF(c *gin.Context) {
	var buf bytes.Buffer
	contract, err := h.svc.RenderPDF(c.Request.Context(), c.Param("id"), &buf)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, contract.Number))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// MarkSent handles POST /api/contracts/:id/sent
func (h *ContractHandler) MarkSent(c *gin.Context) {
	HandleUpdateEnvelope(c, "contract", "Contract sent", nil, func() (interface{}, error) {
		return h.svc.MarkSent(c.Request.Context(), c.Param("id"), actorID(c))
	})
}

// MarkSigned handles POST /api/contracts/:id/signed
func (h *ContractHandler) MarkSigned(c *gin.Context) {
	HandleUpdateEnvelope(c, "contract", "Contract signed", nil, func() (interface{}, error) {
		return h.svc.MarkSigned(c.Request.Context(), c.Param("id"), actorID(c))
	})
}
