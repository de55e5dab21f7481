package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/pkg/pricing"
)

// Estimator prices a quote request.
type Estimator interface {
	Estimate(in pricing.EstimateInput) (*pricing.Estimate, error)
}

// PricingHandler serves the public price table and estimates.
type PricingHandler struct {
	estimator Estimator
}

func NewPricingHandler(estimator Estimator) *PricingHandler {
	return &PricingHandler{estimator: estimator}
}

// GetCatalog handles GET /api/pricing/catalog
func (h *PricingHandler) GetCatalog(c *gin.Context) {
	HandleGetEnvelope(c, "catalog", func() (interface{}, error) {
		return pricing.Catalog(), nil
	})
}

// Estimate handles POST /api/pricing/estimate
func (h *PricingHandler) Estimate(c *gin.Context) {
	var in pricing.EstimateInput
	if !BindJSON(c, &in) {
		return
	}
	HandleGetEnvelope(c, "estimate", func() (interface{}, error) {
		return h.estimator.Estimate(in)
	})
}
