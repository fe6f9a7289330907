package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/service"
)

type CostHandler struct {
	costService   *service.CostService
	reportService *service.ReportService
}

func NewCostHandler(costService *service.CostService, reportService *service.ReportService) *CostHandler {
	return &CostHandler{costService: costService, reportService: reportService}
}

// UpdateCosts applies a partial cost override for a vendor code and replays
// the affected ledger history.
func (h *CostHandler) UpdateCosts(c *gin.Context) {
	var update domain.CostUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recomputed, err := h.costService.ApplyUpdate(c.Request.Context(), update)
	if err != nil {
		log.Error().Err(err).Str("vendor_code", update.VendorCode).Msg("failed to apply cost update")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.reportService.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"vendor_code":     update.VendorCode,
		"rows_recomputed": recomputed,
	})
}

// GetMissingCosts lists items whose cost model is still incomplete.
func (h *CostHandler) GetMissingCosts(c *gin.Context) {
	missing, err := h.reportService.MissingCosts(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list missing costs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list missing costs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(missing), "data": missing})
}
