package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/service"
)

type BatchHandler struct {
	batchService *service.BatchService
}

func NewBatchHandler(batchService *service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

type createBatchRequest struct {
	VendorCode     string  `json:"vendor_code" binding:"required"`
	PurchasePrice  float64 `json:"purchase_price"`
	QuantityBought int     `json:"quantity_bought" binding:"required"`
	StartDate      string  `json:"start_date"`
}

// CreateBatch opens a new purchase batch, closing the vendor's previous
// active one.
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := domain.PurchaseBatch{
		VendorCode:     req.VendorCode,
		PurchasePrice:  req.PurchasePrice,
		QuantityBought: req.QuantityBought,
	}
	if req.StartDate != "" {
		start, ok := pipeline.ParseDay(req.StartDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		batch.StartDate = start
	}

	if err := h.batchService.Create(c.Request.Context(), &batch); err != nil {
		log.Error().Err(err).Str("vendor_code", req.VendorCode).Msg("failed to create batch")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// ListBatches returns all batches, optionally filtered by vendor code.
func (h *BatchHandler) ListBatches(c *gin.Context) {
	batches, err := h.batchService.List(c.Request.Context(), c.Query("vendor_code"))
	if err != nil {
		log.Error().Err(err).Msg("failed to list batches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(batches), "data": batches})
}

type updateBatchRequest struct {
	PurchasePrice  float64 `json:"purchase_price"`
	QuantityBought int     `json:"quantity_bought"`
	QuantitySold   int     `json:"quantity_sold"`
}

// UpdateBatch adjusts a batch's price and quantities.
func (h *BatchHandler) UpdateBatch(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	var req updateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := domain.PurchaseBatch{
		ID:             id,
		PurchasePrice:  req.PurchasePrice,
		QuantityBought: req.QuantityBought,
		QuantitySold:   req.QuantitySold,
	}
	if err := h.batchService.Update(c.Request.Context(), &batch); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		log.Error().Err(err).Int64("batch_id", id).Msg("failed to update batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update batch"})
		return
	}
	c.JSON(http.StatusOK, batch)
}

// DeleteBatch removes a batch.
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	if err := h.batchService.Delete(c.Request.Context(), id); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		log.Error().Err(err).Int64("batch_id", id).Msg("failed to delete batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete batch"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// CheckBatches deactivates batches whose stock is exhausted.
func (h *BatchHandler) CheckBatches(c *gin.Context) {
	deactivated, err := h.batchService.CheckDeactivations(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to check batches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check batches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deactivated": deactivated,
		"checked_at":  time.Now().UTC().Format(time.RFC3339),
	})
}
