package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/service"
	"github.com/wb-unit/backend-go/internal/storage"
)

type ReportHandler struct {
	reportService *service.ReportService
	exportService *service.ExportService
}

func NewReportHandler(reportService *service.ReportService, exportService *service.ExportService) *ReportHandler {
	return &ReportHandler{reportService: reportService, exportService: exportService}
}

// GetRange returns the per-bundle profit roll-up for a date range.
func (h *ReportHandler) GetRange(c *gin.Context) {
	filter := domain.ReportFilter{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}

	report, err := h.reportService.Range(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to build range report")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetBundleVariants returns the per-variant breakdown of one bundle.
func (h *ReportHandler) GetBundleVariants(c *gin.Context) {
	bundleID, err := strconv.ParseInt(c.Param("imt_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid imt_id"})
		return
	}

	filter := domain.ReportFilter{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
	variants, err := h.reportService.BundleVariants(c.Request.Context(), bundleID, filter)
	if err != nil {
		log.Error().Err(err).Int64("bundle_id", bundleID).Msg("failed to build variant report")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imt_id": bundleID, "data": variants})
}

// GetBundleDaily returns the per-date breakdown of one bundle.
func (h *ReportHandler) GetBundleDaily(c *gin.Context) {
	bundleID, err := strconv.ParseInt(c.Param("imt_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid imt_id"})
		return
	}

	filter := domain.ReportFilter{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
	days, err := h.reportService.BundleDaily(c.Request.Context(), bundleID, filter)
	if err != nil {
		log.Error().Err(err).Int64("bundle_id", bundleID).Msg("failed to build daily report")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imt_id": bundleID, "data": days})
}

// ListExports lists the ledger workbooks mirrored to object storage.
func (h *ReportHandler) ListExports(c *gin.Context) {
	objects, err := h.exportService.ListExports(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list exports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	if objects == nil {
		objects = []storage.ObjectInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"data": objects})
}

// ExportLedger streams a date range as an xlsx download.
func (h *ReportHandler) ExportLedger(c *gin.Context) {
	start := c.Query("start_date")
	end := c.Query("end_date")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return
	}

	payload, filename, err := h.exportService.LedgerXLSX(c.Request.Context(), start, end)
	if err != nil {
		log.Error().Err(err).Msg("failed to export ledger")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}
