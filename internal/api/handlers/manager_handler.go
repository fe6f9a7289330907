package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/service"
)

type ManagerHandler struct {
	managerService *service.ManagerService
}

func NewManagerHandler(managerService *service.ManagerService) *ManagerHandler {
	return &ManagerHandler{managerService: managerService}
}

// AssignManager records a manager for an item or a bundle.
func (h *ManagerHandler) AssignManager(c *gin.Context) {
	var assignment domain.ManagerAssignment
	if err := c.ShouldBindJSON(&assignment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.managerService.Assign(c.Request.Context(), assignment); err != nil {
		log.Error().Err(err).Str("name", assignment.Name).Msg("failed to assign manager")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
