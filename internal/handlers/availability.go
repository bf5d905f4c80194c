package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"clinic-scheduler-server/internal/middleware"
	"clinic-scheduler-server/internal/models"
	"clinic-scheduler-server/internal/scheduling"
	"clinic-scheduler-server/internal/utils"
)

// AvailabilityHandler manages provider working-hour templates.
type AvailabilityHandler struct {
	Catalog *scheduling.Catalog
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(catalog *scheduling.Catalog) *AvailabilityHandler {
	return &AvailabilityHandler{Catalog: catalog}
}

// SetWindowsRequest represents the bulk replace request body.
type SetWindowsRequest struct {
	Windows []scheduling.WindowInput `json:"windows" binding:"required"`
}

// SetProviderWindows replaces a provider's entire weekly template.
// Providers may edit their own; admins may edit anyone's.
func (h *AvailabilityHandler) SetProviderWindows(c *gin.Context) {
	providerID := c.Param("providerId")
	if !h.canManage(c, providerID) {
		return
	}

	var req SetWindowsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	windows, err := h.Catalog.SetWindows(c.Request.Context(), providerID, req.Windows)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Availability windows replaced successfully", windows)
}

// GetProviderWindows returns a provider's windows, optionally filtered to
// one weekday via ?weekday=N.
func (h *AvailabilityHandler) GetProviderWindows(c *gin.Context) {
	providerID := c.Param("providerId")

	if weekdayStr := c.Query("weekday"); weekdayStr != "" {
		weekday, err := strconv.Atoi(weekdayStr)
		if err != nil {
			utils.BadRequest(c, "Invalid weekday, expected an integer 0-6")
			return
		}
		windows, err := h.Catalog.WindowsFor(c.Request.Context(), providerID, weekday)
		if err != nil {
			respondSchedulingError(c, err)
			return
		}
		utils.Success(c, "Availability windows fetched successfully", windows)
		return
	}

	windows, err := h.Catalog.WindowsForProvider(c.Request.Context(), providerID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch availability windows: "+err.Error())
		return
	}
	utils.Success(c, "Availability windows fetched successfully", windows)
}

// SeedDefaultWindows installs the Monday-Friday 09:00-17:00 template for a
// newly onboarded provider.
func (h *AvailabilityHandler) SeedDefaultWindows(c *gin.Context) {
	providerID := c.Param("providerId")
	if !h.canManage(c, providerID) {
		return
	}

	windows, err := h.Catalog.DefaultWindowsFor(c.Request.Context(), providerID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Created(c, "Default availability windows created", windows)
}

func (h *AvailabilityHandler) canManage(c *gin.Context, providerID string) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != providerID {
		utils.Forbidden(c, "You are not authorized to manage this provider's availability")
		return false
	}
	return true
}
