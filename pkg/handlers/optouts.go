package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/volunteerplanner/planner-api/pkg/database"
)

// SetOptOut records a user or group as unavailable for a shift. Setting
// can_work back to true removes the record; absence means "available".
func (h *Handler) SetOptOut(c *gin.Context) {
	var req struct {
		UserID  *uint `json:"user_id"`
		GroupID *uint `json:"group_id"`
		ShiftID uint  `json:"shift_id" binding:"required"`
		CanWork *bool `json:"can_work" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.UserID == nil) == (req.GroupID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of user_id and group_id is required"})
		return
	}

	var shift database.Shift
	if err := h.DB.First(&shift, req.ShiftID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}
	if req.UserID != nil {
		var user database.User
		if err := h.DB.First(&user, *req.UserID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
	}
	if req.GroupID != nil {
		var group database.Group
		if err := h.DB.First(&group, *req.GroupID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
	}

	// Replace any previous record for the same actor and shift.
	query := h.DB.Where("shift_id = ?", req.ShiftID)
	if req.UserID != nil {
		query = query.Where("user_id = ?", *req.UserID)
	} else {
		query = query.Where("group_id = ?", *req.GroupID)
	}
	query.Delete(&database.OptOut{})

	if !*req.CanWork {
		optOut := database.OptOut{UserID: req.UserID, GroupID: req.GroupID, ShiftID: req.ShiftID}
		if err := h.DB.Create(&optOut).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save preference"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Preference saved"})
}

// ListUserOptOuts returns the opt-out records for one user
func (h *Handler) ListUserOptOuts(c *gin.Context) {
	var user database.User
	if err := h.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var optOuts []database.OptOut
	h.DB.Where("user_id = ?", user.ID).Order("shift_id").Find(&optOuts)
	c.JSON(http.StatusOK, gin.H{"opt_outs": optOuts})
}

// ListShiftOptOuts returns every opt-out affecting one shift
func (h *Handler) ListShiftOptOuts(c *gin.Context) {
	var shift database.Shift
	if err := h.DB.First(&shift, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}

	var optOuts []database.OptOut
	h.DB.Where("shift_id = ?", shift.ID).Order("id").Find(&optOuts)
	c.JSON(http.StatusOK, gin.H{"opt_outs": optOuts})
}
