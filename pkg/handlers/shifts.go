package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/volunteerplanner/planner-api/pkg/database"
)

var errShiftFull = errors.New("shift capacity exceeded")

type shiftRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Capacity    *int      `json:"capacity"`
}

// CreateShift creates a new shift
func (h *Handler) CreateShift(c *gin.Context) {
	var req shiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.EndTime.After(req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be after start_time"})
		return
	}
	if req.Capacity != nil && *req.Capacity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must not be negative"})
		return
	}

	shift := database.Shift{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Capacity:    req.Capacity,
		IsActive:    true,
	}

	if err := h.DB.Create(&shift).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create shift"})
		return
	}

	c.JSON(http.StatusCreated, shift)
}

// ListShifts returns active shifts, optionally filtered by time range, user
// or group.
func (h *Handler) ListShifts(c *gin.Context) {
	query := h.DB.Where("is_active = ?", true).Order("start_time, id")

	if startStr := c.Query("start_time"); startStr != "" {
		if endStr := c.Query("end_time"); endStr != "" {
			start, err1 := time.Parse(time.RFC3339, startStr)
			end, err2 := time.Parse(time.RFC3339, endStr)
			if err1 != nil || err2 != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "start_time and end_time must be RFC3339"})
				return
			}
			// A shift is in range if it overlaps the range at all.
			query = query.Where("end_time > ? AND start_time < ?", start, end)
		}
	}

	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("id IN (?)",
			h.DB.Model(&database.Assignment{}).Select("shift_id").Where("user_id = ?", userID))
	}

	if groupID := c.Query("group_id"); groupID != "" {
		query = query.Where("id IN (?)",
			h.DB.Model(&database.Assignment{}).Select("shift_id").
				Joins("JOIN users ON users.id = assignments.user_id").
				Where("users.group_id = ?", groupID))
	}

	var shifts []database.Shift
	if err := query.Find(&shifts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list shifts"})
		return
	}
	c.JSON(http.StatusOK, shifts)
}

// GetShift returns one shift with its current assignments
func (h *Handler) GetShift(c *gin.Context) {
	id := c.Param("id")

	var shift database.Shift
	if err := h.DB.First(&shift, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}

	var assignments []database.Assignment
	h.DB.Where("shift_id = ?", shift.ID).Order("id").Find(&assignments)

	c.JSON(http.StatusOK, gin.H{
		"shift":       shift,
		"assignments": assignments,
	})
}

// UpdateShift updates a shift
func (h *Handler) UpdateShift(c *gin.Context) {
	id := c.Param("id")

	var shift database.Shift
	if err := h.DB.First(&shift, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}

	var req shiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndTime.After(req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be after start_time"})
		return
	}
	if req.Capacity != nil && *req.Capacity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must not be negative"})
		return
	}

	shift.Title = req.Title
	shift.Description = req.Description
	shift.Location = req.Location
	shift.StartTime = req.StartTime
	shift.EndTime = req.EndTime
	shift.Capacity = req.Capacity

	if err := h.DB.Save(&shift).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update shift"})
		return
	}
	c.JSON(http.StatusOK, shift)
}

// DeleteShift removes a shift and its assignments
func (h *Handler) DeleteShift(c *gin.Context) {
	id := c.Param("id")

	var shift database.Shift
	if err := h.DB.First(&shift, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shift_id = ?", shift.ID).Delete(&database.Assignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("shift_id = ?", shift.ID).Delete(&database.OptOut{}).Error; err != nil {
			return err
		}
		return tx.Delete(&shift).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete shift"})
		return
	}
	c.Status(http.StatusNoContent)
}

// AddUserToShift manually assigns a user, checking capacity. Re-adding an
// already assigned user is tolerated and reports success.
func (h *Handler) AddUserToShift(c *gin.Context) {
	var req struct {
		ShiftID uint `json:"shift_id" binding:"required"`
		UserID  uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var shift database.Shift
	if err := h.DB.First(&shift, req.ShiftID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}
	var user database.User
	if err := h.DB.First(&user, req.UserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var existing int64
	h.DB.Model(&database.Assignment{}).
		Where("shift_id = ? AND user_id = ?", req.ShiftID, req.UserID).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusOK, gin.H{"message": "User already assigned to shift"})
		return
	}

	var count int64
	h.DB.Model(&database.Assignment{}).Where("shift_id = ?", req.ShiftID).Count(&count)
	if shift.Capacity != nil && count >= int64(*shift.Capacity) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shift is at capacity"})
		return
	}

	assignment := database.Assignment{
		ShiftID:     req.ShiftID,
		UserID:      req.UserID,
		AssignedVia: "individual",
	}
	if err := h.DB.Create(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add user to shift"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User added to shift successfully"})
}

// AddGroupToShift manually assigns every active member of a group, checking
// that the shift has room for all of them. All-or-nothing.
func (h *Handler) AddGroupToShift(c *gin.Context) {
	var req struct {
		ShiftID uint `json:"shift_id" binding:"required"`
		GroupID uint `json:"group_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var shift database.Shift
	if err := h.DB.First(&shift, req.ShiftID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}
	var group database.Group
	if err := h.DB.First(&group, req.GroupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var members []database.User
	h.DB.Where("group_id = ? AND is_active = ?", req.GroupID, true).Order("id").Find(&members)
	if len(members) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group has no active members"})
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var assignedIDs []uint
		tx.Model(&database.Assignment{}).Where("shift_id = ?", req.ShiftID).Pluck("user_id", &assignedIDs)
		assigned := make(map[uint]bool, len(assignedIDs))
		for _, id := range assignedIDs {
			assigned[id] = true
		}

		var newMembers []database.User
		for _, m := range members {
			if !assigned[m.ID] {
				newMembers = append(newMembers, m)
			}
		}

		if shift.Capacity != nil && len(assignedIDs)+len(newMembers) > *shift.Capacity {
			return errShiftFull
		}

		for _, m := range newMembers {
			row := database.Assignment{
				ShiftID:     req.ShiftID,
				UserID:      m.ID,
				AssignedVia: "group",
				GroupName:   group.Name,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errShiftFull) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to add group to shift. The shift may not have enough capacity for all users in the group.",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add group to shift"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group added to shift successfully"})
}

// RemoveUserFromShift removes one user's assignment. Members removed from a
// group placement may be re-added by a later plan run; use an opt-out for a
// permanent exclusion.
func (h *Handler) RemoveUserFromShift(c *gin.Context) {
	shiftID := c.Param("shift_id")
	userID := c.Param("user_id")

	var shift database.Shift
	if err := h.DB.First(&shift, shiftID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}

	h.DB.Where("shift_id = ? AND user_id = ?", shiftID, userID).Delete(&database.Assignment{})
	c.JSON(http.StatusOK, gin.H{"message": "User removed from shift successfully"})
}

// RemoveGroupFromShift removes the group-tagged assignments of a group from a
// shift. Assignments its members hold individually are untouched.
func (h *Handler) RemoveGroupFromShift(c *gin.Context) {
	shiftID := c.Param("shift_id")
	groupID := c.Param("group_id")

	var shift database.Shift
	if err := h.DB.First(&shift, shiftID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}
	var group database.Group
	if err := h.DB.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	h.DB.Where("shift_id = ? AND assigned_via = ? AND group_name = ?", shiftID, "group", group.Name).
		Delete(&database.Assignment{})
	c.JSON(http.StatusOK, gin.H{"message": "Group removed from shift successfully"})
}

// AvailableUsers lists the users still placeable on a shift: not opted out
// and not already assigned.
func (h *Handler) AvailableUsers(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shift id"})
		return
	}

	var shift database.Shift
	if err := h.DB.First(&shift, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}

	users, err := h.Planner.AvailableUsers(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not resolve availability"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
