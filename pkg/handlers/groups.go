package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/volunteerplanner/planner-api/pkg/database"
)

// CreateGroup creates a new group
func (h *Handler) CreateGroup(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := database.Group{Name: req.Name, IsActive: true}
	if err := h.DB.Create(&group).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group name already taken"})
		return
	}
	c.JSON(http.StatusCreated, group)
}

// ListGroups returns all groups with their members
func (h *Handler) ListGroups(c *gin.Context) {
	var groups []database.Group
	if err := h.DB.Preload("Users").Order("id").Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list groups"})
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetGroup returns one group with its members
func (h *Handler) GetGroup(c *gin.Context) {
	var group database.Group
	if err := h.DB.Preload("Users").First(&group, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	c.JSON(http.StatusOK, group)
}

// UpdateGroup updates a group's name or active flag
func (h *Handler) UpdateGroup(c *gin.Context) {
	var group database.Group
	if err := h.DB.First(&group, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var req struct {
		Name     *string `json:"name"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.IsActive != nil {
		group.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&group).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update group"})
		return
	}
	c.JSON(http.StatusOK, group)
}

// DeleteGroup removes a group. Members keep their accounts and any
// assignments they already hold; their membership reference is cleared.
func (h *Handler) DeleteGroup(c *gin.Context) {
	var group database.Group
	if err := h.DB.First(&group, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	h.DB.Model(&database.User{}).Where("group_id = ?", group.ID).Update("group_id", nil)
	h.DB.Where("group_id = ?", group.ID).Delete(&database.OptOut{})
	if err := h.DB.Delete(&group).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete group"})
		return
	}
	c.Status(http.StatusNoContent)
}
