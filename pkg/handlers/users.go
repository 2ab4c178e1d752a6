package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/volunteerplanner/planner-api/pkg/auth"
	"github.com/volunteerplanner/planner-api/pkg/database"
)

// CreateUser registers a new volunteer
func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		GroupID  *uint  `json:"group_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.GroupID != nil {
		var group database.Group
		if err := h.DB.First(&group, *req.GroupID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}

	user := database.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
		GroupID:      req.GroupID,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username or email already taken"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ListUsers returns all volunteers
func (h *Handler) ListUsers(c *gin.Context) {
	var users []database.User
	if err := h.DB.Order("id").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns one volunteer
func (h *Handler) GetUser(c *gin.Context) {
	var user database.User
	if err := h.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser updates a volunteer's profile and group membership
func (h *Handler) UpdateUser(c *gin.Context) {
	var user database.User
	if err := h.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		IsActive *bool   `json:"is_active"`
		GroupID  *uint   `json:"group_id"`
		// ClearGroup removes the membership; a volunteer belongs to at
		// most one group at a time.
		ClearGroup bool `json:"clear_group"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.ClearGroup {
		user.GroupID = nil
	} else if req.GroupID != nil {
		var group database.Group
		if err := h.DB.First(&group, *req.GroupID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
		user.GroupID = req.GroupID
	}

	if err := h.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a volunteer along with their assignments and opt-outs
func (h *Handler) DeleteUser(c *gin.Context) {
	var user database.User
	if err := h.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	h.DB.Where("user_id = ?", user.ID).Delete(&database.Assignment{})
	h.DB.Where("user_id = ?", user.ID).Delete(&database.OptOut{})
	if err := h.DB.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete user"})
		return
	}
	c.Status(http.StatusNoContent)
}
