package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/volunteerplanner/planner-api/pkg/database"
	"github.com/volunteerplanner/planner-api/pkg/models"
	"github.com/volunteerplanner/planner-api/pkg/scheduler"
)

type planRequest struct {
	ClearExisting    bool `json:"clear_existing"`
	UseGroups        bool `json:"use_groups"`
	MaxShiftsPerUser *int `json:"max_shifts_per_user"`
}

func (r planRequest) config() models.PlanConfig {
	cfg := models.PlanConfig{
		ClearExisting:    r.ClearExisting,
		UseGroups:        r.UseGroups,
		MaxShiftsPerUser: models.DefaultMaxShiftsPerUser,
	}
	if r.MaxShiftsPerUser != nil {
		cfg.MaxShiftsPerUser = *r.MaxShiftsPerUser
	}
	return cfg
}

// GeneratePlan runs the assignment engine and commits the result
func (h *Handler) GeneratePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Planner.GeneratePlan(c.Request.Context(), req.config())
	if err != nil {
		h.planError(c, err)
		return
	}

	h.RecordUsage(c, 1, len(result.Assignments))
	c.JSON(http.StatusOK, result)
}

// PreviewPlan computes a plan without committing anything
func (h *Handler) PreviewPlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Planner.PreviewPlan(c.Request.Context(), req.config())
	if err != nil {
		h.planError(c, err)
		return
	}

	h.RecordUsage(c, 0, 0)
	c.JSON(http.StatusOK, result)
}

// ResetPlan deletes every assignment and reports how many were removed
func (h *Handler) ResetPlan(c *gin.Context) {
	count, err := h.Planner.ResetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not reset assignments"})
		return
	}

	h.RecordUsage(c, 0, 0)
	c.JSON(http.StatusOK, gin.H{"deleted": count})
}

func (h *Handler) planError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduler.ErrBadConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrPlanConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Plan invalidated by a concurrent change, retry the run"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Plan generation failed"})
	}
}

// CoverageCSV exports the current staffing as CSV for download
func (h *Handler) CoverageCSV(c *gin.Context) {
	var shifts []database.Shift
	if err := h.DB.Where("is_active = ?", true).Order("start_time, id").Find(&shifts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list shifts"})
		return
	}

	var assignments []database.Assignment
	h.DB.Order("shift_id, user_id").Find(&assignments)
	var users []database.User
	h.DB.Find(&users)

	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	byShift := make(map[uint][]database.Assignment)
	for _, a := range assignments {
		byShift[a.ShiftID] = append(byShift[a.ShiftID], a)
	}

	var out strings.Builder
	writer := csv.NewWriter(&out)
	writer.Write([]string{"shift_id", "title", "start", "end", "user_id", "user_name", "assigned_via", "group_name"})

	for _, sh := range shifts {
		for _, a := range byShift[sh.ID] {
			writer.Write([]string{
				fmt.Sprintf("%d", sh.ID),
				sh.Title,
				sh.StartTime.Format(time.RFC3339),
				sh.EndTime.Format(time.RFC3339),
				fmt.Sprintf("%d", a.UserID),
				names[a.UserID],
				a.AssignedVia,
				a.GroupName,
			})
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not build CSV export"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="coverage.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(out.String()))
}
