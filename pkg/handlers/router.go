package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/volunteerplanner/planner-api/pkg/metrics"
)

// SetupRouter builds the gin engine with all routes wired. Shared by the
// server binary and the serverless entry.
func SetupRouter(h *Handler, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Volunteer Planner API",
			"version": "1.0.0",
		})
	})

	if reg != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
	}

	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/tokens", h.CreateAccessToken)
		admin.GET("/tokens", h.ListAccessTokens)
		admin.PUT("/tokens/:id", h.UpdateTokenLimit)
		admin.DELETE("/tokens/:id", h.RevokeAccessToken)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.TokenMiddleware())
	{
		api.POST("/shifts", h.CreateShift)
		api.GET("/shifts", h.ListShifts)
		api.GET("/shifts/:id", h.GetShift)
		api.PUT("/shifts/:id", h.UpdateShift)
		api.DELETE("/shifts/:id", h.DeleteShift)
		api.GET("/shifts/:id/available-users", h.AvailableUsers)
		api.GET("/shifts/:id/opt-outs", h.ListShiftOptOuts)

		api.POST("/assignments/users", h.AddUserToShift)
		api.POST("/assignments/groups", h.AddGroupToShift)
		api.DELETE("/assignments/users/:shift_id/:user_id", h.RemoveUserFromShift)
		api.DELETE("/assignments/groups/:shift_id/:group_id", h.RemoveGroupFromShift)

		api.POST("/users", h.CreateUser)
		api.GET("/users", h.ListUsers)
		api.GET("/users/:id", h.GetUser)
		api.PUT("/users/:id", h.UpdateUser)
		api.DELETE("/users/:id", h.DeleteUser)
		api.GET("/users/:id/opt-outs", h.ListUserOptOuts)

		api.POST("/groups", h.CreateGroup)
		api.GET("/groups", h.ListGroups)
		api.GET("/groups/:id", h.GetGroup)
		api.PUT("/groups/:id", h.UpdateGroup)
		api.DELETE("/groups/:id", h.DeleteGroup)

		api.POST("/opt-outs", h.SetOptOut)

		api.POST("/plan/generate", h.GeneratePlan)
		api.POST("/plan/preview", h.PreviewPlan)
		api.POST("/plan/reset", h.ResetPlan)
		api.GET("/plan/coverage.csv", h.CoverageCSV)

		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
