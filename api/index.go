package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/volunteerplanner/planner-api/pkg/auth"
	"github.com/volunteerplanner/planner-api/pkg/database"
	"github.com/volunteerplanner/planner-api/pkg/handlers"
	"github.com/volunteerplanner/planner-api/pkg/metrics"
	"github.com/volunteerplanner/planner-api/pkg/scheduler"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)

	reg := prometheus.NewRegistry()
	planner := scheduler.NewService(db)
	planner.Metrics = metrics.NewCollector(reg)

	gin.SetMode(gin.ReleaseMode)
	r = handlers.SetupRouter(handlers.NewHandler(db, planner), reg)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
