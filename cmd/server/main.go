package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/volunteerplanner/planner-api/pkg/auth"
	"github.com/volunteerplanner/planner-api/pkg/database"
	"github.com/volunteerplanner/planner-api/pkg/handlers"
	"github.com/volunteerplanner/planner-api/pkg/metrics"
	"github.com/volunteerplanner/planner-api/pkg/scheduler"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)

	reg := prometheus.NewRegistry()
	planner := scheduler.NewService(db)
	planner.Metrics = metrics.NewCollector(reg)

	h := handlers.NewHandler(db, planner)
	r := handlers.SetupRouter(h, reg)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
