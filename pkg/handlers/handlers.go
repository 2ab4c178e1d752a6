package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/volunteerplanner/planner-api/pkg/auth"
	"github.com/volunteerplanner/planner-api/pkg/database"
	"github.com/volunteerplanner/planner-api/pkg/scheduler"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB      *gorm.DB
	Planner *scheduler.Service

	limiterMu sync.Mutex
	limiters  map[uint]*rate.Limiter
}

// NewHandler wires a Handler around a DB connection and plan service.
func NewHandler(db *gorm.DB, planner *scheduler.Service) *Handler {
	return &Handler{
		DB:       db,
		Planner:  planner,
		limiters: make(map[uint]*rate.Limiter),
	}
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// TokenMiddleware verifies the access token for API routes and applies the
// token's per-minute rate limit.
func (h *Handler) TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			c.Abort()
			return
		}

		accessToken, err := auth.VerifyAccessToken(h.DB, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired access token"})
			c.Abort()
			return
		}

		if !h.limiterFor(accessToken).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Set("accessToken", accessToken)
		c.Next()
	}
}

// limiterFor returns the per-token limiter, creating it on first use.
// RateLimit is requests per minute; burst allows a full minute at once.
func (h *Handler) limiterFor(token *database.AccessToken) *rate.Limiter {
	h.limiterMu.Lock()
	defer h.limiterMu.Unlock()

	l, ok := h.limiters[token.ID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(token.RateLimit)/60.0), token.RateLimit)
		h.limiters[token.ID] = l
	}
	return l
}

func bearerToken(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}
	return token
}

// RecordUsage records API usage in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, planRuns, assignmentsMade int) {
	tokenRaw, exists := c.Get("accessToken")
	if !exists {
		return
	}
	token := tokenRaw.(*database.AccessToken)

	today := time.Now().Format("2006-01-02")

	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":    gorm.Expr("request_count + ?", 1),
			"plan_runs":        gorm.Expr("plan_runs + ?", planRuns),
			"assignments_made": gorm.Expr("assignments_made + ?", assignmentsMade),
		}),
	}).Create(&database.APIUsage{
		TokenID:         token.ID,
		Date:            today,
		RequestCount:    1,
		PlanRuns:        planRuns,
		AssignmentsMade: assignmentsMade,
	})
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// CreateAccessToken mints a new API access token
func (h *Handler) CreateAccessToken(c *gin.Context) {
	var req struct {
		Name          string `json:"name"`
		RateLimit     int    `json:"rate_limit"`
		ExpiresInDays int    `json:"expires_in_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	token, err := auth.CreateAccessToken(h.DB, req.Name, req.RateLimit, req.ExpiresInDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":  token.Name,
		"token": token.Token,
	})
}

// ListAccessTokens returns all access tokens
func (h *Handler) ListAccessTokens(c *gin.Context) {
	var tokens []database.AccessToken
	h.DB.Find(&tokens)
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// RevokeAccessToken deactivates an access token
func (h *Handler) RevokeAccessToken(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Model(&database.AccessToken{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token revoked"})
}

// UpdateTokenLimit updates the rate limit for an access token
func (h *Handler) UpdateTokenLimit(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	if err := h.DB.Model(&database.AccessToken{}).Where("id = ?", id).Update("rate_limit", req.RateLimit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update token limit"})
		return
	}

	// New limit takes effect on the next request.
	if tokenID, err := strconv.ParseUint(id, 10, 64); err == nil {
		h.limiterMu.Lock()
		delete(h.limiters, uint(tokenID))
		h.limiterMu.Unlock()
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a token
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.APIUsage
	h.DB.Where("token_id = ?", id).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// GetMyUsage returns usage stats for the authenticated access token
func (h *Handler) GetMyUsage(c *gin.Context) {
	tokenRaw, exists := c.Get("accessToken")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Access token context missing"})
		return
	}
	token := tokenRaw.(*database.AccessToken)

	var usage []database.APIUsage
	if err := h.DB.Where("token_id = ?", token.ID).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}

	var totalRequests, totalRuns, totalAssignments int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalRuns += int64(u.PlanRuns)
		totalAssignments += int64(u.AssignmentsMade)
	}

	c.JSON(http.StatusOK, gin.H{
		"token_name":    token.Name,
		"rate_limit":    token.RateLimit,
		"usage_history": usage,
		"totals": gin.H{
			"requests":    totalRequests,
			"plan_runs":   totalRuns,
			"assignments": totalAssignments,
		},
	})
}
