package controllers

import (
	"net/http"
	"time"

	"opsdash/internal/middleware"
	"opsdash/pkg/logger"

	"github.com/gin-gonic/gin"
)

// APIController serves the JSON endpoints.
type APIController struct {
	dashboard DashboardProvider
	now       func() time.Time
	log       logger.Logger
}

// NewAPIController builds the JSON handlers; now defaults to time.Now.
func NewAPIController(dashboard DashboardProvider, now func() time.Time, log logger.Logger) *APIController {
	if now == nil {
		now = time.Now
	}
	return &APIController{dashboard: dashboard, now: now, log: log.Named("api")}
}

// GetHealth reports liveness with the build number as version.
func (a *APIController) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": a.now().Format(time.RFC3339),
		"version":   a.dashboard.BuildNumber(),
	})
}

// GetMetrics returns the current usage. The route sits behind BasicAuth.
func (a *APIController) GetMetrics(c *gin.Context) {
	report, err := a.dashboard.MetricsReport(c.Request.Context())
	if err != nil {
		a.log.Error(c.Request.Context(), "metrics api failed",
			logger.String("route", middleware.RouteName(c)),
			logger.String("request_id", middleware.GetRequestID(c)),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      report.Metrics,
		"timestamp": a.now().Format(time.RFC3339),
	})
}
