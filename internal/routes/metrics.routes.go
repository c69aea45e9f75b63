package routes

import (
	"opsdash/internal/controllers"
	"opsdash/internal/middleware"
	"opsdash/pkg/logger"
	"opsdash/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterAPIRoutes mounts the JSON endpoints; guard protects /api.
func RegisterAPIRoutes(r *gin.Engine, api *controllers.APIController, guard gin.HandlerFunc, log logger.Logger) {
	recovery := middleware.Recover(log, middleware.JSONFailure)

	r.GET("/health", recovery, api.GetHealth)

	v := r.Group("/api", recovery, guard)
	{
		v.GET("/metrics", api.GetMetrics)
	}
}

// RegisterPrometheusRoute exposes the dashboard's own registry.
func RegisterPrometheusRoute(r *gin.Engine, m *metrics.Manager) {
	r.GET("/prometheus", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
}
