package routes

import (
	"opsdash/internal/controllers"
	"opsdash/internal/middleware"
	"opsdash/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RegisterStreamRoutes mounts the live usage WebSocket behind the same
// Basic Auth guard as /api.
func RegisterStreamRoutes(r *gin.Engine, stream *controllers.StreamController, guard gin.HandlerFunc, log logger.Logger) {
	r.GET("/ws/metrics", middleware.Recover(log, middleware.JSONFailure), guard, stream.StreamMetrics)
}
