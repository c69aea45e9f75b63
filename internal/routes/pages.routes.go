package routes

import (
	"opsdash/internal/controllers"
	"opsdash/internal/middleware"
	"opsdash/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RegisterPageRoutes(r *gin.Engine, pages *controllers.PagesController, log logger.Logger) {
	html := r.Group("/", middleware.Recover(log, middleware.PlainTextFailure))
	{
		html.GET("/", pages.GetIndex)
		html.GET("/metrics", pages.GetMetrics)
		html.GET("/history", pages.GetHistory)
		html.GET("/settings", pages.GetSettings)
	}
}
