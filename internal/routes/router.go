package routes

import (
	"net/http"
	"time"

	"opsdash/internal/controllers"
	"opsdash/internal/middleware"
	"opsdash/pkg/logger"
	"opsdash/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Deps is everything the router needs. Metrics may be nil, which disables
// request metrics and the /prometheus endpoint.
type Deps struct {
	Dashboard      controllers.DashboardProvider
	Usage          controllers.UsageReader
	Pages          controllers.PageRenderer
	Auth           middleware.Authenticator
	Static         http.FileSystem
	Metrics        *metrics.Manager
	Log            logger.Logger
	StreamInterval time.Duration
	Now            func() time.Time
}

// Setup builds the engine with every route registered.
func Setup(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logger.Nop()
	}

	var (
		requests middleware.RequestRecorder
		failures middleware.AuthFailureRecorder
	)
	if d.Metrics != nil {
		requests = d.Metrics
		failures = d.Metrics
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(d.Log, requests))

	if d.Static != nil {
		r.StaticFS("/static", d.Static)
	}

	guard := middleware.BasicAuth(d.Auth, middleware.NewSecurityLogger(d.Log, failures))

	RegisterPageRoutes(r, controllers.NewPagesController(d.Dashboard, d.Pages, d.Log), d.Log)
	RegisterAPIRoutes(r, controllers.NewAPIController(d.Dashboard, d.Now, d.Log), guard, d.Log)
	RegisterStreamRoutes(r, controllers.NewStreamController(d.Usage, d.StreamInterval, d.Log), guard, d.Log)
	if d.Metrics != nil {
		RegisterPrometheusRoute(r, d.Metrics)
	}

	return r
}
