package controllers

import (
	"bytes"
	"net/http"

	"opsdash/internal/middleware"
	"opsdash/internal/views"
	"opsdash/pkg/logger"

	"github.com/gin-gonic/gin"
)

const htmlContentType = "text/html; charset=utf-8"

// PagesController serves the HTML pages.
type PagesController struct {
	dashboard DashboardProvider
	views     PageRenderer
	log       logger.Logger
}

// NewPagesController builds the page handlers.
func NewPagesController(dashboard DashboardProvider, pages PageRenderer, log logger.Logger) *PagesController {
	return &PagesController{dashboard: dashboard, views: pages, log: log.Named("pages")}
}

// GetIndex renders the overview. Failures render the HTML error page.
func (pc *PagesController) GetIndex(c *gin.Context) {
	overview, err := pc.dashboard.Overview(c.Request.Context())
	if err != nil {
		pc.errorPage(c, err)
		return
	}
	pc.render(c, views.PageIndex, overview, pc.errorPage)
}

// GetMetrics renders the usage page.
func (pc *PagesController) GetMetrics(c *gin.Context) {
	report, err := pc.dashboard.MetricsReport(c.Request.Context())
	if err != nil {
		pc.plainError(c, err)
		return
	}
	pc.render(c, views.PageMetrics, report, pc.plainError)
}

// GetHistory renders the fixed pipeline history.
func (pc *PagesController) GetHistory(c *gin.Context) {
	report, err := pc.dashboard.History(c.Request.Context())
	if err != nil {
		pc.plainError(c, err)
		return
	}
	pc.render(c, views.PageHistory, report, pc.plainError)
}

// GetSettings renders the fixed settings.
func (pc *PagesController) GetSettings(c *gin.Context) {
	report, err := pc.dashboard.Settings(c.Request.Context())
	if err != nil {
		pc.plainError(c, err)
		return
	}
	pc.render(c, views.PageSettings, report, pc.plainError)
}

// render buffers the page so a failed render never leaks a partial 200.
func (pc *PagesController) render(c *gin.Context, page string, data any, fail func(*gin.Context, error)) {
	var buf bytes.Buffer
	if err := pc.views.Render(&buf, page, data); err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, buf.Bytes())
}

func (pc *PagesController) logFailure(c *gin.Context, err error) {
	pc.log.Error(c.Request.Context(), "page failed",
		logger.String("route", middleware.RouteName(c)),
		logger.String("request_id", middleware.GetRequestID(c)),
		logger.Error(err),
	)
}

func (pc *PagesController) plainError(c *gin.Context, err error) {
	pc.logFailure(c, err)
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// errorPage falls back to plain text when error.html itself cannot render.
func (pc *PagesController) errorPage(c *gin.Context, err error) {
	pc.logFailure(c, err)

	var buf bytes.Buffer
	data := views.ErrorPage{
		BuildNumber: pc.dashboard.BuildNumber(),
		Message:     "The dashboard could not be loaded. Please try again shortly.",
	}
	if renderErr := pc.views.Render(&buf, views.PageError, data); renderErr != nil {
		pc.log.Error(c.Request.Context(), "error page failed", logger.Error(renderErr))
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	c.Data(http.StatusInternalServerError, htmlContentType, buf.Bytes())
}
