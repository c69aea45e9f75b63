package controllers

import (
	"context"
	"io"

	"opsdash/internal/models"
)

// DashboardProvider assembles the per-request data behind every route.
type DashboardProvider interface {
	BuildNumber() string
	Overview(ctx context.Context) (*models.Overview, error)
	MetricsReport(ctx context.Context) (*models.MetricsReport, error)
	History(ctx context.Context) (*models.HistoryReport, error)
	Settings(ctx context.Context) (*models.SettingsReport, error)
}

// PageRenderer renders a named page template.
type PageRenderer interface {
	Render(w io.Writer, page string, data any) error
}

// UsageReader supplies the current clamped usage.
type UsageReader interface {
	Usage(ctx context.Context) models.Usage
}
