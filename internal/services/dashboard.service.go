package services

import (
	"context"
	"fmt"
	"time"

	"opsdash/internal/models"
)

// ServerTimeLayout formats the server timestamp shown on pages.
const ServerTimeLayout = "2006-01-02 15:04:05"

var recentLogs = []models.LogEntry{
	{Time: "10:30:15", Type: "info", Message: "Pipeline #128 started for branch main"},
	{Time: "10:32:47", Type: "success", Message: "Docker image opsdash:latest built and pushed"},
	{Time: "10:35:02", Type: "warning", Message: "Integration tests took longer than expected"},
}

var pipelineHistory = []models.HistoryEntry{
	{Date: "2024-01-20", Event: "Deployment", Status: "Success"},
	{Date: "2024-01-19", Event: "Testing", Status: "Success"},
	{Date: "2024-01-18", Event: "Build", Status: "Failed"},
}

var dashboardSettings = models.Settings{
	Notifications: true,
	Theme:         "dark",
	AutoDeploy:    false,
}

// UsageReader supplies the current clamped usage.
type UsageReader interface {
	Usage(ctx context.Context) models.Usage
}

// DashboardService assembles the per-request page data.
type DashboardService struct {
	buildNumber string
	usage       UsageReader
	now         func() time.Time
}

// NewDashboardService returns a service echoing buildNumber; now defaults to time.Now.
func NewDashboardService(buildNumber string, usage UsageReader, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{buildNumber: buildNumber, usage: usage, now: now}
}

// BuildNumber returns the configured build identifier.
func (s *DashboardService) BuildNumber() string {
	return s.buildNumber
}

// Overview gathers the home page data.
func (s *DashboardService) Overview(ctx context.Context) (*models.Overview, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	return &models.Overview{
		BuildNumber: s.buildNumber,
		ServerTime:  s.now().Format(ServerTimeLayout),
		Metrics:     s.usage.Usage(ctx),
		Logs:        RecentLogs(),
	}, nil
}

// MetricsReport gathers the metrics page data.
func (s *DashboardService) MetricsReport(ctx context.Context) (*models.MetricsReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("metrics report: %w", err)
	}
	return &models.MetricsReport{
		BuildNumber: s.buildNumber,
		ServerTime:  s.now().Format(ServerTimeLayout),
		Metrics:     s.usage.Usage(ctx),
	}, nil
}

// History gathers the history page data.
func (s *DashboardService) History(ctx context.Context) (*models.HistoryReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return &models.HistoryReport{BuildNumber: s.buildNumber, History: PipelineHistory()}, nil
}

// Settings gathers the settings page data.
func (s *DashboardService) Settings(ctx context.Context) (*models.SettingsReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return &models.SettingsReport{BuildNumber: s.buildNumber, Settings: dashboardSettings}, nil
}

// RecentLogs returns a copy of the fixed activity feed.
func RecentLogs() []models.LogEntry {
	return append([]models.LogEntry(nil), recentLogs...)
}

// PipelineHistory returns a copy of the fixed history, newest first.
func PipelineHistory() []models.HistoryEntry {
	return append([]models.HistoryEntry(nil), pipelineHistory...)
}
