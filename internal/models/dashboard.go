package models

// LogEntry is one line of the recent activity feed on the home page.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HistoryEntry is one row of the pipeline history page.
type HistoryEntry struct {
	Date   string `json:"date"`
	Event  string `json:"event"`
	Status string `json:"status"`
}

// Settings holds the dashboard preferences shown on the settings page.
type Settings struct {
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
	AutoDeploy    bool   `json:"auto_deploy"`
}

// Overview is the data behind the home page.
type Overview struct {
	BuildNumber string     `json:"build_number"`
	ServerTime  string     `json:"server_time"`
	Metrics     Usage      `json:"metrics"`
	Logs        []LogEntry `json:"logs"`
}

// MetricsReport is the data behind the metrics page.
type MetricsReport struct {
	BuildNumber string `json:"build_number"`
	ServerTime  string `json:"server_time"`
	Metrics     Usage  `json:"metrics"`
}

// HistoryReport is the data behind the history page.
type HistoryReport struct {
	BuildNumber string         `json:"build_number"`
	History     []HistoryEntry `json:"history"`
}

// SettingsReport is the data behind the settings page.
type SettingsReport struct {
	BuildNumber string   `json:"build_number"`
	Settings    Settings `json:"settings"`
}
