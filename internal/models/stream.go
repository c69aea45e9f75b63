package models

import "time"

// StreamMessage is a frame pushed over /ws/metrics.
type StreamMessage struct {
	Type      string    `json:"type"` // "metrics"
	Timestamp time.Time `json:"timestamp"`
	Data      Usage     `json:"data"`
}
