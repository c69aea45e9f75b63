package models

// Usage is a clamped CPU and memory reading, each in [0, 100].
type Usage struct {
	CPUUsage    int `json:"cpu_usage"`
	MemoryUsage int `json:"memory_usage"`
}
