package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"opsdash/internal/models"
	"opsdash/pkg/logger"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sampler reads raw host utilisation percentages.
type Sampler interface {
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
}

// FailureRecorder is notified when a read is replaced by zero.
type FailureRecorder interface {
	RecordSamplerFailure(resource string)
	SetLastUsage(resource string, percent int)
}

// SystemSampler reads the host through gopsutil.
type SystemSampler struct {
	// CPUInterval is handed to cpu.Percent; zero compares against the previous call.
	CPUInterval time.Duration
}

// CPUPercent returns total CPU utilisation across all cores.
func (s SystemSampler) CPUPercent(ctx context.Context) (float64, error) {
	percentage, err := cpu.PercentWithContext(ctx, s.CPUInterval, false)
	if err != nil {
		return 0, err
	}
	if len(percentage) == 0 {
		return 0, errors.New("cpu: no reading returned")
	}
	return percentage[0], nil
}

// MemoryPercent returns used virtual memory as a percentage.
func (s SystemSampler) MemoryPercent(ctx context.Context) (float64, error) {
	virtualMemory, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return virtualMemory.UsedPercent, nil
}

// MockSampler returns fixed placeholder values.
type MockSampler struct {
	CPU    float64
	Memory float64
}

func (s MockSampler) CPUPercent(context.Context) (float64, error)    { return s.CPU, nil }
func (s MockSampler) MemoryPercent(context.Context) (float64, error) { return s.Memory, nil }

// MetricsService turns sampler readings into clamped Usage values.
type MetricsService struct {
	sampler  Sampler
	recorder FailureRecorder
	log      logger.Logger
}

// NewMetricsService wires a sampler; recorder may be nil.
func NewMetricsService(sampler Sampler, recorder FailureRecorder, log logger.Logger) *MetricsService {
	return &MetricsService{sampler: sampler, recorder: recorder, log: log.Named("metrics")}
}

// Usage reads CPU and memory once. Any failure yields {0, 0}; it never errors.
func (s *MetricsService) Usage(ctx context.Context) models.Usage {
	cpuPercent, err := s.read(ctx, "cpu", s.sampler.CPUPercent)
	if err != nil {
		return models.Usage{}
	}
	memPercent, err := s.read(ctx, "memory", s.sampler.MemoryPercent)
	if err != nil {
		return models.Usage{}
	}

	usage := models.Usage{
		CPUUsage:    ClampPercent(cpuPercent),
		MemoryUsage: ClampPercent(memPercent),
	}
	if s.recorder != nil {
		s.recorder.SetLastUsage("cpu", usage.CPUUsage)
		s.recorder.SetLastUsage("memory", usage.MemoryUsage)
	}
	return usage
}

// read calls fn, converting a panic into an error.
func (s *MetricsService) read(ctx context.Context, resource string, fn func(context.Context) (float64, error)) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s sampler panicked: %v", resource, r)
		}
		if err != nil {
			s.log.Warn(ctx, "usage read failed, reporting zero", logger.String("resource", resource), logger.Error(err))
			if s.recorder != nil {
				s.recorder.RecordSamplerFailure(resource)
			}
		}
	}()
	return fn(ctx)
}

// ClampPercent rounds v and constrains it to [0, 100]. NaN maps to 0.
func ClampPercent(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return int(math.Round(v))
}
