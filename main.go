package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opsdash/internal/config"
	"opsdash/internal/routes"
	"opsdash/internal/services"
	"opsdash/internal/views"
	"opsdash/pkg/logger"
	"opsdash/pkg/metrics"
	"opsdash/web"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "opsdash: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log, closer, err := newLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "WARNING: debug mode is enabled. Do not run this in production.")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if !cfg.AuthConfigured() {
		log.Warn(ctx, "API_USER/API_PASS not set; authenticated endpoints will reject every request")
	}

	var sampler services.Sampler = services.SystemSampler{CPUInterval: cfg.CPUSampleInterval}
	if cfg.MetricsSource == config.MetricsSourceMock {
		sampler = services.MockSampler{CPU: float64(cfg.MockCPUUsage), Memory: float64(cfg.MockMemoryUsage)}
	}

	var (
		manager  *metrics.Manager
		recorder services.FailureRecorder
	)
	if cfg.PrometheusEnabled {
		manager = metrics.NewManager()
		recorder = manager
	}

	usage := services.NewMetricsService(sampler, recorder, log)
	dashboard := services.NewDashboardService(cfg.BuildNumber, usage, nil)

	pages, err := views.NewRenderer(web.Templates())
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	router := routes.Setup(routes.Deps{
		Dashboard:      dashboard,
		Usage:          usage,
		Pages:          pages,
		Auth:           services.NewAuthService(cfg.APIUser, cfg.APIPass),
		Static:         http.FS(web.Static()),
		Metrics:        manager,
		Log:            log,
		StreamInterval: cfg.StreamInterval,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	color.New(color.FgCyan, color.Bold).Fprintf(os.Stdout, "opsdash build %s listening on %s\n", cfg.BuildNumber, cfg.Addr())
	log.Info(ctx, "server starting",
		logger.String("addr", cfg.Addr()),
		logger.String("build", cfg.BuildNumber),
		logger.String("metrics_source", cfg.MetricsSource),
		logger.Any("prometheus", cfg.PrometheusEnabled),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "server failed", logger.Error(err))
			return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
		}
		return nil
	case sig := <-stop:
		log.Info(ctx, "shutting down", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "forced shutdown", logger.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newLogger builds the process logger; debug mode overrides log_level.
func newLogger(cfg *config.Config, out io.Writer) (logger.Logger, io.Closer, error) {
	log, closer, err := logger.New(logger.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		Output:    out,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Debug {
		if err := logger.SetLevelString(log, "debug"); err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("logger: %w", err)
		}
	}
	return log, closer, nil
}
