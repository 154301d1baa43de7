package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-upload/internal/tracing"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	"github.com/tendant/simple-upload/pkg/simpleupload/api"
	"github.com/tendant/simple-upload/pkg/simpleupload/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter mounts the upload routes of one variant plus static files,
// health, metrics and on-demand reconciliation.
func NewRouter(rt *config.Runtime) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/admin/reconcile", api.NewReconcileHandler(rt.Reconciler).Run)

	r.Mount(simpleupload.DefaultPublicPrefix, api.NewStaticHandler(rt.Blobs).Routes())
	r.Mount("/", api.NewUploadHandler(rt.Service).Routes())

	return r
}

// Run serves one upload variant until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func Run(ctx context.Context, policy simpleupload.MediaPolicy) error {
	cfg, err := config.Load(config.WithDotEnv(), config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	serviceName := "simple-upload-" + policy.Name
	logger := slog.Default().With("service", serviceName)

	shutdownTracer, err := tracing.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to shut down tracer", "err", err)
		}
	}()

	rt, err := cfg.Build(ctx, policy, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt.Reconciler.Start(ctx)
	defer rt.Reconciler.Stop()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(NewRouter(rt), serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", "port", cfg.Port, "variant", policy.Name)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

// RunMain is the shared entry point of the variant binaries
func RunMain(policy simpleupload.MediaPolicy) {
	if err := Run(context.Background(), policy); err != nil {
		slog.Error("Server failed", "err", err)
		os.Exit(1)
	}
}
