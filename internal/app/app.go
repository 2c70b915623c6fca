// Package app holds the process wiring shared by the binaries under cmd/.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/commentorder/internal/commerce"
	"github.com/joao-fontenele/commentorder/internal/config"
	"github.com/joao-fontenele/commentorder/internal/feeds"
	"github.com/joao-fontenele/commentorder/internal/ledger"
	"github.com/joao-fontenele/commentorder/internal/messaging"
	"github.com/joao-fontenele/commentorder/internal/messenger"
	"github.com/joao-fontenele/commentorder/internal/notify"
	"github.com/joao-fontenele/commentorder/internal/pipeline"
	"github.com/joao-fontenele/commentorder/internal/profiles"
	"github.com/joao-fontenele/commentorder/internal/telemetry"
)

// InitTelemetry installs the global tracer and meter providers. The returned
// handler serves /metrics.
func InitTelemetry(ctx context.Context, cfg config.TelemetryConfig, serviceName string) (http.Handler, func(context.Context), error) {
	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, cfg.ServiceVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize tracer: %w", err)
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, cfg.ServiceVersion)
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, nil, fmt.Errorf("initialize meter: %w", err)
	}

	shutdown := func(ctx context.Context) {
		_ = shutdownMeter(ctx)
		_ = shutdownTracer(ctx)
	}
	return metricsHandler, shutdown, nil
}

// Pipeline is an orchestrator together with the resources it owns.
type Pipeline struct {
	*pipeline.Orchestrator
	signals *messaging.SignalPublisher
}

func (p *Pipeline) Close() error {
	if p.signals == nil {
		return nil
	}
	return p.signals.Close()
}

// NewPipeline builds the Postgres-backed orchestrator. Signals are published
// only when Kafka brokers are configured.
func NewPipeline(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*Pipeline, error) {
	httpClient := &http.Client{
		Timeout:   cfg.Messenger.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	channel := messenger.NewClient(cfg.Messenger.URL, httpClient)

	synchronizer := commerce.NewSynchronizer(db)
	store := pipeline.NewPostgresStore(db, synchronizer, ledger.NewRepository(), cfg.Pipeline.TxMaxRetries)

	deps := pipeline.Deps{
		Feeds:           feeds.NewRepository(db),
		Profiles:        profiles.NewRepository(db),
		Store:           store,
		Notifier:        notify.NewFanout(channel, logger),
		Logger:          logger,
		CommerceTimeout: cfg.Pipeline.CommerceTimeout,
	}

	var signals *messaging.SignalPublisher
	if cfg.Kafka.Enabled() {
		signals = messaging.NewSignalPublisher(cfg.Kafka.Brokers,
			cfg.Kafka.ProfileNeededTopic,
			cfg.Kafka.VariantNeededTopic,
			cfg.Kafka.OrderPlacedTopic,
		)
		deps.Signals = signals
	}

	orch, err := pipeline.NewOrchestrator(deps)
	if err != nil {
		if signals != nil {
			_ = signals.Close()
		}
		return nil, err
	}

	return &Pipeline{Orchestrator: orch, signals: signals}, nil
}

// NewServer wraps mux with otelhttp, naming spans after the matched route.
func NewServer(cfg config.ServerConfig, defaultPort, serviceName string, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr: cfg.Addr(defaultPort),
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Serve runs server until SIGINT or SIGTERM, then shuts it down gracefully.
func Serve(server *http.Server, serviceName string, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting "+serviceName, "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
