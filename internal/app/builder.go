package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-server/internal/api"
	"github.com/campuslink/campuslink-server/internal/api/middleware"
	"github.com/campuslink/campuslink-server/internal/app/storage"
	"github.com/campuslink/campuslink-server/internal/config"
	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/directory/postgres"
	"github.com/campuslink/campuslink-server/internal/events"
	"github.com/campuslink/campuslink-server/internal/freshness"
	"github.com/campuslink/campuslink-server/internal/httpclient"
	"github.com/campuslink/campuslink-server/internal/places"
	"github.com/campuslink/campuslink-server/internal/seed"
	"github.com/campuslink/campuslink-server/internal/service"
	"github.com/campuslink/campuslink-server/internal/telemetry"
	"github.com/campuslink/campuslink-server/internal/versions"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	writeTimeoutHeadway = 5 * time.Second
)

// DirectoryAppOptions is a function that configures the directory app builder
type DirectoryAppOptions func(*directoryAppConfig) error

// directoryAppConfig collects the builder inputs.
// It supports dependency injection for testing while providing sensible defaults for production.
type directoryAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storageFactory storage.Factory
	statusSource   places.StatusSource
	publisher      events.Publisher
	seedRecords    []*directory.ServiceRecord

	// HTTP server options
	address     string
	middlewares []func(http.Handler) http.Handler
	readTimeout time.Duration
	idleTimeout time.Duration

	// Telemetry components. When both are nil they are built from config.
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

func baseConfig(opts ...DirectoryAppOptions) (*directoryAppConfig, error) {
	cfg := &directoryAppConfig{
		readTimeout: defaultReadTimeout,
		idleTimeout: defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewDirectoryApp builds every component of the directory server from the
// configuration. Resources acquired before a failure are released.
func NewDirectoryApp(
	ctx context.Context,
	opts ...DirectoryAppOptions,
) (*DirectoryApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.Server.Address
	}

	var cleanups cleanupStack
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			if err := cleanups.run(context.WithoutCancel(ctx)); err != nil {
				slog.Error("Failed to release resources after build error", "error", err)
			}
		}
	}()

	tel, err := buildTelemetry(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry: %w", err)
	}
	if tel != nil {
		cleanups.push(tel.Shutdown)
	}

	store, err := buildStorage(ctx, cfg, &cleanups)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage: %w", err)
	}

	if len(cfg.seedRecords) > 0 {
		n, err := seed.Run(ctx, store, cfg.seedRecords)
		if err != nil {
			return nil, err
		}
		slog.Info("Directory seeded", "records", n)
	}

	if cfg.publisher == nil {
		cfg.publisher, err = NewPublisher(cfg.config)
		if err != nil {
			return nil, fmt.Errorf("failed to build event publisher: %w", err)
		}
		cleanups.push(func(context.Context) error { return cfg.publisher.Close() })
	}

	syncer, err := buildSynchronizer(cfg, store)
	if err != nil {
		return nil, fmt.Errorf("failed to build status synchronizer: %w", err)
	}

	svc, err := buildServiceComponents(cfg, store, syncer)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, svc)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	cleanupNeeded = false

	return &DirectoryApp{
		config: cfg.config,
		components: &AppComponents{
			Store:            store,
			Synchronizer:     syncer,
			DirectoryService: svc,
			Publisher:        cfg.publisher,
			Telemetry:        tel,
		},
		httpServer: httpServer,
		cleanup:    cleanups.run,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address, overriding server.address
func WithAddress(addr string) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("address is not a valid host:port: %w", err)
		}
		if port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host != "" && host != "localhost" && net.ParseIP(host) == nil {
			return fmt.Errorf("address host is not an IP: %s", addr)
		}
		if _, err := net.LookupPort("tcp", port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares adds HTTP middlewares after the built-in chain
func WithMiddlewares(mw ...func(http.Handler) http.Handler) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithStatusSource allows injecting the open status source (for testing).
// It takes precedence over the Places client built from config.
func WithStatusSource(src places.StatusSource) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		if src == nil {
			return fmt.Errorf("status source cannot be nil")
		}
		cfg.statusSource = src
		return nil
	}
}

// WithPublisher allows injecting the status change publisher (for testing).
// The app does not close an injected publisher.
func WithPublisher(p events.Publisher) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		if p == nil {
			return fmt.Errorf("publisher cannot be nil")
		}
		cfg.publisher = p
		return nil
	}
}

// WithSeedRecords replaces the directory contents with records at startup
func WithSeedRecords(records []*directory.ServiceRecord) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		cfg.seedRecords = records
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP and sync metrics
func WithMeterProvider(mp metric.MeterProvider) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) DirectoryAppOptions {
	return func(cfg *directoryAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// NewPlacesClient builds the Google Places client from configuration.
// It fails when no API key is configured.
func NewPlacesClient(cfg *config.Config) (*places.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	httpClient := httpclient.NewDefaultClient(cfg.Places.Timeout,
		httpclient.WithUserAgent("campuslink-server/"+versions.Version))

	opts := []places.Option{places.WithHTTPClient(httpClient)}
	if cfg.Places.Endpoint != "" {
		opts = append(opts, places.WithEndpoint(cfg.Places.Endpoint))
	}
	return places.NewClient(cfg.Places.APIKey, opts...)
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if !cfg.Events.Kafka.Enabled() {
		return events.NopPublisher{}, nil
	}

	k := cfg.Events.Kafka
	slog.Info("Publishing status changes to Kafka", "brokers", k.Brokers, "topic", k.Topic)
	return events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:      k.Brokers,
		Topic:        k.Topic,
		WriteTimeout: k.WriteTimeout,
	})
}

// buildTelemetry creates providers from config unless they were injected.
// It returns nil when the providers were injected, as the caller owns them.
func buildTelemetry(ctx context.Context, b *directoryAppConfig) (*telemetry.Telemetry, error) {
	if b.tracerProvider != nil || b.meterProvider != nil {
		return nil, nil
	}

	tel, err := telemetry.New(ctx,
		telemetry.WithTelemetryConfig(b.config.Telemetry),
		telemetry.WithServiceVersion(versions.Version),
	)
	if err != nil {
		return nil, err
	}
	b.tracerProvider = tel.TracerProvider()
	b.meterProvider = tel.MeterProvider()
	return tel, nil
}

func (b *directoryAppConfig) tracer(name string) trace.Tracer {
	if b.tracerProvider == nil {
		return nil
	}
	return b.tracerProvider.Tracer(name)
}

// buildStorage creates the store and registers the factory cleanup
func buildStorage(ctx context.Context, b *directoryAppConfig, cleanups *cleanupStack) (storage.Store, error) {
	slog.Info("Initializing storage", "type", b.config.Storage.Type)

	if b.storageFactory == nil {
		factory, err := storage.NewStorageFactory(ctx, b.config,
			storage.WithTracer(b.tracer(postgres.TracerName)))
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
		b.storageFactory = factory
	}
	cleanups.push(func(context.Context) error {
		b.storageFactory.Cleanup()
		return nil
	})

	store, err := b.storageFactory.CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory store: %w", err)
	}
	return store, nil
}

// buildSynchronizer creates the freshness synchronizer. Without a status
// source it is still created and reports every sync as disabled.
func buildSynchronizer(b *directoryAppConfig, store directory.Store) (*freshness.Synchronizer, error) {
	source := b.statusSource
	if source == nil && b.config.SynchronizationEnabled() {
		client, err := NewPlacesClient(b.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create places client: %w", err)
		}
		source = client
	}
	if source == nil {
		slog.Warn("No Places API key configured, status synchronization is disabled")
	}

	metrics, err := telemetry.NewFreshnessMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create freshness metrics: %w", err)
	}

	opts := []freshness.Option{
		freshness.WithPublisher(b.publisher),
		freshness.WithMetrics(metrics),
		freshness.WithTracer(b.tracer(freshness.TracerName)),
	}
	if ttl := b.config.Freshness.TTL; ttl > 0 {
		opts = append(opts, freshness.WithTTL(ttl))
	}
	if timeout := b.config.Freshness.FetchTimeout; timeout > 0 {
		opts = append(opts, freshness.WithFetchTimeout(timeout))
	}

	syncer, err := freshness.New(store, source, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("Status synchronizer initialized",
		"enabled", source != nil, "ttl", syncer.TTL())
	return syncer, nil
}

// buildServiceComponents builds the directory service
func buildServiceComponents(
	b *directoryAppConfig,
	store directory.Store,
	syncer *freshness.Synchronizer,
) (service.DirectoryService, error) {
	slog.Info("Initializing service components")

	svc, err := service.New(store,
		service.WithSynchronizer(syncer),
		service.WithTracer(b.tracer(service.ServiceTracerName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory service: %w", err)
	}

	slog.Info("Service components initialized successfully")
	return svc, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *directoryAppConfig,
	svc service.DirectoryService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
	}

	middlewares := append([]func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(b.tracerProvider),
		metricsMiddleware,
	}, b.middlewares...)

	requestTimeout := b.config.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = api.DefaultRequestTimeout
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(middlewares...),
		api.WithRequestTimeout(requestTimeout),
	}
	if rl := b.config.Server.RateLimit; rl.Requests > 0 {
		serverOpts = append(serverOpts, api.WithRateLimit(middleware.RateLimitConfig{
			RequestLimit: rl.Requests,
			WindowSize:   rl.Window,
		}))
		slog.Info("API rate limit enabled", "requests", rl.Requests, "window", rl.Window)
	}

	router := api.NewServer(svc, serverOpts...)

	// The write deadline must leave room for the timeout middleware to answer.
	server := &http.Server{
		Addr:              b.address,
		Handler:           router,
		ReadHeaderTimeout: b.readTimeout,
		ReadTimeout:       b.readTimeout,
		WriteTimeout:      requestTimeout + writeTimeoutHeadway,
		IdleTimeout:       b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}

// cleanupStack releases resources in reverse order of acquisition
type cleanupStack struct {
	funcs []func(context.Context) error
}

func (c *cleanupStack) push(f func(context.Context) error) {
	c.funcs = append(c.funcs, f)
}

func (c *cleanupStack) run(ctx context.Context) error {
	var errs []error
	for i := len(c.funcs) - 1; i >= 0; i-- {
		if err := c.funcs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.funcs = nil
	return errors.Join(errs...)
}
