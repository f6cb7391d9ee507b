package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/jt828/wolam/internal/bootstrap"
	"github.com/jt828/wolam/internal/config"
	"github.com/jt828/wolam/internal/controller"
	"github.com/jt828/wolam/internal/interceptor"
	"github.com/jt828/wolam/internal/metrics"
	"github.com/jt828/wolam/internal/repository"
	"github.com/jt828/wolam/internal/service"
	idempotencyImpl "github.com/jt828/wolam/pkg/idempotency/implementation"
	"github.com/jt828/wolam/pkg/observability"
	"github.com/jt828/wolam/pkg/observability/implementation"
	"github.com/jt828/wolam/web"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type flagValues struct {
	httpAddr    string
	metricsAddr string
	grpcAddr    string
	logLevel    string
	databaseDSN string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags flagValues

	cmd := &cobra.Command{
		Use:          "wolam",
		Short:        "Serve the logging and metrics demo application",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, flags, &cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&flags.httpAddr, "http-addr", "", "application listen address (overrides WOLAM_HTTP_ADDR)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "prometheus scrape address (overrides WOLAM_METRICS_ADDR)")
	cmd.Flags().StringVar(&flags.grpcAddr, "grpc-addr", "", "grpc health address (overrides WOLAM_GRPC_ADDR)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "initial application log level (overrides WOLAM_LOG_LEVEL)")
	cmd.Flags().StringVar(&flags.databaseDSN, "database-dsn", "", "postgres dsn for the job store (overrides DATABASE_DSN)")

	return cmd
}

func applyFlags(cmd *cobra.Command, flags flagValues, cfg *config.Config) error {
	if cmd.Flags().Changed("http-addr") {
		cfg.HTTP.Address = flags.httpAddr
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Address = flags.metricsAddr
	}
	if cmd.Flags().Changed("grpc-addr") {
		cfg.GRPC.Address = flags.grpcAddr
	}
	if cmd.Flags().Changed("log-level") {
		level, ok := observability.ParseLevel(flags.logLevel)
		if !ok {
			return fmt.Errorf("invalid --log-level %q", flags.logLevel)
		}
		cfg.Observability.LogLevel = level
	}
	if cmd.Flags().Changed("database-dsn") {
		cfg.Database.DSN = flags.databaseDSN
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) error {
	obs, err := implementation.NewObservability(implementation.Config{
		ServiceName:      cfg.ApplicationName,
		LogLevel:         cfg.Observability.LogLevel,
		MetricsAddr:      cfg.Metrics.Address,
		OTLPEndpoint:     cfg.Observability.OTLPEndpoint,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
	})
	if err != nil {
		return err
	}
	appLog := obs.Logger()

	// Process lifecycle records go through their own logger so setLogLevel
	// never silences them.
	log, err := implementation.NewZapLogger(implementation.LoggerConfig{
		Name:  "wolam",
		Level: observability.LevelInfo,
	})
	if err != nil {
		return err
	}

	reg := implementation.PromRegistry(obs.Meter())
	if reg == nil {
		return errors.New("prometheus registry not available")
	}
	grpcMetrics := grpc_prometheus.NewServerMetrics()
	reg.MustRegister(grpcMetrics)

	registry := metrics.NewRegistry(obs.Meter(), cfg.Metrics.MaxLabelSeries)

	if err := obs.Start(ctx); err != nil {
		return fmt.Errorf("start observability: %w", err)
	}

	idGen, err := bootstrap.InitializeSnowflake(cfg.Database.Hostname)
	if err != nil {
		log.Error("failed to initialize snowflake", observability.Err(err))
		return err
	}
	dbs, err := bootstrap.InitializeDatabase(cfg.Database.DSN, obs.Meter(), log)
	if err != nil {
		log.Error("failed to initialize database", observability.Err(err))
		return err
	}

	pages, err := web.NewPages()
	if err != nil {
		return err
	}

	idem := idempotencyImpl.NewIdempotency()
	logSvc := service.NewLogService(log, appLog, registry)
	metricsSvc := service.NewMetricsService(
		service.MetricsServiceConfig{
			UnitDelay:         cfg.Generation.UnitDelay,
			MaxMetricCount:    cfg.Generation.MaxMetricCount,
			MaxConcurrentJobs: cfg.Generation.MaxConcurrentJobs,
		},
		registry, log, obs.Tracer(), dbs.UnitOfWorkFactory, idem, idGen,
	)

	httpCtrl := controller.NewHTTPController(
		controller.HTTPControllerConfig{
			ApplicationName:    cfg.ApplicationName,
			DefaultEnvironment: cfg.Generation.DefaultEnvironment,
			DefaultRegion:      cfg.Generation.DefaultRegion,
		},
		logSvc, metricsSvc, registry, pages, idGen, log, obs.Tracer(),
	)

	httpServer, cancelRequests := newHTTPServer(cfg.HTTP, httpCtrl.Handler())
	defer cancelRequests()
	httpLis, err := net.Listen("tcp", cfg.HTTP.Address)
	if err != nil {
		log.Error("failed to listen", observability.String("addr", cfg.HTTP.Address), observability.Err(err))
		return err
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		_ = httpLis.Close()
		log.Error("failed to listen", observability.String("addr", cfg.GRPC.Address), observability.Err(err))
		return err
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcMetrics.UnaryServerInterceptor(),
			interceptor.ErrorInterceptor(log),
		),
		grpc.ChainStreamInterceptor(
			grpcMetrics.StreamServerInterceptor(),
			interceptor.StreamErrorInterceptor(log),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	setHealth(ctx, healthServer, dbs.UnitOfWorkFactory, log)
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	go func() {
		ticker := time.NewTicker(cfg.Database.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				setHealth(ctx, healthServer, dbs.UnitOfWorkFactory, log)
			}
		}
	}()

	grpcMetrics.InitializeMetrics(server)

	serveErr := make(chan error, 2)
	go func() {
		log.Info("http server running", observability.String("addr", httpLis.Addr().String()))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("gRPC server running", observability.String("addr", grpcLis.Addr().String()))
		if err := server.Serve(grpcLis); err != nil {
			serveErr <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case runErr = <-serveErr:
		log.Error("server failed", observability.Err(runErr))
	}

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	// In-flight synchronous generations stop at their next unit instead of
	// holding Shutdown open.
	cancelRequests()
	if err := shutdownWithin(cfg.HTTP.ShutdownTimeout, httpServer.Shutdown); err != nil {
		log.Error("failed to shut down http server", observability.Err(err))
	}
	if err := shutdownWithin(cfg.HTTP.ShutdownTimeout, metricsSvc.Close); err != nil {
		log.Error("failed to stop generation jobs", observability.Err(err))
	}

	log.Info("Graceful stopping gRPC server...")
	server.GracefulStop()
	log.Info("gRPC server stopped")

	if err := shutdownWithin(cfg.HTTP.ShutdownTimeout, obs.Close); err != nil {
		log.Error("failed to close observability", observability.Err(err))
	}
	return runErr
}

// newHTTPServer returns a server whose request contexts are all derived from
// one base context, cancelled by the returned func.
func newHTTPServer(cfg config.HTTPConfig, handler http.Handler) (*http.Server, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return base },
	}, cancel
}

// shutdownWithin runs one shutdown step with its own deadline.
func shutdownWithin(timeout time.Duration, step func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return step(ctx)
}

func setHealth(ctx context.Context, hs *health.Server, factory repository.UnitOfWorkFactory, log observability.Logger) {
	if err := factory.Ping(ctx); err != nil {
		if ctx.Err() == nil {
			log.Error("job store ping failed, server marked as not serving", observability.Err(err))
		}
		hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		return
	}
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
}
