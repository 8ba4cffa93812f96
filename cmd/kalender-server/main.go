package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/tthaschke-rgb/kalender/internal/config"
	"github.com/tthaschke-rgb/kalender/internal/events"
	"github.com/tthaschke-rgb/kalender/internal/service/appointments"
	"github.com/tthaschke-rgb/kalender/internal/service/employees"
	"github.com/tthaschke-rgb/kalender/internal/service/settings"
	"github.com/tthaschke-rgb/kalender/internal/store"
	"github.com/tthaschke-rgb/kalender/internal/store/cache"
	"github.com/tthaschke-rgb/kalender/internal/store/sqlstore"
	"github.com/tthaschke-rgb/kalender/internal/telemetry"
	grpcTransport "github.com/tthaschke-rgb/kalender/internal/transport/grpc"
	"github.com/tthaschke-rgb/kalender/internal/transport/httpapi"
)

const serviceName = "kalender-server"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("db_driver", cfg.DatabaseDriver),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Insecure:     cfg.TelemetryInsecure,
	}, log)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", slog.Any("err", err))
		}
	}()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseDriver, cfg.DatabaseURL)...)
	db, err := sqlstore.Open(cfg.DatabaseDriver, cfg.DatabaseURL, sqlstore.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseDriver, cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := sqlstore.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	if cfg.DatabaseAutoMigrate {
		migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
		err := sqlstore.Migrate(migrateCtx, db)
		cancel()
		if err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			os.Exit(1)
		}
		log.Info("database schema up to date")
	}

	var employeeRepo store.EmployeeRepository = sqlstore.NewEmployeeRepo(db)
	var settingsRepo store.SettingsRepository = sqlstore.NewSettingsRepo(db)
	if cfg.CacheEnabled {
		cacheCfg := cache.Config{Size: cfg.CacheSize, TTL: cfg.CacheTTL}
		cachedEmployees, err := cache.NewEmployeeRepository(employeeRepo, cacheCfg, log)
		if err != nil {
			log.Error("employee cache init failed", slog.Any("err", err))
			os.Exit(1)
		}
		cachedSettings, err := cache.NewSettingsRepository(settingsRepo, cacheCfg, log)
		if err != nil {
			log.Error("settings cache init failed", slog.Any("err", err))
			os.Exit(1)
		}
		employeeRepo, settingsRepo = cachedEmployees, cachedSettings
		log.Info("read cache enabled", slog.Int("size", cfg.CacheSize), slog.Duration("ttl", cfg.CacheTTL))
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.EventsEnabled {
		amqpPublisher, err := events.DialAMQP(cfg.EventsAMQPURL, cfg.EventsExchange, log)
		if err != nil {
			log.Error("event broker connection failed", slog.Any("err", err), slog.String("exchange", cfg.EventsExchange))
			os.Exit(1)
		}
		publisher = amqpPublisher
		log.Info("publishing appointment events", slog.String("exchange", cfg.EventsExchange))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", slog.Any("err", err))
		}
	}()

	appointmentSvc := appointments.NewService(sqlstore.NewAppointmentRepo(db), employeeRepo, appointments.Options{
		LockTimeout: cfg.BookingLockTimeout,
		Events:      publisher,
		Logger:      log,
	})
	employeeSvc := employees.NewService(employeeRepo, log)
	settingsSvc := settings.NewService(settingsRepo, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Appointments: appointmentSvc,
		Employees:    employeeSvc,
		Settings:     settingsSvc,
		DB:           db,
	}, httpapi.Options{
		RequestTimeout: cfg.HTTPRequestTimeout,
		StaticDir:      cfg.HTTPStaticDir,
	}, log)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcTransport.NewServer(cfg.GRPCRequestTimeout, log)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	grpcServer.SetServing(true)
	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr))

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped with error", slog.Any("err", err))
			exitCode = 1
		}
	}

	shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func shutdown(log *slog.Logger, httpServer *http.Server, grpcServer *grpcTransport.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))
	grpcServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = httpServer.Close()
	} else {
		log.Info("http server stopped")
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		grpcServer.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// databaseLogArgs describes the database without leaking credentials.
func databaseLogArgs(driver, databaseURL string) []any {
	if strings.EqualFold(driver, sqlstore.DriverSQLite) || strings.EqualFold(driver, "sqlite3") {
		path := strings.TrimPrefix(databaseURL, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" {
			path = "unknown"
		}
		return []any{slog.String("db_driver", sqlstore.DriverSQLite), slog.String("db_path", path)}
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
