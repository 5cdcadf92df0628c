package yieldd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"yieldplus/config"
	"yieldplus/core/events"
	"yieldplus/native/common"
	"yieldplus/observability"
	"yieldplus/observability/logging"
	telemetry "yieldplus/observability/otel"
	"yieldplus/storage"
)

// Main initialises and runs the Yield+ daemon.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "yieldd.toml", "path to yieldd configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Environment
	if env == "" {
		env = strings.TrimSpace(os.Getenv("YIELD_ENV"))
	}
	logger, logCloser := logging.SetupWithOptions("yieldd", env, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer func() { _ = logCloser.Close() }()

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "yieldd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	secret, err := cfg.ResolveJWTSecret()
	if err != nil {
		return err
	}
	auth, err := NewAuthenticator(secret, logger)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	db, err := openDatabase(cfg.DataDir, cfg.Backend)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := NewNode(Options{
		DB:                db,
		Accounts:          cfg.Accounts,
		ResetActiveOnEdit: cfg.ResetActiveOnEdit,
		Pauses:            common.NewPauses(cfg.Pauses.Modules()...),
		Quota:             cfg.Quota.Runtime(),
		Emitter:           events.Fanout{observability.MetricsEmitter{}, LogEmitter{Logger: logger}},
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("init node: %w", err)
	}

	if cfg.GenesisFile != "" {
		genesis, err := config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
		applied, err := node.ApplyGenesis(genesis)
		if err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
		if applied {
			logger.Info("genesis applied", slog.String("file", cfg.GenesisFile))
		}
	}

	var scheduler *Scheduler
	if cfg.Oracle.Enabled {
		scheduler, err = NewScheduler(node, cfg.Oracle, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	handler, err := NewServer(node, ServerConfig{Auth: auth, RateLimit: cfg.RateLimit, Logger: logger})
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := listen(cfg.ListenAddress, cfg.MaxConnections)
	if err != nil {
		return err
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("yieldd listening", slog.String("address", listener.Addr().String()), slog.Int("max_connections", cfg.MaxConnections))
		errs <- httpServer.Serve(listener)
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if scheduler != nil {
			scheduler.Stop(shutdownCtx)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if scheduler != nil {
			scheduler.Stop(context.Background())
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func openDatabase(dir, backend string) (storage.Database, error) {
	if strings.TrimSpace(dir) == "" {
		return storage.NewMemDB(), nil
	}
	if backend == config.BackendBolt {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(dir, "state.db"))
	}
	return storage.NewLevelDB(dir)
}

// listen opens the API listener, capping concurrent connections when limit is
// positive.
func listen(addr string, limit int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}
	return ln, nil
}
