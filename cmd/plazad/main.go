package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plaza-social/go-client/internal/app"
	"plaza-social/go-client/internal/broadcast"
	"plaza-social/go-client/internal/config"
	"plaza-social/go-client/internal/endpointpool"
	"plaza-social/go-client/internal/platform/ratelimiter"
	"plaza-social/go-client/internal/session"
	"plaza-social/go-client/internal/signing"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to plaza.yaml (optional)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus listen address override (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("plazad version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "plazad failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, metricsAddr string) error {
	cfg := config.LoadFromPath(configPath)
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	logger := app.DefaultLogger()
	reg := prometheus.NewRegistry()

	pool, err := endpointpool.New(endpointpool.Config{
		Endpoints:    cfg.Endpoints,
		CallTimeout:  cfg.CallTimeout,
		ProbeRetries: cfg.ProbeRetries,
	}, nil, logger)
	if err != nil {
		return err
	}
	pool.SetMetrics(endpointpool.NewMetrics(reg))

	if err := pool.Start(ctx); err != nil {
		if !errors.Is(err, endpointpool.ErrDegraded) {
			return err
		}
		logger.Warn("starting degraded, no endpoint answered the probe")
	}
	defer pool.Close()

	keyPath, err := signing.NewKeyPath(pool, cfg.ChainID, logger)
	if err != nil {
		return err
	}
	// Agent transport is provided by the desktop shell; headless runs fall
	// back to key signing only.
	router := signing.NewRouter(nil, keyPath)

	caster := broadcast.NewWithDeadline(router, cfg.BroadcastDeadline, logger)
	caster.Register(reg)

	passphrase := os.Getenv("PLAZA_SESSION_PASSPHRASE")
	sessions := session.NewStore(cfg.SessionPath, cfg.DraftsPath, passphrase, logger)

	svc := app.NewService(app.Deps{
		Logger:      logger,
		Broadcaster: caster,
		Limiter:     ratelimiter.New(cfg.SubmitPerSecond, cfg.SubmitBurst, 10*time.Minute),
		Sessions:    sessions,
	})
	if err := svc.Register(reg); err != nil {
		return err
	}
	if id, ok, err := svc.Resume(); err != nil {
		logger.Warn("session resume failed", "error", err)
	} else if ok {
		logger.Info("resumed", "actor", id.Actor)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, logger.With("component", "metrics"))
	}

	logger.Info("plazad started",
		"endpoints", len(cfg.Endpoints),
		"signing_mode", cfg.SigningMode,
		"broadcast_deadline", cfg.BroadcastDeadline.String())

	<-ctx.Done()
	logger.Info("plazad stopping")
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}
