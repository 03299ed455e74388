// Command retrovue-core runs the playout scheduler: it wires the Horizon
// Manager, one ChannelManager per configured channel, and the read-only
// EPG and metrics HTTP surfaces, then blocks until told to shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/retrovue/core/internal/config"
	xglog "github.com/retrovue/core/internal/log"
	"github.com/retrovue/core/internal/telemetry"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "retrovue-core", Version: version})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "retrovue-core", Version: version})

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    "retrovue-core",
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	cfgHolder := config.NewConfigHolder(cfg, loader, *configPath)
	if err := cfgHolder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("config watcher disabled")
	}
	defer cfgHolder.Stop()

	app, err := wire(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("wire application")
	}
	defer app.Close()

	app.Start(ctx)

	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
	epgSrv := &http.Server{Addr: cfg.EPGAPI.Addr, Handler: app.epgAPI.Router()}

	go serve(xglog.WithComponent("metrics"), metricsSrv)
	go serve(xglog.WithComponent("epgapi"), epgSrv)

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	_ = epgSrv.Shutdown(shutdownCtx)
	app.Stop(shutdownCtx)
}

func serve(logger zerolog.Logger, srv *http.Server) {
	logger.Info().Str("addr", srv.Addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server stopped unexpectedly")
	}
}
