package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/asrun"
	"github.com/retrovue/core/internal/channelmanager"
	"github.com/retrovue/core/internal/clock"
	"github.com/retrovue/core/internal/config"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/domain/schedule"
	"github.com/retrovue/core/internal/epgapi"
	"github.com/retrovue/core/internal/execwindow"
	"github.com/retrovue/core/internal/horizon"
	xglog "github.com/retrovue/core/internal/log"
	"github.com/retrovue/core/internal/override"
	"github.com/retrovue/core/internal/playoutsession"
	"github.com/retrovue/core/internal/segmentation"
	"github.com/retrovue/core/internal/translog"
)

// app holds every long-lived component wired at startup.
type app struct {
	cfg         config.AppConfig
	clk         clock.MasterClock
	lib         assetlibrary.Library
	horizonMgr  *horizon.Manager
	sink        *playoutsession.GRPCSinkClient
	translogDB  *translog.Store
	asrunDB     *asrun.Store
	overrideDB  *override.Store
	channels    map[string]*channelmanager.Channel
	execMirrors map[string]*execwindow.DurableMirror

	epgAPI *epgapi.Server

	ticker   *time.Ticker
	tickDone chan struct{}
}

// noDayProvider satisfies epgapi.DayProvider until a schedule-plan
// authoring surface feeds day artifacts into this binary: the Horizon
// Manager only retains post-segmentation execution entries, not the
// pre-segmentation ScheduleDayArtifact that domain/epg.DeriveEvents needs,
// so every read is honestly reported as a miss rather than fabricated.
type noDayProvider struct{}

func (noDayProvider) EventsForDay(channelID, broadcastDate string) ([]model.EPGEvent, error) {
	return nil, &horizon.NoScheduleDataError{ChannelID: channelID, AfterUTCMs: 0}
}

func wire(cfg config.AppConfig) (*app, error) {
	clk := clock.Real()

	var lib assetlibrary.Library = assetlibrary.NewMemoryLibrary()
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		lib = assetlibrary.NewCachedLibrary(lib, rdb, cfg.CacheTTL())
	}

	translogDB, err := translog.OpenStore(filepath.Join(cfg.DataDir, "transmission_logs.db"))
	if err != nil {
		return nil, fmt.Errorf("open transmission log store: %w", err)
	}
	asrunDB, err := asrun.OpenStore(filepath.Join(cfg.DataDir, "asrun.db"))
	if err != nil {
		return nil, fmt.Errorf("open as-run store: %w", err)
	}
	overrideDB, err := override.OpenStore(filepath.Join(cfg.DataDir, "overrides.db"))
	if err != nil {
		return nil, fmt.Errorf("open override store: %w", err)
	}

	horizonCfg := horizon.HorizonConfig{
		Mode:                    horizon.Mode(cfg.Horizon.Mode),
		DefaultTargetDepthMs:    int64(cfg.Horizon.DefaultTargetDepthHours) * 3_600_000,
		PerChannelTargetDepthMs: make(map[string]int64, len(cfg.Horizon.PerChannelTargetDepth)),
	}
	for id, hours := range cfg.Horizon.PerChannelTargetDepth {
		horizonCfg.PerChannelTargetDepthMs[id] = int64(hours) * 3_600_000
	}
	horizonMgr := horizon.NewManager(horizonCfg, clk, lib, translogDB)

	var sink *playoutsession.GRPCSinkClient
	if cfg.Sink.Target != "" {
		sink, err = playoutsession.Dial(context.Background(), cfg.Sink.Target, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("dial sink %s: %w", cfg.Sink.Target, err)
		}
	}

	channels := make(map[string]*channelmanager.Channel, len(cfg.Channels))
	execMirrors := make(map[string]*execwindow.DurableMirror, len(cfg.Channels))
	for _, chCfg := range cfg.Channels {
		loc, err := time.LoadLocation(chCfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("channel %s: load timezone %q: %w", chCfg.ChannelID, chCfg.Timezone, err)
		}

		store := execwindow.NewStore(6 * 3_600_000) // retain 6h behind now

		mirror, err := execwindow.OpenDurableMirror(filepath.Join(cfg.DataDir, "execwindow", chCfg.ChannelID))
		if err != nil {
			return nil, fmt.Errorf("channel %s: open execution-window mirror: %w", chCfg.ChannelID, err)
		}
		execMirrors[chCfg.ChannelID] = mirror
		store.WithMirror(mirror)

		restored, err := mirror.Restore(chCfg.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("channel %s: restore execution window from mirror: %w", chCfg.ChannelID, err)
		}
		if len(restored) > 0 {
			store.AddEntries(restored)
		}

		horizonMgr.RegisterChannel(horizon.ChannelConfig{
			ChannelID:        chCfg.ChannelID,
			TargetDepthMs:    int64(chCfg.TargetDepthHours) * 3_600_000,
			GridBlockMinutes: chCfg.GridBlockMinutes,
			ResolverCfg: schedule.Config{
				ChannelID:        chCfg.ChannelID,
				Location:         loc,
				GridBlockMinutes: chCfg.GridBlockMinutes,
			},
			SegmenterCfg: segmentation.Config{ChannelType: model.ChannelTypeNetwork},
		}, store)

		if sink == nil {
			continue
		}
		breaker := playoutsession.NewBreakerClient(chCfg.ChannelID, sink)
		session := playoutsession.NewSession(breaker, clk)
		ch, err := channelmanager.NewChannel(channelmanager.Config{
			ChannelID:     chCfg.ChannelID,
			ProgramFormat: chCfg.ProgramFormat,
			Attach:        playoutsession.AttachStreamRequest{Transport: playoutsession.TransportSRT},
			PollInterval:  clk.NewTimer(time.Second),
			// One grid block's worth of non-recovery runway must always be
			// queued ahead of the live boundary (INV-RUNWAY-001).
			PreloadBudgetMs: int64(chCfg.GridBlockMinutes) * 60_000,
		}, store, session, clk, asrunDB)
		if err != nil {
			return nil, fmt.Errorf("channel %s: build channel manager: %w", chCfg.ChannelID, err)
		}
		channels[chCfg.ChannelID] = ch
	}

	return &app{
		cfg:         cfg,
		clk:         clk,
		lib:         lib,
		horizonMgr:  horizonMgr,
		sink:        sink,
		translogDB:  translogDB,
		asrunDB:     asrunDB,
		overrideDB:  overrideDB,
		channels:    channels,
		execMirrors: execMirrors,
		epgAPI:      epgapi.NewServer(noDayProvider{}),
	}, nil
}

// Start launches the background horizon-extension ticker. Schedule plans
// themselves are authored outside this binary; the ticker is the hook a
// plan-authoring surface wires into via a future ExtendAll(ctx, plans) call.
func (a *app) Start(ctx context.Context) {
	a.ticker = time.NewTicker(time.Minute)
	a.tickDone = make(chan struct{})
	logger := xglog.WithComponent("horizon-tick")
	go func() {
		defer close(a.tickDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.ticker.C:
				logger.Debug().Msg("horizon tick (no plan source wired)")
			}
		}
	}()
}

// Stop tears down background work and waits (bounded by ctx) for the
// ticker goroutine to exit.
func (a *app) Stop(ctx context.Context) {
	if a.ticker != nil {
		a.ticker.Stop()
	}
	if a.tickDone != nil {
		select {
		case <-a.tickDone:
		case <-ctx.Done():
		}
	}
	for _, ch := range a.channels {
		_ = ch.Detach(ctx)
	}
}

// Close releases all storage handles and the sink connection.
func (a *app) Close() {
	if a.sink != nil {
		_ = a.sink.Close()
	}
	_ = a.translogDB.Close()
	_ = a.asrunDB.Close()
	_ = a.overrideDB.Close()
	for _, m := range a.execMirrors {
		_ = m.Close()
	}
}
