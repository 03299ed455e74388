// Package horizon implements the Horizon Manager (§4.8): the sole
// component permitted to trigger schedule resolution and execution-window
// extension. Every other consumer — ChannelManager, the EPG API — performs
// read-only lookups and must treat missing data as a planning failure, not
// a cue to plan it themselves.
package horizon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/breakfill"
	"github.com/retrovue/core/internal/clock"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/domain/schedule"
	"github.com/retrovue/core/internal/execwindow"
	"github.com/retrovue/core/internal/log"
	"github.com/retrovue/core/internal/metrics"
	"github.com/retrovue/core/internal/segmentation"
	"github.com/retrovue/core/internal/translog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Mode controls how much authority the Horizon Manager exercises over a
// channel. legacy and shadow exist to support a staged rollout onto
// authoritative planning without a hard cutover.
type Mode string

const (
	// ModeLegacy: extension never runs; the manager only answers reads
	// against whatever is already in the window (pre-rollout compatibility).
	ModeLegacy Mode = "legacy"
	// ModeShadow: extension runs and is logged exactly as in
	// ModeAuthoritative, and GetNextEntry serves its output; only the mode
	// label on the extension log lines differs.
	ModeShadow Mode = "shadow"
	// ModeAuthoritative: the manager is the only path that may resolve and
	// extend; this is the steady-state production mode.
	ModeAuthoritative Mode = "authoritative"
)

// NoScheduleDataError is raised on a read miss. Per §4.8, a missing read is
// a planning failure to surface, never an implicit trigger to plan.
type NoScheduleDataError struct {
	ChannelID  string
	AfterUTCMs int64
}

func (e *NoScheduleDataError) Error() string {
	return fmt.Sprintf("no schedule data for channel %s after %d", e.ChannelID, e.AfterUTCMs)
}

// ChannelConfig carries one channel's planning inputs and target depth.
type ChannelConfig struct {
	ChannelID       string
	TargetDepthMs   int64 // H_target_ms; overridable per channel (see HorizonConfig)
	GridBlockMinutes int
	AnchorUTCMs     int64 // broadcast-day anchor this channel's grid steps from
	ResolverCfg     schedule.Config
	SegmenterCfg    segmentation.Config
}

// HorizonConfig is the manager-wide configuration, including the
// per-channel target-depth overrides carried over from the original
// tuning knobs (see SPEC_FULL.md, "Supplemented features").
type HorizonConfig struct {
	Mode                    Mode
	DefaultTargetDepthMs    int64
	PerChannelTargetDepthMs map[string]int64
}

func (c HorizonConfig) targetDepthFor(channelID string, fallback int64) int64 {
	if d, ok := c.PerChannelTargetDepthMs[channelID]; ok {
		return d
	}
	if fallback > 0 {
		return fallback
	}
	return c.DefaultTargetDepthMs
}

// Manager is the Horizon Manager runtime.
type Manager struct {
	cfg   HorizonConfig
	clk   clock.MasterClock
	lib   assetlibrary.Library
	group singleflight.Group

	mu       sync.RWMutex
	channels map[string]ChannelConfig
	sequence map[string]*schedule.SequenceStore
	stores   map[string]*execwindow.Store
	logStore *translog.Store
}

// NewManager builds a Horizon Manager. logStore may be nil to skip
// durable persistence of locked transmission logs (tests).
func NewManager(cfg HorizonConfig, clk clock.MasterClock, lib assetlibrary.Library, logStore *translog.Store) *Manager {
	return &Manager{
		cfg:      cfg,
		clk:      clk,
		lib:      lib,
		channels: make(map[string]ChannelConfig),
		sequence: make(map[string]*schedule.SequenceStore),
		stores:   make(map[string]*execwindow.Store),
		logStore: logStore,
	}
}

// RegisterChannel adds a channel under management, backed by an
// ExecutionWindowStore the manager owns exclusively.
func (m *Manager) RegisterChannel(cfg ChannelConfig, store *execwindow.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[cfg.ChannelID] = cfg
	m.stores[cfg.ChannelID] = store
	m.sequence[cfg.ChannelID] = schedule.NewSequenceStore()
}

// Store returns the execution-window store for a registered channel, for
// read-only consumers (ChannelManager, EPG API).
func (m *Manager) Store(channelID string) (*execwindow.Store, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[channelID]
	return s, ok
}

// GetNextEntry is the sole read path consumers use; a miss is always a
// NoScheduleDataError, never an implicit extend.
func (m *Manager) GetNextEntry(channelID string, afterUTCMs int64) (model.ExecutionEntry, error) {
	store, ok := m.Store(channelID)
	if !ok {
		return model.ExecutionEntry{}, &NoScheduleDataError{ChannelID: channelID, AfterUTCMs: afterUTCMs}
	}
	entry, ok := store.GetNextEntry(afterUTCMs)
	if !ok {
		return model.ExecutionEntry{}, &NoScheduleDataError{ChannelID: channelID, AfterUTCMs: afterUTCMs}
	}
	return entry, nil
}

// ExtendAll runs Extend for every registered channel concurrently, bounded
// by errgroup, and is the periodic tick driving planning forward. In
// ModeLegacy it is a no-op.
func (m *Manager) ExtendAll(ctx context.Context, plans map[string]model.SchedulePlanArtifact) error {
	if m.cfg.Mode == ModeLegacy {
		return nil
	}

	m.mu.RLock()
	channelIDs := make([]string, 0, len(m.channels))
	for id := range m.channels {
		channelIDs = append(channelIDs, id)
	}
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range channelIDs {
		id := id
		plan, ok := plans[id]
		if !ok {
			continue
		}
		g.Go(func() error { return m.Extend(gctx, id, plan) })
	}
	return g.Wait()
}

// Extend runs the §4.8 extension algorithm for one channel: while the
// window's end is within TargetDepthMs of now, resolve, segment, fill, and
// lock the next broadcast day and add its entries to the store. Concurrent
// calls for the same channel collapse into one planning pass via
// singleflight. In ModeLegacy it is a no-op.
func (m *Manager) Extend(ctx context.Context, channelID string, plan model.SchedulePlanArtifact) error {
	if m.cfg.Mode == ModeLegacy {
		return nil
	}
	_, err, _ := m.group.Do(channelID, func() (interface{}, error) {
		return nil, m.extendLocked(ctx, channelID, plan)
	})
	return err
}

func (m *Manager) extendLocked(ctx context.Context, channelID string, plan model.SchedulePlanArtifact) (err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.HorizonExtensionsTotal.WithLabelValues(channelID, outcome).Inc()
	}()

	m.mu.RLock()
	cfg, ok := m.channels[channelID]
	store := m.stores[channelID]
	seq := m.sequence[channelID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("horizon: channel %s not registered", channelID)
	}

	targetDepth := m.cfg.targetDepthFor(channelID, cfg.TargetDepthMs)
	resolver := schedule.NewResolver(cfg.ResolverCfg, m.lib, seq)
	segmenter := segmentation.NewSegmenter(cfg.SegmenterCfg)
	filler := breakfill.NewFiller(m.lib)
	assembler := translog.NewAssembler(cfg.GridBlockMinutes)

	logger := log.FromContext(ctx).With().Str("channel_id", channelID).Str("mode", string(m.cfg.Mode)).Logger()

	for {
		now := m.clk.NowUTCMs()
		windowEnd, ok := store.GetWindowEnd()
		if !ok {
			windowEnd = now
		}
		if windowEnd-now >= targetDepth {
			break
		}

		broadcastDate := nextBroadcastDate(cfg.AnchorUTCMs, windowEnd, cfg.ResolverCfg.Location)
		day, err := resolver.ResolveDay(ctx, plan, broadcastDate)
		if err != nil {
			return fmt.Errorf("horizon: resolve %s/%s: %w", channelID, broadcastDate, err)
		}

		filledBlocks := make([]model.FilledBlock, 0, len(day.Slots))
		for _, slot := range day.Slots {
			segmented, err := segmenter.Segment(slot)
			if err != nil {
				return fmt.Errorf("horizon: segment %s/%s: %w", channelID, broadcastDate, err)
			}
			segmented.ChannelID = channelID
			filled, err := filler.FillBlock(ctx, segmented)
			if err != nil {
				return fmt.Errorf("horizon: fill %s/%s: %w", channelID, broadcastDate, err)
			}
			filled.ChannelID = channelID
			filledBlocks = append(filledBlocks, filled)
		}

		tlog, err := assembler.Assemble(channelID, broadcastDate, windowEnd, filledBlocks)
		if err != nil {
			return fmt.Errorf("horizon: assemble %s/%s: %w", channelID, broadcastDate, err)
		}
		locked, err := translog.Lock(tlog)
		if err != nil {
			return fmt.Errorf("horizon: lock %s/%s: %w", channelID, broadcastDate, err)
		}

		if m.logStore != nil {
			if err := m.logStore.Save(ctx, locked); err != nil {
				logger.Error().Err(err).Str("broadcast_date", broadcastDate).Msg("persist locked transmission log failed")
			}
		}

		entries := make([]model.ExecutionEntry, 0, len(locked.Entries))
		for _, e := range locked.Entries {
			entries = append(entries, model.ExecutionEntry{
				BlockID:    e.BlockID,
				ChannelID:  channelID,
				StartUTCMs: e.StartUTCMs,
				EndUTCMs:   e.EndUTCMs,
				Segments:   e.Segments,
			})
		}
		store.AddEntries(entries) // idempotent on duplicate block_id (§4.8)
		store.Evict(now)

		if end, ok := store.GetWindowEnd(); ok {
			metrics.HorizonWindowDepthSeconds.WithLabelValues(channelID).Set(float64(end-now) / 1000)
		}

		logger.Info().Str("broadcast_date", broadcastDate).Int("blocks", len(entries)).Msg("extended execution window")
	}
	return nil
}

// nextBroadcastDate picks the broadcast-date string for the day starting
// just after windowEnd, anchored to the channel's broadcast-day boundary
// and expressed in the channel's local timezone (the same zone the
// resolver enumerates grid slots in).
func nextBroadcastDate(anchorUTCMs, windowEnd int64, loc *time.Location) string {
	const dayMs = 24 * 60 * 60 * 1000
	delta := windowEnd - anchorUTCMs
	daysSinceAnchor := delta / dayMs
	if delta%dayMs != 0 {
		daysSinceAnchor++
	}
	dayStartMs := anchorUTCMs + daysSinceAnchor*dayMs
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(dayStartMs).In(loc).Format("2006-01-02")
}
