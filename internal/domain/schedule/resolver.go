// Package schedule implements schedule-plan resolution (§4.3): turning a
// channel's date-independent SchedulePlanArtifact into a concrete
// ScheduleDayArtifact for one broadcast date, deterministically and without
// any dependency on "now".
package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/domain/model"
)

// Config carries the channel-level settings schedule resolution needs (§4.3).
type Config struct {
	ChannelID        string
	Location         *time.Location // channel timezone
	GridBlockMinutes int            // one of 15, 30, 60
}

// Resolver resolves SchedulePlanArtifacts into ScheduleDayArtifacts.
type Resolver struct {
	cfg  Config
	lib  assetlibrary.Library
	seq  *SequenceStore
}

// NewResolver builds a Resolver over the given asset library and sequence store.
func NewResolver(cfg Config, lib assetlibrary.Library, seq *SequenceStore) *Resolver {
	return &Resolver{cfg: cfg, lib: lib, seq: seq}
}

// ResolveDay runs the §4.3 algorithm for one broadcast date (YYYY-MM-DD, in
// the channel's local timezone).
func (r *Resolver) ResolveDay(ctx context.Context, plan model.SchedulePlanArtifact, broadcastDate string) (model.ScheduleDayArtifact, error) {
	localMidnight, err := time.ParseInLocation("2006-01-02", broadcastDate, r.cfg.Location)
	if err != nil {
		return model.ScheduleDayArtifact{}, fmt.Errorf("parse broadcast date %q: %w", broadcastDate, err)
	}

	eligible := r.eligibleZones(plan.Zones, localMidnight)
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].LocalStartMinute < eligible[j].LocalStartMinute
	})

	day := model.ScheduleDayArtifact{
		ChannelID:     r.cfg.ChannelID,
		BroadcastDate: broadcastDate,
		PlanID:        plan.PlanID,
	}

	for _, zone := range eligible {
		slots, err := r.resolveZoneSlots(ctx, zone, localMidnight)
		if err != nil {
			return model.ScheduleDayArtifact{}, err
		}
		day.Slots = append(day.Slots, slots...)
	}

	sort.Slice(day.Slots, func(i, j int) bool { return day.Slots[i].UTCStartMs < day.Slots[j].UTCStartMs })
	return day, nil
}

func (r *Resolver) eligibleZones(zones []model.ZoneDirective, localMidnight time.Time) []model.ZoneDirective {
	weekday := int(localMidnight.Weekday())
	dateStr := localMidnight.Format("2006-01-02")

	var out []model.ZoneDirective
	for _, z := range zones {
		if len(z.DaysOfWeek) > 0 {
			found := false
			for _, d := range z.DaysOfWeek {
				if d == weekday {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if z.EffectiveFrom != "" && dateStr < z.EffectiveFrom {
			continue
		}
		if z.EffectiveTo != "" && dateStr > z.EffectiveTo {
			continue
		}
		out = append(out, z)
	}
	return out
}

// dstOffsetShiftMinutes returns the UTC-offset delta (in minutes) between
// local midnight and local midnight of the following day. A non-zero value
// means the broadcast date crosses a DST transition in this zone.
func dstOffsetShiftMinutes(localMidnight time.Time) int {
	_, offsetToday := localMidnight.Zone()
	_, offsetTomorrow := localMidnight.AddDate(0, 0, 1).Zone()
	return (offsetTomorrow - offsetToday) / 60
}

func (r *Resolver) resolveZoneSlots(ctx context.Context, zone model.ZoneDirective, localMidnight time.Time) ([]model.ResolvedSlot, error) {
	if len(zone.ProgramRefs) == 0 {
		return nil, &ErrEmptyProgramFamily{ZoneID: zone.ZoneID}
	}

	grid := r.cfg.GridBlockMinutes
	slotCount := (zone.LocalEndMinute - zone.LocalStartMinute) / grid

	shift := dstOffsetShiftMinutes(localMidnight)
	if shift != 0 {
		switch zone.DSTPolicy {
		case model.DSTReject:
			return nil, &ErrDSTReject{ZoneID: zone.ZoneID, BroadcastDate: localMidnight.Format("2006-01-02")}
		case model.DSTShrinkOneBlock:
			slotCount--
		case model.DSTExpandOneBlock:
			slotCount++
		default:
			return nil, &ErrDSTReject{ZoneID: zone.ZoneID, BroadcastDate: localMidnight.Format("2006-01-02")}
		}
	}
	if slotCount <= 0 {
		return nil, nil
	}

	zoneStart := localMidnight.Add(time.Duration(zone.LocalStartMinute) * time.Minute)
	familyKey := model.FamilyKey{ChannelID: r.cfg.ChannelID, ZoneID: zone.ZoneID, FamilyID: zone.FamilyID}

	slots := make([]model.ResolvedSlot, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		slotStartUTC := zoneStart.Add(time.Duration(i*grid) * time.Minute).UTC().UnixMilli()
		slotEndUTC := slotStartUTC + int64(grid)*60_000

		cursor := r.seq.Current(familyKey)
		idx := cursor.NextIndex % len(zone.ProgramRefs)
		ref := zone.ProgramRefs[idx]

		asset, err := r.lib.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve %v in zone %s: %w", ref, zone.ZoneID, err)
		}

		used := r.seq.Advance(familyKey, slotStartUTC)

		slots = append(slots, model.ResolvedSlot{
			UTCStartMs:    slotStartUTC,
			UTCEndMs:      slotEndUTC,
			ZoneID:        zone.ZoneID,
			ProgramRef:    ref,
			ResolvedAsset: asset,
			SequenceUsed:  used,
		})
	}
	return slots, nil
}
