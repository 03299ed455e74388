// Package model defines the shared, minimal entities of the playout core:
// editorial intent (plans, zones), its per-day resolution, and the
// execution-ready transmission log that drives the runtime.
//
// All wall-clock quantities are integer milliseconds since the Unix epoch
// (UTC). Floating point never appears on a timing path; see internal/timebase
// for the frame-indexed fence arithmetic built on top of these fields.
package model

// ProgramRefKind tags how a ProgramRef resolves to a ResolvedAsset.
type ProgramRefKind string

const (
	ProgramRefEpisode ProgramRefKind = "episode"
	ProgramRefMovie   ProgramRefKind = "movie"
	ProgramRefVirtual ProgramRefKind = "virtual"
)

// ProgramRef is a tagged identifier for something schedulable.
type ProgramRef struct {
	Kind ProgramRefKind
	ID   string
}

// FamilyKey identifies the rotation family a ProgramRef belongs to within a
// zone. Two zones referencing the same underlying program family never
// share SequenceState: the key always carries both identities explicitly
// (see SPEC_FULL.md, "SequenceState family key").
type FamilyKey struct {
	ChannelID  string
	ZoneID     string
	FamilyID   string
}

// MarkerKind distinguishes first-class (authored) from a lookup-only kind.
// Second-class breakpoints are computed, never stored as markers.
type MarkerKind string

const (
	MarkerChapter      MarkerKind = "chapter"
	MarkerAdBreakHint  MarkerKind = "ad_break_hint"
)

// Marker is a single first-class breakpoint candidate within an asset.
type Marker struct {
	Kind      MarkerKind
	OffsetMs  int64
	Label     string
}

// ResolvedAsset is an immutable, once-measured media reference.
type ResolvedAsset struct {
	AssetURI   string
	DurationMs int64
	Markers    []Marker
}

// DSTPolicy controls how a zone's slot count is adjusted across a DST
// transition in the channel's local timezone.
type DSTPolicy string

const (
	DSTReject          DSTPolicy = "reject"
	DSTShrinkOneBlock  DSTPolicy = "shrink_one_block"
	DSTExpandOneBlock  DSTPolicy = "expand_one_block"
)

// ZoneDirective is a named time window in the broadcast day.
type ZoneDirective struct {
	ZoneID             string
	ChannelID          string
	LocalStartMinute   int // minutes since local midnight, [0, 1440)
	LocalEndMinute     int // exclusive; may exceed 1440 for windows crossing midnight
	DaysOfWeek         []int // 0=Sunday .. 6=Saturday; empty means every day
	EffectiveFrom      string // YYYY-MM-DD, inclusive
	EffectiveTo        string // YYYY-MM-DD, inclusive; empty means open-ended
	DSTPolicy          DSTPolicy
	FamilyID           string // the rotation family all ProgramRefs in this zone share
	ProgramRefs        []ProgramRef
}

// SchedulePlanArtifact is a channel's date-independent editorial intent.
type SchedulePlanArtifact struct {
	PlanID            string
	ChannelID         string
	Priority          int
	ActivationFromUTC int64
	ActivationToUTC   int64 // 0 means open-ended
	Zones             []ZoneDirective
}

// SequenceState is the per (channel, zone, family) rotation cursor.
type SequenceState struct {
	Key          FamilyKey
	NextIndex    int
	LastRotated  int64 // grid_start_utc_ms of the slot that last advanced this cursor
}

// ResolvedSlot is a single grid slot bound to a concrete asset.
type ResolvedSlot struct {
	UTCStartMs    int64
	UTCEndMs      int64
	ZoneID        string
	ProgramRef    ProgramRef
	ResolvedAsset ResolvedAsset
	SequenceUsed  SequenceState
}

// ScheduleDayArtifact is the resolution of a plan for one channel/date.
type ScheduleDayArtifact struct {
	ChannelID     string
	BroadcastDate string // YYYY-MM-DD, in the channel's local timezone
	PlanID        string
	Slots         []ResolvedSlot
}

// EPGEvent is a viewer-facing projection of a ResolvedSlot.
type EPGEvent struct {
	ChannelID   string
	UTCStartMs  int64
	UTCEndMs    int64
	Title       string
	Synopsis    string
	ProgramRef  ProgramRef
}

// ChannelType drives segmentation strategy (§4.5).
type ChannelType string

const (
	ChannelTypeMovie   ChannelType = "movie"
	ChannelTypeNetwork ChannelType = "network"
)

// TransitionTag marks how a segment boundary was produced.
type TransitionTag string

const (
	TransitionNone TransitionTag = "none"
	TransitionFade TransitionTag = "fade"
)

// BreakpointClass records whether a break landed on an authored marker or a
// computed equal-division point; persisted into as-run segments per
// SPEC_FULL.md's resolution of the "second-class breakpoint persistence"
// open question.
type BreakpointClass string

const (
	BreakpointNone        BreakpointClass = "none"
	BreakpointFirstClass  BreakpointClass = "first_class"
	BreakpointSecondClass BreakpointClass = "second_class"
)

// ContentSegmentSpec is one contiguous span of program content within a
// SegmentedBlock, prior to break filling.
type ContentSegmentSpec struct {
	AssetURI           string
	AssetStartOffsetMs int64
	DurationMs         int64
	Transition         TransitionTag
	BreakpointClass    BreakpointClass
}

// BreakSpec is an unmaterialized ad-break slot within a SegmentedBlock.
type BreakSpec struct {
	DurationMs int64
	BreakIndex int
}

// SegmentedBlock is a slot after act-segmentation: alternating content and
// (not yet filled) breaks.
type SegmentedBlock struct {
	ChannelID    string
	UTCStartMs   int64
	UTCEndMs     int64
	Content      []ContentSegmentSpec
	Breaks       []BreakSpec
	SourceSlot   ResolvedSlot
}

// SegmentType enumerates the executable unit kinds (§3, GLOSSARY).
type SegmentType string

const (
	SegmentContent    SegmentType = "content"
	SegmentFiller     SegmentType = "filler"
	SegmentPromo      SegmentType = "promo"
	SegmentAd         SegmentType = "ad"
	SegmentCommercial SegmentType = "commercial"
	SegmentPad        SegmentType = "pad"
)

// ScheduledSegment is the smallest executable span within a block.
type ScheduledSegment struct {
	SegmentType        SegmentType
	AssetURI           string
	AssetStartOffsetMs int64
	SegmentDurationMs  int64
	Transition         TransitionTag
	BreakpointClass    BreakpointClass
	BreakIndex         int  // -1 for content segments
	RuntimeRecovery    bool // true for pad segments eligible as a recovery exemption (INV-RUNWAY-002)
}

// FilledBlock is a SegmentedBlock with every BreakSpec materialized.
type FilledBlock struct {
	ChannelID  string
	UTCStartMs int64
	UTCEndMs   int64
	Segments   []ScheduledSegment
}

// TransmissionLogEntry is an execution-ready, frozen block.
type TransmissionLogEntry struct {
	BlockID    string
	BlockIndex int
	StartUTCMs int64
	EndUTCMs   int64
	Segments   []ScheduledSegment
}

// TransmissionLogState is the write-once lifecycle of a TransmissionLog.
type TransmissionLogState string

const (
	TransmissionLogBuilding TransmissionLogState = "building"
	TransmissionLogLocked   TransmissionLogState = "locked"
)

// TransmissionLog is a channel's ordered, grid-aligned, contiguous log for
// one broadcast date.
type TransmissionLog struct {
	ChannelID         string
	BroadcastDate     string
	GridBlockMinutes  int
	State             TransmissionLogState
	Entries           []TransmissionLogEntry
}

// ExecutionEntry is the structural twin of a TransmissionLogEntry held by
// the ExecutionWindowStore.
type ExecutionEntry struct {
	BlockID    string
	ChannelID  string
	StartUTCMs int64
	EndUTCMs   int64
	Segments   []ScheduledSegment
}

// OverrideLayer names the artifact layer an operator override applies to.
type OverrideLayer string

const (
	OverrideLayerSchedulePlan OverrideLayer = "schedule_plan"
	OverrideLayerScheduleDay  OverrideLayer = "schedule_day"
	OverrideLayerTransmission OverrideLayer = "transmission_log"
)

// OverrideRecord is a durable, monotonically numbered attestation that must
// precede any write that overrides a locked artifact (INV-OVERRIDE-RECORD-PRECEDES-ARTIFACT-001).
type OverrideRecord struct {
	Sequence     int64
	RecordID     string
	Layer        OverrideLayer
	TargetID     string
	ReasonCode   string
	CreatedUTCMs int64
}

// AsRunSegment is an append-only attestation of one segment actually played.
type AsRunSegment struct {
	SegmentID          string
	BlockID            string
	ChannelID          string
	SegmentType        SegmentType
	AssetURI           string
	AssetStartOffsetMs int64
	PlannedDurationMs  int64
	ActualDurationMs   int64
	BreakpointClass    BreakpointClass
	RuntimeRecovery    bool
	ObservedUTCMs      int64
}

// AsRunBlock is an append-only attestation of one block actually played.
type AsRunBlock struct {
	BlockID       string
	ChannelID     string
	StartUTCMs    int64
	EndUTCMs      int64
	Segments      []AsRunSegment
	Incomplete    bool // set when the block is attested without a BlockCompleted (session ended or feed loop failed)
}
