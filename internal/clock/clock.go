// Package clock abstracts wall-clock and monotonic time so that every
// timing decision in the core (runway, feed-ahead due/miss, session
// delta_ms, JIP offset) can be driven deterministically in tests instead of
// the OS clock. No code on the pacing path may call time.Now directly;
// everything goes through a MasterClock obtained at construction time.
package clock

import "time"

// MasterClock is the sole clock authority on the pacing path (§5).
// NowUTCMs returns wall-clock UTC milliseconds used for schedule authority;
// MonotonicNs returns a monotonic nanosecond counter used once a session
// epoch is captured, so execution overruns never shift a deadline (§5,
// INV-TICK-DEADLINE-DISCIPLINE-001).
type MasterClock interface {
	NowUTCMs() int64
	MonotonicNs() int64
	NewTimer(d time.Duration) Timer
}

// Timer mirrors time.Timer behind an interface so fakes can fire it deterministically.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// Epoch is the immutable (utc_ms, monotonic_ns) pair captured once at
// session start. All subsequent deadlines for that session are computed in
// the monotonic domain and only ever translated back to UTC for reporting.
type Epoch struct {
	UTCMs       int64
	MonotonicNs int64
}

// Capture reads clk once and freezes the session epoch.
func Capture(clk MasterClock) Epoch {
	return Epoch{UTCMs: clk.NowUTCMs(), MonotonicNs: clk.MonotonicNs()}
}

// ToUTCMs translates a monotonic nanosecond instant back to UTC ms using
// this epoch's fixed offset.
func (e Epoch) ToUTCMs(monotonicNs int64) int64 {
	deltaNs := monotonicNs - e.MonotonicNs
	return e.UTCMs + deltaNs/int64(time.Millisecond)
}

// realClock drives MasterClock from the OS.
type realClock struct{}

// Real returns the production MasterClock.
func Real() MasterClock { return realClock{} }

func (realClock) NowUTCMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func (realClock) MonotonicNs() int64 {
	// time.Now() on all supported platforms carries a monotonic reading;
	// UnixNano strips it, so we read elapsed-since-process-start via a
	// runtime-monotonic timer stored at package init.
	return time.Since(processStart).Nanoseconds()
}

func (realClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

var processStart = time.Now()

type realTimer struct{ t *time.Timer }

func (r *realTimer) C() <-chan time.Time        { return r.t.C }
func (r *realTimer) Stop() bool                 { return r.t.Stop() }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
