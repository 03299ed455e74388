// Package timebase implements the core's deterministic, integer-only time
// transforms: grid flooring and frame-indexed fence arithmetic. Nothing in
// this package touches float64; see the FenceTick doc for why.
package timebase

import (
	"errors"
	"fmt"
)

// ErrInvalidTimebase is returned when a frame-rate fraction cannot be used
// as a timebase (non-positive denominator/numerator). It is fatal to the
// caller: programs must not attempt recovery, only surface it (§7).
var ErrInvalidTimebase = errors.New("invalid timebase")

// FrameRate is a rational frames-per-second expressed as a fraction, e.g.
// 30000/1001 for 29.97 fps.
type FrameRate struct {
	Num int64
	Den int64
}

// Validate rejects non-positive numerator/denominator.
func (f FrameRate) Validate() error {
	if f.Num <= 0 || f.Den <= 0 {
		return fmt.Errorf("%w: num=%d den=%d", ErrInvalidTimebase, f.Num, f.Den)
	}
	return nil
}

// GridStart floors nowUTCMs to the most recent grid boundary.
func GridStart(nowUTCMs int64, gridMinutes int) int64 {
	gridMs := int64(gridMinutes) * 60_000
	if gridMs <= 0 {
		return nowUTCMs
	}
	// Integer floor division that also works correctly for negative inputs
	// (epoch ms before 1970), matching "floor" rather than "truncate".
	q := nowUTCMs / gridMs
	if nowUTCMs%gridMs != 0 && nowUTCMs < 0 {
		q--
	}
	return q * gridMs
}

// GridEnd returns the exclusive end of the grid block starting at gridStartMs.
func GridEnd(gridStartMs int64, gridMinutes int) int64 {
	return gridStartMs + int64(gridMinutes)*60_000
}

// ElapsedInGrid returns how far nowUTCMs is past the start of its grid block.
func ElapsedInGrid(nowUTCMs int64, gridMinutes int) int64 {
	return nowUTCMs - GridStart(nowUTCMs, gridMinutes)
}

// RemainingInGrid returns how far nowUTCMs is from the end of its grid block.
func RemainingInGrid(nowUTCMs int64, gridMinutes int) int64 {
	start := GridStart(nowUTCMs, gridMinutes)
	return GridEnd(start, gridMinutes) - nowUTCMs
}

// FenceTick computes the exact, integer-only frame index for a duration of
// deltaMs at the given frame rate:
//
//	ceil(deltaMs * fps.Num / (fps.Den * 1000))
//
// computed as (deltaMs*fps.Num + fps.Den*1000 - 1) / (fps.Den*1000) to avoid
// floating point entirely. The ms-quantized approximation
// ceil(deltaMs / round(1000/fps)) is deliberately NOT offered anywhere in
// this package: at 30000/1001 it drifts roughly a third of a second per
// 30-second block (900 vs 910 frames — see the package tests for the S2
// scenario).
func FenceTick(deltaMs int64, fps FrameRate) (int64, error) {
	if err := fps.Validate(); err != nil {
		return 0, err
	}
	denMs := fps.Den * 1000
	numerator := deltaMs*fps.Num + denMs - 1
	return numerator / denMs, nil
}

// DeadlineOffsetNs returns the exact nanosecond offset of frame N from a
// session epoch at the given frame rate, with no floating point and no
// precision loss across multi-hour sessions:
//
//	ns_total = 1e9 * fps.Den
//	whole    = ns_total / fps.Num
//	rem      = ns_total % fps.Num
//	deadline = N*whole + (N*rem)/fps.Num
func DeadlineOffsetNs(frameIndex int64, fps FrameRate) (int64, error) {
	if err := fps.Validate(); err != nil {
		return 0, err
	}
	const nsPerSecond = 1_000_000_000
	nsTotal := nsPerSecond * fps.Den
	whole := nsTotal / fps.Num
	rem := nsTotal % fps.Num
	return frameIndex*whole + (frameIndex*rem)/fps.Num, nil
}
