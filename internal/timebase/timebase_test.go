package timebase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// S1: grid math.
func TestGridStart_S1(t *testing.T) {
	// 2025-01-15T10:07:00Z in epoch ms.
	now := int64(1736935620000)
	start := GridStart(now, 30)
	end := GridEnd(start, 30)
	elapsed := ElapsedInGrid(now, 30)

	require.Equal(t, now-elapsed, start)
	require.Equal(t, int64(30*60_000), end-start)
	require.Equal(t, int64(7*60_000), elapsed)
}

func TestGridStart_Idempotent(t *testing.T) {
	now := int64(1736935620000)
	start := GridStart(now, 30)
	require.Equal(t, start, GridStart(start, 30))
}

func TestGridStart_ExactBoundary(t *testing.T) {
	// Exact grid boundary: grid_start(t) returns t.
	boundary := int64(1736937000000) // 2025-01-15T10:30:00Z
	require.Equal(t, boundary, GridStart(boundary, 30))
}

// S2: fence exact, and the ms-quantized alternative must NOT match.
func TestFenceTick_S2(t *testing.T) {
	fps := FrameRate{Num: 30000, Den: 1001}
	got, err := FenceTick(30_000, fps)
	require.NoError(t, err)
	require.Equal(t, int64(900), got)

	// The forbidden ms-quantized approximation yields 910; assert the
	// rational formula does NOT produce that number, guarding against a
	// future accidental regression to the quantized form.
	require.NotEqual(t, int64(910), got)
}

func TestFenceTick_InvalidTimebase(t *testing.T) {
	_, err := FenceTick(1000, FrameRate{Num: 0, Den: 1001})
	require.True(t, errors.Is(err, ErrInvalidTimebase))

	_, err = FenceTick(1000, FrameRate{Num: 30000, Den: 0})
	require.True(t, errors.Is(err, ErrInvalidTimebase))

	_, err = FenceTick(1000, FrameRate{Num: -1, Den: 1001})
	require.True(t, errors.Is(err, ErrInvalidTimebase))
}

func TestDeadlineOffsetNs_ExactOverLongSessions(t *testing.T) {
	fps := FrameRate{Num: 30000, Den: 1001}
	// 3 hours at ~29.97fps is ~323676 frames; sample every 37th frame up to
	// 400000 and check the deadlines strictly increase.
	prev := int64(-1)
	for n := int64(0); n < 400_000; n += 37 {
		got, err := DeadlineOffsetNs(n, fps)
		require.NoError(t, err)
		require.Greater(t, got, prev)
		prev = got
	}
}

func TestDeadlineOffsetNs_InvalidTimebase(t *testing.T) {
	_, err := DeadlineOffsetNs(10, FrameRate{Num: 30000, Den: -1})
	require.True(t, errors.Is(err, ErrInvalidTimebase))
}

func TestFenceTick_MultiHourRemainderPropagation(t *testing.T) {
	fps := FrameRate{Num: 30000, Den: 1001}
	// Two hours of elapsed ms, verify the tick count matches ceil division
	// exactly rather than drifting via repeated ms-quantized rounding.
	deltaMs := int64(2 * 60 * 60 * 1000)
	got, err := FenceTick(deltaMs, fps)
	require.NoError(t, err)

	want := (deltaMs*fps.Num + fps.Den*1000 - 1) / (fps.Den * 1000)
	require.Equal(t, want, got)
}
