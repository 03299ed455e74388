package channelmanager

import (
	"context"
	"sync"
	"time"
)

// teardownBound is how long TEARDOWN-IMMEDIATE allows a channel's runtime
// to finish stopping once the last viewer detaches, before the caller
// should treat the stop as stuck and escalate.
const teardownBound = 2 * time.Second

// ViewerTracker implements the viewer-lifecycle invariants (§4.10.4):
// exactly one subscription per channel regardless of viewer count
// (SINGLE-SUBSCRIPTION), a start callback fired on the 0→1 transition and a
// stop callback fired on the N→0 transition (VIEWER-LIFECYCLE), with the
// stop callback bounded to teardownBound (TEARDOWN-IMMEDIATE).
type ViewerTracker struct {
	mu      sync.Mutex
	count   int
	onStart func(ctx context.Context) error
	onStop  func(ctx context.Context) error
}

// NewViewerTracker wires the start/stop callbacks that drive the boundary
// machine and feeder lifecycle for one channel.
func NewViewerTracker(onStart, onStop func(ctx context.Context) error) *ViewerTracker {
	return &ViewerTracker{onStart: onStart, onStop: onStop}
}

// Attach registers one more viewer. On the 0→1 transition it runs onStart;
// subsequent attaches are no-ops beyond the count, preserving
// SINGLE-SUBSCRIPTION (only the first viewer ever causes a sink attach).
func (v *ViewerTracker) Attach(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.count++
	if v.count == 1 && v.onStart != nil {
		if err := v.onStart(ctx); err != nil {
			v.count--
			return err
		}
	}
	return nil
}

// Detach removes one viewer. On the N→0 transition it runs onStop with a
// teardownBound deadline; a stop that blocks past the bound returns
// context.DeadlineExceeded to the caller rather than hanging indefinitely.
func (v *ViewerTracker) Detach(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.count == 0 {
		return nil
	}
	v.count--
	if v.count != 0 || v.onStop == nil {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, teardownBound)
	defer cancel()
	return v.onStop(stopCtx)
}

// Count reports the current viewer count.
func (v *ViewerTracker) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.count
}
