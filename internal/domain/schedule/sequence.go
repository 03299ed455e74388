package schedule

import (
	"sync"

	"github.com/retrovue/core/internal/domain/model"
)

// SequenceStore holds the per (channel, zone, family) rotation cursor.
// NextIndex is a monotonic counter (never reset, never retreats); callers
// reduce it modulo the family size to pick a member. Mutation happens only
// through Advance, which is the planner's exclusive write path.
type SequenceStore struct {
	mu    sync.Mutex
	state map[model.FamilyKey]*model.SequenceState
}

// NewSequenceStore returns an empty store; all cursors start at index 0.
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{state: make(map[model.FamilyKey]*model.SequenceState)}
}

// Current returns the cursor for key, creating a fresh one (NextIndex=0) if absent.
func (s *SequenceStore) Current(key model.FamilyKey) model.SequenceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[key]
	if !ok {
		st = &model.SequenceState{Key: key}
		s.state[key] = st
	}
	return *st
}

// Advance bumps NextIndex by one and records lastRotatedMs, under a
// per-store lock (the spec's "per-key mutex" is satisfied here by a single
// map-guarding mutex; contention is negligible since advances happen only
// during planning passes, not on the runtime path).
func (s *SequenceStore) Advance(key model.FamilyKey, lastRotatedMs int64) model.SequenceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[key]
	if !ok {
		st = &model.SequenceState{Key: key}
		s.state[key] = st
	}
	st.NextIndex++
	st.LastRotated = lastRotatedMs
	return *st
}
