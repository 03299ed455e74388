// Package execwindow implements the execution-window store (§4.9): a
// thread-safe, in-memory, start_utc_ms-sorted view of the blocks
// ChannelManager is allowed to feed next, plus a bounded sliding-window
// retention policy and an optional Badger-backed durable mirror for
// warm-restart recovery.
package execwindow

import (
	"sort"
	"sync"

	"github.com/retrovue/core/internal/domain/model"
)

// Store is the in-memory execution window for one channel.
type Store struct {
	mu               sync.RWMutex
	entries          []model.ExecutionEntry
	seen             map[string]struct{} // block_id -> present, for idempotent add_entries
	retentionBehind  int64               // entries older than now-retentionBehind are evicted
	mirror           *DurableMirror      // optional; nil disables the durable tier
}

// NewStore builds an empty execution window. retentionBehindMs bounds how
// far behind "now" entries are kept before eviction; pass 0 to disable
// eviction (useful in tests that don't advance a clock).
func NewStore(retentionBehindMs int64) *Store {
	return &Store{
		entries:         nil,
		seen:            make(map[string]struct{}),
		retentionBehind: retentionBehindMs,
	}
}

// WithMirror attaches a durable mirror; every AddEntries call that succeeds
// also appends to the mirror (best-effort: a mirror write failure never
// blocks the in-memory store, since it exists only to speed up restarts).
func (s *Store) WithMirror(m *DurableMirror) *Store {
	s.mirror = m
	return s
}

// AddEntries appends unique entries (by block_id) and re-sorts by
// start_utc_ms. Duplicate block_ids are silently ignored, making extension
// idempotent (§4.8).
func (s *Store) AddEntries(entries []model.ExecutionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := false
	for _, e := range entries {
		if _, dup := s.seen[e.BlockID]; dup {
			continue
		}
		s.seen[e.BlockID] = struct{}{}
		s.entries = append(s.entries, e)
		added = true
	}
	if !added {
		return
	}
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].StartUTCMs < s.entries[j].StartUTCMs })

	if s.mirror != nil {
		for _, e := range entries {
			_ = s.mirror.Append(e) // best-effort; see doc comment
		}
	}
}

// Evict drops entries whose EndUTCMs falls before nowUTCMs-retentionBehind,
// implementing the bounded sliding-window retention policy. Callers run
// this from the same extension pass that calls AddEntries.
func (s *Store) Evict(nowUTCMs int64) {
	if s.retentionBehind <= 0 {
		return
	}
	cutoff := nowUTCMs - s.retentionBehind

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if e.EndUTCMs < cutoff {
			delete(s.seen, e.BlockID)
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
}

// GetNextEntry returns the first entry with start_utc_ms > afterUTCMs.
func (s *Store) GetNextEntry(afterUTCMs int64) (model.ExecutionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].StartUTCMs > afterUTCMs })
	if idx >= len(s.entries) {
		return model.ExecutionEntry{}, false
	}
	return s.entries[idx], true
}

// GetQueuedEntries returns every retained entry with start_utc_ms >
// afterUTCMs, in order — the read surface runway/fence validation needs to
// see everything currently queued ahead of the live boundary.
func (s *Store) GetQueuedEntries(afterUTCMs int64) []model.ExecutionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].StartUTCMs > afterUTCMs })
	out := make([]model.ExecutionEntry, len(s.entries)-idx)
	copy(out, s.entries[idx:])
	return out
}

// GetWindowStart returns the earliest retained entry's start_utc_ms.
func (s *Store) GetWindowStart() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return 0, false
	}
	return s.entries[0].StartUTCMs, true
}

// GetWindowEnd returns the latest retained entry's end_utc_ms.
func (s *Store) GetWindowEnd() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return 0, false
	}
	return s.entries[len(s.entries)-1].EndUTCMs, true
}

// Len reports how many entries are currently retained.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
