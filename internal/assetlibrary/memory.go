package assetlibrary

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/retrovue/core/internal/domain/model"
)

// assetRecord is the fixture data backing MemoryLibrary.
type assetRecord struct {
	asset   model.ResolvedAsset
	title   string
	synopsis string
}

// MemoryLibrary is a fixture-backed Library for tests and local authoring
// tools. It never performs I/O; all data is supplied at construction.
type MemoryLibrary struct {
	mu      sync.RWMutex
	assets  map[string]assetRecord // keyed by asset_uri
	byRef   map[model.ProgramRef]string // ProgramRef -> asset_uri
	fillers []FillerAsset
}

// NewMemoryLibrary returns an empty library; use the Put* helpers to seed it.
func NewMemoryLibrary() *MemoryLibrary {
	return &MemoryLibrary{
		assets: make(map[string]assetRecord),
		byRef:  make(map[model.ProgramRef]string),
	}
}

// PutAsset registers a resolvable asset for a ProgramRef.
func (m *MemoryLibrary) PutAsset(ref model.ProgramRef, asset model.ResolvedAsset, title, synopsis string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[asset.AssetURI] = assetRecord{asset: asset, title: title, synopsis: synopsis}
	m.byRef[ref] = asset.AssetURI
}

// PutFiller adds an interstitial candidate available for break packing.
func (m *MemoryLibrary) PutFiller(f FillerAsset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fillers = append(m.fillers, f)
}

func (m *MemoryLibrary) DurationMs(_ context.Context, assetURI string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.assets[assetURI]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAssetNotFound, assetURI)
	}
	return rec.asset.DurationMs, nil
}

func (m *MemoryLibrary) Markers(_ context.Context, assetURI string) ([]model.Marker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.assets[assetURI]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetURI)
	}
	out := make([]model.Marker, len(rec.asset.Markers))
	copy(out, rec.asset.Markers)
	return out, nil
}

// FillerAssets returns up to maxCount fillers no longer than maxDurationMs,
// in the stable order they were registered (deterministic for tests).
func (m *MemoryLibrary) FillerAssets(_ context.Context, maxDurationMs int64, maxCount int) ([]FillerAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []FillerAsset
	for _, f := range m.fillers {
		if f.DurationMs <= maxDurationMs {
			out = append(out, f)
		}
		if maxCount > 0 && len(out) >= maxCount {
			break
		}
	}
	return out, nil
}

func (m *MemoryLibrary) Title(_ context.Context, ref model.ProgramRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uri, ok := m.byRef[ref]
	if !ok {
		return "", fmt.Errorf("%w: ref=%v", ErrAssetNotFound, ref)
	}
	return m.assets[uri].title, nil
}

func (m *MemoryLibrary) Synopsis(_ context.Context, ref model.ProgramRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uri, ok := m.byRef[ref]
	if !ok {
		return "", fmt.Errorf("%w: ref=%v", ErrAssetNotFound, ref)
	}
	return m.assets[uri].synopsis, nil
}

func (m *MemoryLibrary) Resolve(_ context.Context, ref model.ProgramRef) (model.ResolvedAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uri, ok := m.byRef[ref]
	if !ok {
		return model.ResolvedAsset{}, fmt.Errorf("%w: ref=%v", ErrAssetNotFound, ref)
	}
	return m.assets[uri].asset, nil
}

// sortedURIs is a small test helper to make assertions deterministic.
func (m *MemoryLibrary) sortedURIs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.assets))
	for uri := range m.assets {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}
