package execwindow

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/retrovue/core/internal/domain/model"
)

// DurableMirror persists every ExecutionEntry ever added to a channel's
// window, independent of the in-memory store's sliding-window eviction.
// It exists purely to speed up the in-memory window's reconstruction after
// a restart; it is never consulted on the runtime feed-ahead path.
type DurableMirror struct {
	db *badger.DB
}

// OpenDurableMirror opens (or creates) the Badger database backing a
// channel's execution-window mirror.
func OpenDurableMirror(dirPath string) (*DurableMirror, error) {
	opts := badger.DefaultOptions(dirPath)
	opts.Logger = nil // the core has its own structured logger; Badger's is noisy by comparison

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("execwindow: open badger mirror at %s: %w", dirPath, err)
	}
	return &DurableMirror{db: db}, nil
}

func (m *DurableMirror) Close() error { return m.db.Close() }

func entryKey(channelID, blockID string) []byte {
	return []byte(channelID + "/" + blockID)
}

// Append durably stores one entry, keyed by channel_id/block_id so repeated
// appends of the same block_id simply overwrite (idempotent, matching the
// in-memory store's dedup semantics).
func (m *DurableMirror) Append(e model.ExecutionEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("execwindow: marshal entry %s: %w", e.BlockID, err)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e.ChannelID, e.BlockID), raw)
	})
}

// Restore loads every mirrored entry for a channel, in no particular order;
// callers feed the result straight into Store.AddEntries, which re-sorts.
func (m *DurableMirror) Restore(channelID string) ([]model.ExecutionEntry, error) {
	prefix := []byte(channelID + "/")
	var out []model.ExecutionEntry

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry model.ExecutionEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("execwindow: unmarshal mirrored entry: %w", err)
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
