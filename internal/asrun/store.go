// Package asrun implements the append-only as-run attestation log (§4.12):
// a durable record of every block and segment actually played, written once
// per row and never mutated (INV-ASRUN-IMMUTABLE-001).
package asrun

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/storage/sqlite"
)

// Store persists as-run blocks and their segments.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) a SQLite-backed as-run store.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS asrun_blocks (
		block_id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		start_utc_ms INTEGER NOT NULL,
		end_utc_ms INTEGER NOT NULL,
		incomplete INTEGER NOT NULL,
		segments_json TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendBlock writes one as-run block. INV-ASRUN-IMMUTABLE-001: a block_id
// already on file is a hard error, never an overwrite — the as-run record
// is the attestation of what actually aired, so amending it in place would
// corrupt the audit trail.
func (s *Store) AppendBlock(ctx context.Context, block model.AsRunBlock, segments []model.AsRunSegment) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM asrun_blocks WHERE block_id = ?`, block.BlockID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("asrun store: block %s already recorded, as-run log is append-only", block.BlockID)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("asrun store: check existing: %w", err)
	}

	raw, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("asrun store: marshal segments: %w", err)
	}
	incomplete := 0
	if block.Incomplete {
		incomplete = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO asrun_blocks (block_id, channel_id, start_utc_ms, end_utc_ms, incomplete, segments_json) VALUES (?, ?, ?, ?, ?, ?)`,
		block.BlockID, block.ChannelID, block.StartUTCMs, block.EndUTCMs, incomplete, raw,
	)
	if err != nil {
		return fmt.Errorf("asrun store: insert: %w", err)
	}
	return nil
}

// BlockRecord pairs a persisted AsRunBlock with its segments.
type BlockRecord struct {
	Block    model.AsRunBlock
	Segments []model.AsRunSegment
}

// ListRange returns as-run blocks for channelID with StartUTCMs in
// [fromUTCMs, toUTCMs), ordered by start time — the read path for
// reconciliation and reporting tooling.
func (s *Store) ListRange(ctx context.Context, channelID string, fromUTCMs, toUTCMs int64) ([]BlockRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT block_id, channel_id, start_utc_ms, end_utc_ms, incomplete, segments_json
		 FROM asrun_blocks WHERE channel_id = ? AND start_utc_ms >= ? AND start_utc_ms < ?
		 ORDER BY start_utc_ms ASC`,
		channelID, fromUTCMs, toUTCMs,
	)
	if err != nil {
		return nil, fmt.Errorf("asrun store: query range: %w", err)
	}
	defer rows.Close()

	var out []BlockRecord
	for rows.Next() {
		var b model.AsRunBlock
		var incomplete int
		var raw []byte
		if err := rows.Scan(&b.BlockID, &b.ChannelID, &b.StartUTCMs, &b.EndUTCMs, &incomplete, &raw); err != nil {
			return nil, fmt.Errorf("asrun store: scan row: %w", err)
		}
		b.Incomplete = incomplete != 0
		var segs []model.AsRunSegment
		if err := json.Unmarshal(raw, &segs); err != nil {
			return nil, fmt.Errorf("asrun store: unmarshal segments: %w", err)
		}
		out = append(out, BlockRecord{Block: b, Segments: segs})
	}
	return out, rows.Err()
}
