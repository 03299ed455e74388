// Package override implements the operator-override attestation log
// (§4.12): a durable, monotonically numbered record that must precede any
// write overriding a locked artifact (INV-OVERRIDE-RECORD-PRECEDES-ARTIFACT-001).
package override

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/storage/sqlite"
)

// Store persists OverrideRecords with a monotonically increasing sequence.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) a SQLite-backed override store.
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
	CREATE TABLE IF NOT EXISTS override_records (
		sequence INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL UNIQUE,
		layer TEXT NOT NULL,
		target_id TEXT NOT NULL,
		reason_code TEXT NOT NULL,
		created_utc_ms INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record durably attests one override, assigning it the next sequence
// number. Callers must call this and observe success BEFORE writing the
// overriding artifact itself — the record must precede the artifact, never
// follow it, or a crash between the two leaves an unattested override.
func (s *Store) Record(ctx context.Context, rec model.OverrideRecord) (model.OverrideRecord, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO override_records (record_id, layer, target_id, reason_code, created_utc_ms) VALUES (?, ?, ?, ?, ?)`,
		rec.RecordID, string(rec.Layer), rec.TargetID, rec.ReasonCode, rec.CreatedUTCMs,
	)
	if err != nil {
		return model.OverrideRecord{}, fmt.Errorf("override store: insert: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return model.OverrideRecord{}, fmt.Errorf("override store: read sequence: %w", err)
	}
	rec.Sequence = seq
	return rec, nil
}

// PrecedesArtifact checks whether a durable override record already exists
// for targetID — the gate an artifact-writer must pass before overriding a
// locked artifact (INV-OVERRIDE-RECORD-PRECEDES-ARTIFACT-001).
func (s *Store) PrecedesArtifact(ctx context.Context, layer model.OverrideLayer, targetID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM override_records WHERE layer = ? AND target_id = ? LIMIT 1`,
		string(layer), targetID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("override store: check precedes: %w", err)
	}
	return true, nil
}

// ListForTarget returns every override recorded against targetID, ordered
// by sequence — the audit trail for one artifact.
func (s *Store) ListForTarget(ctx context.Context, layer model.OverrideLayer, targetID string) ([]model.OverrideRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sequence, record_id, layer, target_id, reason_code, created_utc_ms
		 FROM override_records WHERE layer = ? AND target_id = ? ORDER BY sequence ASC`,
		string(layer), targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("override store: query: %w", err)
	}
	defer rows.Close()

	var out []model.OverrideRecord
	for rows.Next() {
		var rec model.OverrideRecord
		var layer string
		if err := rows.Scan(&rec.Sequence, &rec.RecordID, &layer, &rec.TargetID, &rec.ReasonCode, &rec.CreatedUTCMs); err != nil {
			return nil, fmt.Errorf("override store: scan: %w", err)
		}
		rec.Layer = model.OverrideLayer(layer)
		out = append(out, rec)
	}
	return out, rows.Err()
}
