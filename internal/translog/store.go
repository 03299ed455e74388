package translog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/storage/sqlite"
)

// Store persists locked TransmissionLogs. Only locked logs are ever
// written; a "building" log lives in memory until the planner locks it.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) a SQLite-backed transmission-log store.
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
	CREATE TABLE IF NOT EXISTS transmission_logs (
		channel_id TEXT NOT NULL,
		broadcast_date TEXT NOT NULL,
		grid_block_minutes INTEGER NOT NULL,
		entries_json TEXT NOT NULL,
		PRIMARY KEY (channel_id, broadcast_date)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save writes a locked log. It fails with ErrTransmissionLogExists if a row
// for (channel_id, broadcast_date) already exists — the table is
// write-once, matching the in-memory lock semantics.
func (s *Store) Save(ctx context.Context, log model.TransmissionLog) error {
	if log.State != model.TransmissionLogLocked {
		return fmt.Errorf("translog store: refusing to persist a %q log", log.State)
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM transmission_logs WHERE channel_id = ? AND broadcast_date = ?`,
		log.ChannelID, log.BroadcastDate,
	).Scan(&exists)
	if err == nil {
		return &ErrTransmissionLogExists{ChannelID: log.ChannelID, BroadcastDate: log.BroadcastDate}
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("translog store: check existing: %w", err)
	}

	raw, err := json.Marshal(log.Entries)
	if err != nil {
		return fmt.Errorf("translog store: marshal entries: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transmission_logs (channel_id, broadcast_date, grid_block_minutes, entries_json) VALUES (?, ?, ?, ?)`,
		log.ChannelID, log.BroadcastDate, log.GridBlockMinutes, raw,
	)
	if err != nil {
		return fmt.Errorf("translog store: insert: %w", err)
	}
	return nil
}

// Load reads a persisted locked log. Callers must treat a sql.ErrNoRows
// miss as "no schedule data" rather than regenerating it themselves — that
// decision belongs to the horizon manager (§4.8).
func (s *Store) Load(ctx context.Context, channelID, broadcastDate string) (model.TransmissionLog, error) {
	var gridMinutes int
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT grid_block_minutes, entries_json FROM transmission_logs WHERE channel_id = ? AND broadcast_date = ?`,
		channelID, broadcastDate,
	).Scan(&gridMinutes, &raw)
	if err != nil {
		return model.TransmissionLog{}, err
	}

	var entries []model.TransmissionLogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return model.TransmissionLog{}, fmt.Errorf("translog store: unmarshal entries: %w", err)
	}
	return model.TransmissionLog{
		ChannelID:        channelID,
		BroadcastDate:    broadcastDate,
		GridBlockMinutes: gridMinutes,
		State:            model.TransmissionLogLocked,
		Entries:          entries,
	}, nil
}
