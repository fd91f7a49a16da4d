// Package store persists the per-epoch validator history in a single sqlite
// file.  One run of the pipeline is the only writer; the database is opened
// with a single connection so every epoch replace is serialized.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/valmeter/stakescore/internal/scoring"
)

const schema = `
CREATE TABLE IF NOT EXISTS validator_epoch (
	epoch                      INTEGER NOT NULL,
	keybase_id                 TEXT NOT NULL DEFAULT '',
	name                       TEXT NOT NULL DEFAULT '',
	identity                   TEXT NOT NULL,
	vote_address               TEXT NOT NULL,
	score                      INTEGER NOT NULL,
	avg_position               REAL NOT NULL,
	commission                 INTEGER NOT NULL,
	active_stake               INTEGER NOT NULL,
	epoch_credits              INTEGER NOT NULL,
	data_center_concentration  REAL NOT NULL,
	can_halt_the_network_group INTEGER NOT NULL DEFAULT 0,
	stake_state                TEXT NOT NULL DEFAULT '',
	stake_state_reason         TEXT NOT NULL DEFAULT '',
	www_url                    TEXT NOT NULL DEFAULT '',
	adj_credits                INTEGER NOT NULL,
	pct                        REAL NOT NULL,
	stake_conc                 REAL NOT NULL,
	PRIMARY KEY (epoch, vote_address)
);
CREATE INDEX IF NOT EXISTS validator_epoch_by_vote ON validator_epoch (vote_address, epoch);
`

const recordColumns = `epoch, keybase_id, name, identity, vote_address, score,
	avg_position, commission, active_stake, epoch_credits,
	data_center_concentration, can_halt_the_network_group, stake_state,
	stake_state_reason, www_url, adj_credits, pct, stake_conc`

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path and ensures the
// schema exists.  The connection pool is pinned to one connection - the
// pipeline is single-writer and this keeps every transaction serialized.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?%s", path,
		url.Values{
			"_pragma": []string{"journal_mode(WAL)", "busy_timeout(5000)", "synchronous(NORMAL)"},
		}.Encode())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating history schema: %w", err)
	}
	return nil
}

// UpsertEpoch replaces all records for one epoch: delete-then-insert inside a
// single transaction, so a rerun is idempotent and a killed run can never leave
// an epoch half replaced.
func (s *Store) UpsertEpoch(ctx context.Context, epoch uint64, records []scoring.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin epoch replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM validator_epoch WHERE epoch = ?`, epoch); err != nil {
		return fmt.Errorf("delete epoch %d: %w", epoch, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO validator_epoch (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		if rec.Epoch != epoch {
			return fmt.Errorf("record for %s carries epoch %d, replacing epoch %d", rec.VoteAddress, rec.Epoch, epoch)
		}
		canHalt := 0
		if rec.CanHaltTheNetworkGroup {
			canHalt = 1
		}
		_, err = stmt.ExecContext(ctx,
			rec.Epoch, rec.KeybaseID, rec.Name, rec.Identity, rec.VoteAddress,
			rec.Score, rec.AvgPosition, rec.Commission, rec.ActiveStake,
			rec.EpochCredits, rec.DataCenterConcentration, canHalt,
			rec.StakeState, rec.StakeStateReason, rec.WwwURL,
			rec.AdjCredits, rec.Pct, rec.StakeConc,
		)
		if err != nil {
			return fmt.Errorf("insert %s for epoch %d: %w", rec.VoteAddress, epoch, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit epoch %d replace: %w", epoch, err)
	}
	s.logger.Info("epoch replaced in history", "epoch", epoch, "records", len(records))
	return nil
}

// RecordsInRange returns every record with lo <= epoch <= hi ordered by epoch
// then vote address.
func (s *Store) RecordsInRange(ctx context.Context, lo, hi uint64) ([]scoring.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+`
		FROM validator_epoch WHERE epoch BETWEEN ? AND ?
		ORDER BY epoch, vote_address`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query epochs %d-%d: %w", lo, hi, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecordsForValidator returns one validator's records with lo <= epoch <= hi,
// ordered by epoch.
func (s *Store) RecordsForValidator(ctx context.Context, voteAddress string, lo, hi uint64) ([]scoring.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+`
		FROM validator_epoch WHERE vote_address = ? AND epoch BETWEEN ? AND ?
		ORDER BY epoch`, voteAddress, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query %s epochs %d-%d: %w", voteAddress, lo, hi, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// AdjCreditsRef reduces the reference population (stored records with adjusted
// credits above floor, excludeEpoch skipped) to its sum and count.
func (s *Store) AdjCreditsRef(ctx context.Context, floor int64, excludeEpoch uint64) (scoring.RefPopulation, error) {
	var ref scoring.RefPopulation
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(adj_credits), 0), COUNT(*)
		FROM validator_epoch WHERE adj_credits > ? AND epoch != ?`,
		floor, excludeEpoch).Scan(&ref.Sum, &ref.Count)
	if err != nil {
		return ref, fmt.Errorf("query reference population: %w", err)
	}
	return ref, nil
}

// Epochs returns all distinct epochs present, ascending.
func (s *Store) Epochs(ctx context.Context) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT epoch FROM validator_epoch ORDER BY epoch`)
	if err != nil {
		return nil, fmt.Errorf("query epochs: %w", err)
	}
	defer rows.Close()
	var epochs []uint64
	for rows.Next() {
		var e uint64
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		epochs = append(epochs, e)
	}
	return epochs, rows.Err()
}

// LatestEpoch returns the newest stored epoch, or ok=false on an empty store.
func (s *Store) LatestEpoch(ctx context.Context) (uint64, bool, error) {
	var epoch sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(epoch) FROM validator_epoch`).Scan(&epoch)
	if err != nil {
		return 0, false, fmt.Errorf("query latest epoch: %w", err)
	}
	if !epoch.Valid {
		return 0, false, nil
	}
	return uint64(epoch.Int64), true, nil
}

// RecordCount returns the total number of stored records.
func (s *Store) RecordCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM validator_epoch`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Reset drops every record.  Destructive - callers are expected to confirm
// with the operator first.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM validator_epoch`); err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum after reset: %w", err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]scoring.Record, error) {
	var records []scoring.Record
	for rows.Next() {
		var (
			rec     scoring.Record
			canHalt int
		)
		err := rows.Scan(
			&rec.Epoch, &rec.KeybaseID, &rec.Name, &rec.Identity, &rec.VoteAddress,
			&rec.Score, &rec.AvgPosition, &rec.Commission, &rec.ActiveStake,
			&rec.EpochCredits, &rec.DataCenterConcentration, &canHalt,
			&rec.StakeState, &rec.StakeStateReason, &rec.WwwURL,
			&rec.AdjCredits, &rec.Pct, &rec.StakeConc,
		)
		if err != nil {
			return nil, err
		}
		rec.CanHaltTheNetworkGroup = canHalt != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}
