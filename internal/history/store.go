// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists finished synthesis runs in a SQLite archive.
// Implements: prd007-archive (R1-R3);
//
//	docs/ARCHITECTURE § Run Archive.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// ErrRunNotFound is returned when a run ID is not in the archive.
var ErrRunNotFound = errors.New("run not found in archive")

// RunMeta identifies an archived run and the context it ran under.
type RunMeta struct {
	ID        string    `json:"id" yaml:"id"`
	Question  string    `json:"question,omitempty" yaml:"question,omitempty"`
	Domain    string    `json:"domain,omitempty" yaml:"domain,omitempty"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// RunSummary is one row of the archive listing (R2.2).
type RunSummary struct {
	ID                 string
	Question           string
	Domain             string
	StartedAt          time.Time
	Rounds             int
	TerminationReason  types.TerminationReason
	SynthesisAchieved  bool
	FinalPhase         types.BatchPhase
	AvgInformationGain float64
}

// Store manages the run archive SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive database at path, creating parent
// directories and the schema as needed (R1.1, R1.2).
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			question TEXT,
			domain TEXT,
			started_at TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			termination_reason TEXT NOT NULL,
			synthesis_achieved INTEGER NOT NULL,
			final_phase TEXT NOT NULL,
			knowledge TEXT,
			low_gain_count INTEGER NOT NULL,
			avg_information_gain REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			round INTEGER NOT NULL,
			batch_id TEXT NOT NULL,
			phase TEXT NOT NULL,
			item_count INTEGER NOT NULL,
			selected_count INTEGER NOT NULL,
			pool_remaining INTEGER NOT NULL,
			information_gain REAL NOT NULL,
			quality_score REAL NOT NULL,
			processing_ns INTEGER NOT NULL,
			success INTEGER NOT NULL,
			PRIMARY KEY (run_id, round)
		)`,
		`CREATE TABLE IF NOT EXISTS transitions (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			from_phase TEXT NOT NULL,
			to_phase TEXT NOT NULL,
			round INTEGER NOT NULL,
			reason TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS skips (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			title TEXT,
			round INTEGER NOT NULL,
			reasons TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun archives one finished run in a single transaction (R1.3, R1.4).
// Saving a run ID that already exists is an error; archived runs are
// immutable.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, result *types.RunResult) error {
	if meta.ID == "" {
		return errors.New("run ID must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, question, domain, started_at, rounds, termination_reason,
			synthesis_achieved, final_phase, knowledge, low_gain_count, avg_information_gain)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Question, meta.Domain, meta.StartedAt.UTC().Format(time.RFC3339Nano),
		result.Rounds, string(result.TerminationReason), boolToInt(result.SynthesisAchieved),
		string(result.State.CurrentPhase), result.State.Knowledge,
		result.State.ConsecutiveLowGainCount, result.History.AvgInformationGain,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", meta.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, round, batch_id, phase, item_count, selected_count,
			pool_remaining, information_gain, quality_score, processing_ns, success)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range result.History.Outcomes {
		_, err := stmt.ExecContext(ctx,
			meta.ID, o.Round, o.BatchID, string(o.Phase), o.ItemCount, o.SelectedCount,
			o.PoolRemaining, o.InformationGain, o.QualityScore,
			int64(o.ProcessingTime), boolToInt(o.Success),
		)
		if err != nil {
			return fmt.Errorf("inserting outcome for round %d: %w", o.Round, err)
		}
	}

	for i, tr := range result.History.Transitions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transitions (run_id, seq, from_phase, to_phase, round, reason)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			meta.ID, i, string(tr.From), string(tr.To), tr.Round, tr.Reason,
		)
		if err != nil {
			return fmt.Errorf("inserting transition %d: %w", i, err)
		}
	}

	for i, sk := range result.Skipped {
		reasonsJSON, _ := json.Marshal(sk.Reasons)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO skips (run_id, seq, item_id, title, round, reasons)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			meta.ID, i, sk.ItemID, sk.Title, sk.Round, string(reasonsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting skipped item %s: %w", sk.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", meta.ID, err)
	}
	return nil
}

// ListRuns returns summaries of every archived run, newest first (R2.2).
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, domain, started_at, rounds, termination_reason,
			synthesis_achieved, final_phase, avg_information_gain
		 FROM runs ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var rs RunSummary
		var startedAt string
		var achieved int
		if err := rows.Scan(&rs.ID, &rs.Question, &rs.Domain, &startedAt, &rs.Rounds,
			&rs.TerminationReason, &achieved, &rs.FinalPhase, &rs.AvgInformationGain); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		rs.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at for run %s: %w", rs.ID, err)
		}
		rs.SynthesisAchieved = achieved != 0
		summaries = append(summaries, rs)
	}
	return summaries, rows.Err()
}

// GetRun reconstructs an archived run (R2.3). The returned result carries
// the same outcomes, transitions, skips, and aggregates as the run that was
// saved.
func (s *Store) GetRun(ctx context.Context, id string) (RunMeta, *types.RunResult, error) {
	var meta RunMeta
	var result types.RunResult
	var startedAt string
	var achieved int

	err := s.db.QueryRowContext(ctx,
		`SELECT id, question, domain, started_at, rounds, termination_reason,
			synthesis_achieved, final_phase, knowledge, low_gain_count
		 FROM runs WHERE id = ?`, id,
	).Scan(&meta.ID, &meta.Question, &meta.Domain, &startedAt, &result.Rounds,
		&result.TerminationReason, &achieved, &result.State.CurrentPhase,
		&result.State.Knowledge, &result.State.ConsecutiveLowGainCount)
	if err == sql.ErrNoRows {
		return RunMeta{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunMeta{}, nil, fmt.Errorf("querying run %s: %w", id, err)
	}

	meta.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return RunMeta{}, nil, fmt.Errorf("parsing started_at for run %s: %w", id, err)
	}
	result.SynthesisAchieved = achieved != 0
	result.State.IterationRound = result.Rounds

	if err := s.loadOutcomes(ctx, id, &result); err != nil {
		return RunMeta{}, nil, err
	}
	if err := s.loadTransitions(ctx, id, &result); err != nil {
		return RunMeta{}, nil, err
	}
	if err := s.loadSkips(ctx, id, &result); err != nil {
		return RunMeta{}, nil, err
	}
	return meta, &result, nil
}

func (s *Store) loadOutcomes(ctx context.Context, id string, result *types.RunResult) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT round, batch_id, phase, item_count, selected_count, pool_remaining,
			information_gain, quality_score, processing_ns, success
		 FROM outcomes WHERE run_id = ? ORDER BY round`, id)
	if err != nil {
		return fmt.Errorf("querying outcomes for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o types.BatchOutcome
		var processingNS int64
		var success int
		if err := rows.Scan(&o.Round, &o.BatchID, &o.Phase, &o.ItemCount, &o.SelectedCount,
			&o.PoolRemaining, &o.InformationGain, &o.QualityScore, &processingNS, &success); err != nil {
			return fmt.Errorf("scanning outcome row: %w", err)
		}
		o.ProcessingTime = time.Duration(processingNS)
		o.Success = success != 0
		// Append recomputes the rolling aggregates, so the reconstructed
		// history matches the one that was archived.
		result.History.Append(o)
	}
	return rows.Err()
}

func (s *Store) loadTransitions(ctx context.Context, id string, result *types.RunResult) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_phase, to_phase, round, reason
		 FROM transitions WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return fmt.Errorf("querying transitions for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var tr types.PhaseTransition
		if err := rows.Scan(&tr.From, &tr.To, &tr.Round, &tr.Reason); err != nil {
			return fmt.Errorf("scanning transition row: %w", err)
		}
		result.History.RecordTransition(tr)
	}
	return rows.Err()
}

func (s *Store) loadSkips(ctx context.Context, id string, result *types.RunResult) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, title, round, reasons
		 FROM skips WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return fmt.Errorf("querying skipped items for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sk types.SkippedItem
		var reasonsJSON string
		if err := rows.Scan(&sk.ItemID, &sk.Title, &sk.Round, &reasonsJSON); err != nil {
			return fmt.Errorf("scanning skipped-item row: %w", err)
		}
		if reasonsJSON != "" {
			if err := json.Unmarshal([]byte(reasonsJSON), &sk.Reasons); err != nil {
				return fmt.Errorf("parsing skip reasons for %s: %w", sk.ItemID, err)
			}
		}
		result.Skipped = append(result.Skipped, sk)
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
