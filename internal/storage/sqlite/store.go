// Package sqlite holds the audit journal: one row per run, one row
// per verdict, written after verdicts are applied. The journal is an
// audit trail, not a dependency of the trading path — callers treat
// journal failures as warnings.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/microcaplab/tradegate/internal/trade"
)

// Run modes as recorded in the journal.
const (
	ModeLive   = "live"
	ModeDryRun = "dry-run"
)

type Journal struct {
	db *sql.DB
}

// RunRecord is the per-run summary row. Cash balances are stored as
// exact decimal strings.
type RunRecord struct {
	ID               string
	Mode             string
	Model            string
	SymbolsRequested []string
	SymbolsVerified  []string
	SymbolsFailed    []string
	Confidence       float64
	CashBefore       string
	CashAfter        string
}

type RunWithMeta struct {
	RunRecord
	RowID     int64
	StartedAt string
}

// VerdictRow is one validated candidate as journaled. Executed is set
// only for accepted verdicts of a live run.
type VerdictRow struct {
	RunID         string
	Seq           int
	Action        string
	Symbol        string
	Shares        int64
	ClaimedPrice  string
	VerifiedPrice string
	Status        string
	Reason        string
	Detail        string
	Executed      bool
}

func Open(dbPath string) (*Journal, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    model TEXT,
    symbols_requested TEXT,
    symbols_verified TEXT,
    symbols_failed TEXT,
    confidence REAL,
    cash_before TEXT,
    cash_after TEXT,
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS verdicts (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    action TEXT NOT NULL,
    symbol TEXT NOT NULL,
    shares INTEGER NOT NULL,
    claimed_price TEXT,
    verified_price TEXT,
    status TEXT NOT NULL,
    reason TEXT NOT NULL,
    detail TEXT,
    executed INTEGER NOT NULL DEFAULT 0,
    UNIQUE(run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id, seq);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// RecordRun inserts the run and its verdicts in one transaction.
// executed marks accepted verdicts as applied; dry runs pass false.
func (j *Journal) RecordRun(ctx context.Context, run RunRecord, verdicts []trade.TradeVerdict, executed bool) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	if run.Mode == "" {
		run.Mode = ModeDryRun
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, mode, model, symbols_requested, symbols_verified, symbols_failed, confidence, cash_before, cash_after)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID, run.Mode, run.Model,
		strings.Join(run.SymbolsRequested, ","),
		strings.Join(run.SymbolsVerified, ","),
		strings.Join(run.SymbolsFailed, ","),
		run.Confidence, run.CashBefore, run.CashAfter)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, v := range verdicts {
		verifiedPrice := ""
		if v.HasVerifiedPrice {
			verifiedPrice = v.VerifiedPrice.String()
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO verdicts (run_id, seq, action, symbol, shares, claimed_price, verified_price, status, reason, detail, executed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID, i+1, string(v.Candidate.Action), v.Candidate.Symbol, v.Candidate.Shares,
			v.Candidate.ClaimedPrice.String(), verifiedPrice,
			string(v.Status), string(v.Reason), v.Detail,
			executed && v.IsAccepted())
		if err != nil {
			return fmt.Errorf("insert verdict %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal tx: %w", err)
	}
	return nil
}

// ListRuns pages through runs newest-first by rowid cursor.
func (j *Journal) ListRuns(ctx context.Context, cursor int64, limit int) ([]RunWithMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT rowid, id, mode, model, symbols_requested, symbols_verified, symbols_failed, confidence, cash_before, cash_after, started_at
FROM runs
WHERE (? = 0 OR rowid < ?)
ORDER BY rowid DESC
LIMIT ?
`, cursor, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunWithMeta
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by id, or nil when it does not exist.
func (j *Journal) GetRun(ctx context.Context, runID string) (*RunWithMeta, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	row := j.db.QueryRowContext(ctx, `
SELECT rowid, id, mode, model, symbols_requested, symbols_verified, symbols_failed, confidence, cash_before, cash_after, started_at
FROM runs
WHERE id = ?
LIMIT 1
`, runID)

	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunWithMeta, error) {
	var rec RunWithMeta
	var requested, verified, failed string
	err := row.Scan(&rec.RowID, &rec.ID, &rec.Mode, &rec.Model,
		&requested, &verified, &failed,
		&rec.Confidence, &rec.CashBefore, &rec.CashAfter, &rec.StartedAt)
	if err != nil {
		return RunWithMeta{}, err
	}
	rec.SymbolsRequested = splitList(requested)
	rec.SymbolsVerified = splitList(verified)
	rec.SymbolsFailed = splitList(failed)
	return rec, nil
}

// ListVerdicts returns a run's verdicts in sequence order.
func (j *Journal) ListVerdicts(ctx context.Context, runID string) ([]VerdictRow, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT run_id, seq, action, symbol, shares, claimed_price, verified_price, status, reason, detail, executed
FROM verdicts
WHERE run_id = ?
ORDER BY seq ASC
`, runID)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []VerdictRow
	for rows.Next() {
		var rec VerdictRow
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Action, &rec.Symbol, &rec.Shares,
			&rec.ClaimedPrice, &rec.VerifiedPrice, &rec.Status, &rec.Reason, &rec.Detail, &rec.Executed); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		verdicts = append(verdicts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verdicts rows: %w", err)
	}
	return verdicts, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
