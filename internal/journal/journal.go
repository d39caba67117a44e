// Package journal keeps the append-only audit record of every finalized
// classification in SQLite, for operator review and journal-driven replays.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thosperis/logmind/internal/engine"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS classifications (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             TEXT NOT NULL,
	subject            TEXT NOT NULL,
	branch             TEXT NOT NULL,
	recall_label       TEXT NOT NULL,
	recall_confidence  REAL NOT NULL,
	label              TEXT NOT NULL,
	ground_truth       INTEGER NOT NULL,
	success            INTEGER NOT NULL,
	emotion            TEXT NOT NULL,
	meta_confidence    REAL NOT NULL,
	buffer_len         INTEGER NOT NULL,
	memory_len         INTEGER NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classifications_run ON classifications(run_id, id);
CREATE INDEX IF NOT EXISTS idx_classifications_subject ON classifications(subject);
`

// #endregion schema

// #region journal-struct

// Journal manages the classification history in SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens a SQLite database and runs migrations. The parent directory is
// created if needed so a fresh deployment can point at data/ before the first
// state flush.
func Open(dbPath string) (*Journal, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// DB returns the underlying *sql.DB for use by sibling stores that share the
// same database file (e.g. reputation).
func (j *Journal) DB() *sql.DB {
	return j.db
}

// #endregion journal-struct

// #region entry

// Entry is one journal row.
type Entry struct {
	ID               int64
	RunID            string
	Subject          string
	Branch           string // "accept" | "crosscheck" | "fallback"
	RecallLabel      string
	RecallConfidence float64
	Label            string
	GroundTruth      bool
	Success          bool
	Emotion          string
	MetaConfidence   float64
	BufferLen        int
	MemoryLen        int
	CreatedAt        time.Time
}

// FromResult flattens an engine result into a journal entry. Buffer and
// memory sizes are sampled by the caller so the row reflects the state right
// after the classification landed.
func FromResult(runID string, res engine.Result, bufferLen, memoryLen int) Entry {
	return Entry{
		RunID:            runID,
		Subject:          res.Subject,
		Branch:           string(res.Branch),
		RecallLabel:      res.RecallLabel.String(),
		RecallConfidence: res.RecallConfidence,
		Label:            res.Label.String(),
		GroundTruth:      res.GroundTruth,
		Success:          res.Success,
		Emotion:          string(res.Emotion),
		MetaConfidence:   res.MetaConfidence,
		BufferLen:        bufferLen,
		MemoryLen:        memoryLen,
	}
}

// #endregion entry

// #region append

// Append records one finalized classification.
func (j *Journal) Append(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.Exec(
		`INSERT INTO classifications
		 (run_id, subject, branch, recall_label, recall_confidence, label,
		  ground_truth, success, emotion, meta_confidence, buffer_len, memory_len, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Subject, e.Branch, e.RecallLabel, e.RecallConfidence, e.Label,
		boolInt(e.GroundTruth), boolInt(e.Success), e.Emotion, e.MetaConfidence,
		e.BufferLen, e.MemoryLen, e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append classification: %w", err)
	}
	return nil
}

// #endregion append

// #region queries

const entryColumns = `id, run_id, subject, branch, recall_label, recall_confidence, label,
	ground_truth, success, emotion, meta_confidence, buffer_len, memory_len, created_at`

// Recent returns the newest entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT `+entryColumns+` FROM classifications ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Replayable returns entries oldest first, the input order for journal-driven
// replays. An empty runID selects the whole journal.
func (j *Journal) Replayable(runID string) ([]Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if runID == "" {
		rows, err = j.db.Query(`SELECT ` + entryColumns + ` FROM classifications ORDER BY id ASC`)
	} else {
		rows, err = j.db.Query(
			`SELECT `+entryColumns+` FROM classifications WHERE run_id = ? ORDER BY id ASC`, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query replayable: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Stats summarizes the journal for the inspect tool.
type Stats struct {
	Total     int            `json:"total"`
	Successes int            `json:"successes"`
	ByBranch  map[string]int `json:"by_branch"`
}

// Stats aggregates totals and per-branch counts.
func (j *Journal) Stats() (Stats, error) {
	s := Stats{ByBranch: make(map[string]int)}
	row := j.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(success), 0) FROM classifications`)
	if err := row.Scan(&s.Total, &s.Successes); err != nil {
		return s, fmt.Errorf("stats totals: %w", err)
	}

	rows, err := j.db.Query(`SELECT branch, COUNT(*) FROM classifications GROUP BY branch`)
	if err != nil {
		return s, fmt.Errorf("stats branches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var branch string
		var count int
		if err := rows.Scan(&branch, &count); err != nil {
			return s, fmt.Errorf("scan branch count: %w", err)
		}
		s.ByBranch[branch] = count
	}
	return s, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e           Entry
			gt, success int
			created     string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Subject, &e.Branch, &e.RecallLabel,
			&e.RecallConfidence, &e.Label, &gt, &success, &e.Emotion,
			&e.MetaConfidence, &e.BufferLen, &e.MemoryLen, &created); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		e.GroundTruth = gt != 0
		e.Success = success != 0
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion queries
