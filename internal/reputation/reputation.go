// Package reputation scores traffic sources by their final classification
// labels and flips them to banned once the strike threshold is crossed.
package reputation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thosperis/logmind/internal/verdict"
)

// DefaultBanThreshold is the strike count that bans a source.
const DefaultBanThreshold = 3

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sources (
	addr         TEXT PRIMARY KEY,
	strikes      INTEGER NOT NULL DEFAULT 0,
	observations INTEGER NOT NULL DEFAULT 0,
	banned       INTEGER NOT NULL DEFAULT 0,
	first_seen   TEXT NOT NULL,
	last_seen    TEXT NOT NULL
);
`

// #endregion schema

// #region tracker

// Tracker manages per-source strike counts over a database shared with the
// journal.
type Tracker struct {
	db           *sql.DB
	banThreshold int
}

// NewTracker applies the sources schema on db. A non-positive threshold
// falls back to DefaultBanThreshold.
func NewTracker(db *sql.DB, banThreshold int) (*Tracker, error) {
	if banThreshold <= 0 {
		banThreshold = DefaultBanThreshold
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate sources: %w", err)
	}
	return &Tracker{db: db, banThreshold: banThreshold}, nil
}

// Source is one scored origin address.
type Source struct {
	Addr         string
	Strikes      int
	Observations int
	Banned       bool
	FirstSeen    time.Time
	LastSeen     time.Time
}

// #endregion tracker

// #region observe

// Observe folds one final label into the source's record. Only a label that
// renders exactly "malicious" earns a strike; computed expressions and benign
// verdicts never do. The returned flag is true exactly once per source, on
// the observation whose strike crosses the ban threshold.
func (t *Tracker) Observe(addr string, label verdict.Label) (bool, error) {
	if addr == "" {
		return false, nil
	}
	strike := 0
	if label.IsMalicious() {
		strike = 1
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := t.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin observe: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO sources (addr, strikes, observations, banned, first_seen, last_seen)
		 VALUES (?, ?, 1, 0, ?, ?)
		 ON CONFLICT(addr) DO UPDATE SET
			strikes      = strikes + excluded.strikes,
			observations = observations + 1,
			last_seen    = excluded.last_seen`,
		addr, strike, now, now,
	); err != nil {
		return false, fmt.Errorf("upsert source: %w", err)
	}

	var strikes, banned int
	if err := tx.QueryRow(`SELECT strikes, banned FROM sources WHERE addr = ?`, addr).
		Scan(&strikes, &banned); err != nil {
		return false, fmt.Errorf("read source: %w", err)
	}

	newlyBanned := false
	if banned == 0 && strikes >= t.banThreshold {
		if _, err := tx.Exec(`UPDATE sources SET banned = 1 WHERE addr = ?`, addr); err != nil {
			return false, fmt.Errorf("ban source: %w", err)
		}
		newlyBanned = true
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit observe: %w", err)
	}
	return newlyBanned, nil
}

// #endregion observe

// #region queries

// Lookup returns the record for addr; found is false for unseen sources.
func (t *Tracker) Lookup(addr string) (Source, bool, error) {
	row := t.db.QueryRow(
		`SELECT addr, strikes, observations, banned, first_seen, last_seen
		 FROM sources WHERE addr = ?`, addr)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return Source{}, false, nil
	}
	if err != nil {
		return Source{}, false, fmt.Errorf("lookup source: %w", err)
	}
	return src, true, nil
}

// Banned lists every banned source, most strikes first.
func (t *Tracker) Banned() ([]Source, error) {
	rows, err := t.db.Query(
		`SELECT addr, strikes, observations, banned, first_seen, last_seen
		 FROM sources WHERE banned = 1 ORDER BY strikes DESC, addr ASC`)
	if err != nil {
		return nil, fmt.Errorf("query banned: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan banned source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (Source, error) {
	var (
		src         Source
		banned      int
		first, last string
	)
	if err := row.Scan(&src.Addr, &src.Strikes, &src.Observations, &banned, &first, &last); err != nil {
		return Source{}, err
	}
	src.Banned = banned != 0
	if ts, err := time.Parse(time.RFC3339Nano, first); err == nil {
		src.FirstSeen = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, last); err == nil {
		src.LastSeen = ts
	}
	return src, nil
}

// #endregion queries
