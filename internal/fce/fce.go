// Package fce implements the fingerprint correlation engine: the associative
// pattern memory holding per-subject reliability scores, recalled by cosine
// similarity and adjusted by classification outcomes.
package fce

import (
	"math"

	"github.com/thosperis/logmind/internal/vector"
	"github.com/thosperis/logmind/internal/verdict"
)

const (
	initialReliability = 0.5
	successStep        = 0.1
	failureStep        = 0.05
)

// #region entry

// Entry is one remembered subject: the fingerprint captured when the entry
// was created, a reliability score in [0,1], the number of classification
// attempts and the last observed label.
type Entry struct {
	Fingerprint [vector.Dim]float64 `json:"fingerprint"`
	Reliability float64             `json:"reliability"`
	Attempts    int                 `json:"attempts"`
	Label       string              `json:"label"` // "malicious" | "benign" | "" (unset)
}

// #endregion entry

// #region memory

// Memory holds entries keyed by exact subject string. The insertion-order
// slice fixes recall enumeration so ties break the same way on every run and
// across restarts.
type Memory struct {
	entries map[string]*Entry
	order   []string
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*Entry)}
}

// Restore rebuilds memory from persisted entries in the persisted insertion
// order. Subjects missing from either side are dropped rather than guessed
// at.
func Restore(entries map[string]Entry, order []string) *Memory {
	m := NewMemory()
	for _, subject := range order {
		e, ok := entries[subject]
		if !ok {
			continue
		}
		cp := e
		m.entries[subject] = &cp
		m.order = append(m.order, subject)
	}
	return m
}

// Len reports the number of remembered subjects.
func (m *Memory) Len() int { return len(m.entries) }

// Get returns a copy of the entry for subject.
func (m *Memory) Get(subject string) (Entry, bool) {
	e, ok := m.entries[subject]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Export copies entries and insertion order for persistence.
func (m *Memory) Export() (map[string]Entry, []string) {
	entries := make(map[string]Entry, len(m.entries))
	for s, e := range m.entries {
		entries[s] = *e
	}
	order := make([]string, len(m.order))
	copy(order, m.order)
	return entries, order
}

// #endregion memory

// #region recall

// Recall scans every entry in insertion order and answers with the strongest
// match: confidence is the mean of the best cosine similarity and that
// entry's reliability. The first maximum wins on ties. An empty memory
// recalls (benign, 0): nothing known, nothing accused. An entry that was
// never labeled recalls malicious.
func (m *Memory) Recall(fp [vector.Dim]float64) (verdict.Label, float64) {
	if len(m.order) == 0 {
		return verdict.Benign, 0
	}
	var best *Entry
	var bestSim float64
	for _, subject := range m.order {
		e := m.entries[subject]
		sim := vector.Cosine(fp, e.Fingerprint)
		if best == nil || sim > bestSim {
			best = e
			bestSim = sim
		}
	}
	label := verdict.Malicious
	if best.Label == "benign" {
		label = verdict.Benign
	}
	return label, (bestSim + best.Reliability) / 2
}

// #endregion recall

// #region update

// Update applies a classification outcome. An unseen subject gets a fresh
// entry at reliability 0.5 before the outcome lands. Reliability moves +0.1
// on success and -0.05 on failure, clamped to [0,1]; the stored label is
// always overwritten with the binary form of the final label, success or
// not, so a wrong answer is remembered as given.
func (m *Memory) Update(subject string, fp [vector.Dim]float64, label verdict.Label, success bool) {
	e, ok := m.entries[subject]
	if !ok {
		e = &Entry{Fingerprint: fp, Reliability: initialReliability}
		m.entries[subject] = e
		m.order = append(m.order, subject)
	}
	e.Attempts++
	if success {
		e.Reliability = math.Min(e.Reliability+successStep, 1)
	} else {
		e.Reliability = math.Max(e.Reliability-failureStep, 0)
	}
	if label.IsMalicious() {
		e.Label = "malicious"
	} else {
		e.Label = "benign"
	}
}

// #endregion update
