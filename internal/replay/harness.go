package replay

import (
	"fmt"

	"github.com/thosperis/logmind/internal/engine"
)

// #region types

// Outcome is one replayed classification compared against its expectation.
type Outcome struct {
	Index    int
	Subject  string
	Label    string
	Branch   string
	Success  bool
	Matched  bool   // true when no expectation exists or it matched
	Mismatch string // human-readable difference, empty when matched
}

// Summary aggregates a replay run.
type Summary struct {
	Total      int
	Matched    int
	Mismatched int
	Outcomes   []Outcome
}

// #endregion types

// #region replay

// Run replays the fixture's problems in order on a fresh in-memory engine:
// no persistence, no journal, just the deterministic core. Any divergence
// from the recorded expectations is flagged per outcome.
func Run(f *Fixture) Summary {
	eng := engine.New(engine.Config{Seed: f.Seed})
	summary := Summary{Total: len(f.Problems)}

	for i, p := range f.Problems {
		res := eng.Classify(p.Subject, p.Malicious)
		out := Outcome{
			Index:   i,
			Subject: p.Subject,
			Label:   res.Label.String(),
			Branch:  string(res.Branch),
			Success: res.Success,
			Matched: true,
		}
		if len(f.Expected) > 0 {
			exp := f.Expected[i]
			if exp.Label != out.Label || exp.Branch != out.Branch || exp.Success != out.Success {
				out.Matched = false
				out.Mismatch = fmt.Sprintf("got (%s, %s, %v), want (%s, %s, %v)",
					out.Label, out.Branch, out.Success, exp.Label, exp.Branch, exp.Success)
			}
		}
		if out.Matched {
			summary.Matched++
		} else {
			summary.Mismatched++
		}
		summary.Outcomes = append(summary.Outcomes, out)
	}
	return summary
}

// Record runs the fixture's problems and fills Expected with the observed
// outcomes. Used by fixture authoring tools.
func Record(f *Fixture) {
	eng := engine.New(engine.Config{Seed: f.Seed})
	f.Expected = make([]FixtureExpected, 0, len(f.Problems))
	for _, p := range f.Problems {
		res := eng.Classify(p.Subject, p.Malicious)
		f.Expected = append(f.Expected, FixtureExpected{
			Label:   res.Label.String(),
			Branch:  string(res.Branch),
			Success: res.Success,
		})
	}
}

// #endregion replay
