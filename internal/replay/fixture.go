package replay

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a recorded
// problem sequence plus the outcomes it is expected to reproduce.
type Fixture struct {
	Description string            `json:"description,omitempty"`
	Seed        int64             `json:"seed"`
	Problems    []FixtureProblem  `json:"problems"`
	Expected    []FixtureExpected `json:"expected,omitempty"`
}

// FixtureProblem is one recorded input.
type FixtureProblem struct {
	Subject   string `json:"subject"`
	Malicious bool   `json:"malicious"`
}

// FixtureExpected pins the outcome of the same-index problem.
type FixtureExpected struct {
	Label   string `json:"label"`
	Branch  string `json:"branch"` // "accept" | "crosscheck" | "fallback"
	Success bool   `json:"success"`
}

// #endregion fixture-types

// #region fixture-io

// LoadFixture reads and validates a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Problems) == 0 {
		return nil, fmt.Errorf("fixture %s has no problems", path)
	}
	if len(f.Expected) != 0 && len(f.Expected) != len(f.Problems) {
		return nil, fmt.Errorf("fixture %s has %d problems but %d expectations",
			path, len(f.Problems), len(f.Expected))
	}
	return &f, nil
}

// WriteFixture saves a fixture for later replays.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-io
