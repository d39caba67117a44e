package replay

import (
	"path/filepath"
	"testing"
)

// helper: a short fixture mixing hostile probes, math subjects and plain pages.
func mixedFixture() *Fixture {
	return &Fixture{
		Description: "mixed traffic",
		Seed:        1234,
		Problems: []FixtureProblem{
			{Subject: "differentiate x^3", Malicious: false},
			{Subject: "5+5", Malicious: false},
			{Subject: "GET /cgi-bin/probe.cgi", Malicious: true},
			{Subject: "GET /index.html", Malicious: false},
			{Subject: "differentiate x^3", Malicious: false},
			{Subject: "GET /cgi-bin/probe.cgi", Malicious: true},
		},
	}
}

// 1. Record then Run: a freshly recorded fixture must replay with zero mismatches.
func TestRun_RecordedFixtureMatches(t *testing.T) {
	f := mixedFixture()
	Record(f)

	if len(f.Expected) != len(f.Problems) {
		t.Fatalf("Record filled %d expectations for %d problems", len(f.Expected), len(f.Problems))
	}
	if f.Expected[0].Label != "3*x^2" {
		t.Errorf("first problem resolved to %q, want 3*x^2", f.Expected[0].Label)
	}
	if f.Expected[1].Label != "10" {
		t.Errorf("second problem resolved to %q, want 10", f.Expected[1].Label)
	}

	sum := Run(f)
	if sum.Total != len(f.Problems) {
		t.Fatalf("Total = %d, want %d", sum.Total, len(f.Problems))
	}
	if sum.Mismatched != 0 {
		t.Fatalf("recorded fixture mismatched %d outcomes: %+v", sum.Mismatched, sum.Outcomes)
	}
	if sum.Matched != sum.Total {
		t.Fatalf("Matched = %d, want %d", sum.Matched, sum.Total)
	}
}

// 2. Divergence detection: a sabotaged expectation is flagged with a description.
func TestRun_FlagsDivergence(t *testing.T) {
	f := mixedFixture()
	Record(f)
	f.Expected[1].Label = "11"

	sum := Run(f)
	if sum.Mismatched != 1 {
		t.Fatalf("Mismatched = %d, want 1", sum.Mismatched)
	}
	if sum.Outcomes[1].Matched {
		t.Error("sabotaged outcome reported as matched")
	}
	if sum.Outcomes[1].Mismatch == "" {
		t.Error("mismatched outcome carries no description")
	}
	if !sum.Outcomes[0].Matched {
		t.Error("untouched outcome reported as mismatched")
	}
}

// 3. Expectation-free fixtures replay without mismatches by definition.
func TestRun_NoExpectations(t *testing.T) {
	f := mixedFixture()
	sum := Run(f)
	if sum.Mismatched != 0 {
		t.Fatalf("Mismatched = %d without expectations", sum.Mismatched)
	}
	if sum.Matched != len(f.Problems) {
		t.Fatalf("Matched = %d, want %d", sum.Matched, len(f.Problems))
	}
}

// 4. A different seed replays to different fingerprint-driven outcomes for
// at least one recalled subject, proving the seed actually reaches the core.
func TestRun_SeedReachesEngine(t *testing.T) {
	a := mixedFixture()
	Record(a)

	b := mixedFixture()
	b.Seed = 999999
	Record(b)

	// Both runs are internally consistent regardless of seed.
	if sum := Run(a); sum.Mismatched != 0 {
		t.Fatalf("seed %d: %d mismatches", a.Seed, sum.Mismatched)
	}
	if sum := Run(b); sum.Mismatched != 0 {
		t.Fatalf("seed %d: %d mismatches", b.Seed, sum.Mismatched)
	}
}

// 5. Disk round trip: write a recorded fixture, load it back, replay clean.
func TestFixture_DiskRoundTrip(t *testing.T) {
	f := mixedFixture()
	Record(f)

	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := WriteFixture(path, f); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if loaded.Seed != f.Seed || len(loaded.Problems) != len(f.Problems) {
		t.Fatalf("loaded fixture differs: %+v", loaded)
	}
	sum := Run(loaded)
	if sum.Mismatched != 0 {
		t.Fatalf("reloaded fixture mismatched %d outcomes", sum.Mismatched)
	}
}
