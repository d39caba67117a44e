package engine

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/thosperis/logmind/internal/persist"
	"github.com/thosperis/logmind/internal/trace"
	"github.com/thosperis/logmind/internal/verdict"
)

// countingSolver returns a fixed label and counts consultations.
type countingSolver struct {
	label verdict.Label
	calls int
}

func (c *countingSolver) Solve(subject string) verdict.Label {
	c.calls++
	return c.label
}

type failingPersister struct{ err error }

func (f *failingPersister) Persist(*persist.Snapshot) error { return f.err }

func TestAcceptAfterSeeding(t *testing.T) {
	cs := &countingSolver{label: verdict.Benign}
	e := New(Config{Seed: 1, Solver: cs})
	for i := 0; i < 5; i++ {
		e.Seed("cgi-bin exploit probe")
	}
	res := e.Classify("cgi-bin exploit probe", true)
	if res.Branch != BranchAccept {
		t.Fatalf("branch = %s (confidence %.3f), want accept", res.Branch, res.RecallConfidence)
	}
	if !res.Label.Equal(verdict.Malicious) {
		t.Fatalf("label = %s, want malicious", res.Label)
	}
	if !res.Success {
		t.Fatal("expected success against hostile ground truth")
	}
	if cs.calls != 0 {
		t.Fatalf("solver consulted %d times on the accept path, want 0", cs.calls)
	}
	var narrated bool
	for _, l := range e.buffer.Layers() {
		if l.Category == trace.CategoryFCEAccepted {
			narrated = true
		}
	}
	if !narrated {
		t.Fatal("accept path left no fce_accepted layer")
	}
}

func TestFallbackCalculus(t *testing.T) {
	e := New(Config{Seed: 2})
	res := e.Classify("differentiate x^3", false)
	if res.Branch != BranchFallback {
		t.Fatalf("branch = %s, want fallback on empty memory", res.Branch)
	}
	if res.Label.String() != "3*x^2" {
		t.Fatalf("label = %s, want 3*x^2", res.Label)
	}
	if !res.Success {
		t.Fatal("computed result against benign ground truth should succeed")
	}
	entry, ok := e.MemoryEntry("differentiate x^3")
	if !ok {
		t.Fatal("no memory entry created")
	}
	if entry.Attempts != 1 || entry.Label != "benign" {
		t.Fatalf("entry = %+v, want attempts 1 and benign label", entry)
	}
}

func TestFallbackArithmetic(t *testing.T) {
	e := New(Config{Seed: 3})
	res := e.Classify("5+5", false)
	if res.Label.String() != "10" {
		t.Fatalf("label = %s, want 10", res.Label)
	}
	res = e.Classify("5+", false)
	if !res.Label.Equal(verdict.Benign) {
		t.Fatalf("malformed arithmetic label = %s, want benign", res.Label)
	}
	if !res.Success {
		t.Fatal("benign verdict on benign ground truth should succeed")
	}
}

func TestCrosscheckAgreement(t *testing.T) {
	// One successful seed leaves reliability 0.6; an identical subject
	// recalls at similarity 1, landing confidence 0.8 inside the crosscheck
	// window.
	cs := &countingSolver{label: verdict.Malicious}
	e := New(Config{Seed: 4, Solver: cs})
	e.Seed("union select from users")
	res := e.Classify("union select from users", true)
	if res.Branch != BranchCrosscheck {
		t.Fatalf("branch = %s (confidence %.3f), want crosscheck", res.Branch, res.RecallConfidence)
	}
	if cs.calls != 1 {
		t.Fatalf("solver consulted %d times, want 1", cs.calls)
	}
	if !res.Label.Equal(verdict.Malicious) {
		t.Fatalf("label = %s, want recalled malicious on agreement", res.Label)
	}
}

func TestCrosscheckDisagreementPrefersSolver(t *testing.T) {
	cs := &countingSolver{label: verdict.Benign}
	e := New(Config{Seed: 5, Solver: cs})
	e.Seed("some remembered pattern")
	res := e.Classify("some remembered pattern", false)
	if res.Branch != BranchCrosscheck {
		t.Fatalf("branch = %s (confidence %.3f), want crosscheck", res.Branch, res.RecallConfidence)
	}
	if !res.Label.Equal(verdict.Benign) {
		t.Fatalf("label = %s, want the solver's benign on disagreement", res.Label)
	}
	if !res.Success {
		t.Fatal("expected success: benign label, benign ground truth")
	}
}

func TestOutcomeLayerAlwaysAppended(t *testing.T) {
	e := New(Config{Seed: 6})
	e.Classify("plain request", false)
	var found bool
	for _, l := range e.buffer.Layers() {
		if l.Category == trace.CategoryOutcome {
			found = true
		}
	}
	if !found {
		t.Fatal("no outcome layer recorded")
	}
}

func TestDeterminismAcrossSameSeed(t *testing.T) {
	inputs := []struct {
		subject   string
		malicious bool
	}{
		{"cgi-bin exploit", true},
		{"differentiate x^3", false},
		{"5+5", false},
		{"GET /etc/passwd", true},
		{"ordinary request", false},
		{"integrate sin(x)", false},
	}
	run := func() []Result {
		e := New(Config{Seed: 99})
		var out []Result
		for lap := 0; lap < 2; lap++ {
			for _, in := range inputs {
				out = append(out, e.Classify(in.subject, in.malicious))
			}
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i].Label.String() != b[i].Label.String() ||
			a[i].Branch != b[i].Branch ||
			a[i].Success != b[i].Success ||
			a[i].Emotion != b[i].Emotion ||
			math.Abs(a[i].RecallConfidence-b[i].RecallConfidence) > 1e-12 ||
			math.Abs(a[i].MetaConfidence-b[i].MetaConfidence) > 1e-12 {
			t.Fatalf("same-seed runs diverged at step %d:\n%+v\n%+v", i, a[i], b[i])
		}
	}
}

func TestBulkClassificationInvariants(t *testing.T) {
	e := New(Config{Seed: 7})
	seeds := make([]string, 50)
	for i := range seeds {
		seeds[i] = fmt.Sprintf("known bad pattern %d", i)
		e.Seed(seeds[i])
	}
	if e.MemoryLen() != 50 {
		t.Fatalf("memory after seeding = %d, want 50", e.MemoryLen())
	}

	updates := map[string]int{}
	for i := 0; i < 200; i++ {
		var subject string
		var truth bool
		switch i % 4 {
		case 0:
			subject = seeds[i%50]
			truth = true
		case 1:
			subject = fmt.Sprintf("unseen probe %d", i)
		case 2:
			subject = "differentiate x^2"
		default:
			subject = fmt.Sprintf("%d+%d", i, i)
		}
		e.Classify(subject, truth)
		updates[subject]++
		if e.BufferLen() > trace.FadeThreshold {
			t.Fatalf("buffer length %d exceeded cap at step %d", e.BufferLen(), i)
		}
	}

	if e.MemoryLen() > 250 {
		t.Fatalf("memory = %d entries, want <= 250 after 50 seeds + 200 classifications", e.MemoryLen())
	}
	seeded := map[string]bool{}
	for _, s := range seeds {
		seeded[s] = true
	}
	for subject, n := range updates {
		entry, ok := e.MemoryEntry(subject)
		if !ok {
			t.Fatalf("no entry for %q", subject)
		}
		want := n
		if seeded[subject] {
			want++
		}
		if entry.Attempts != want {
			t.Fatalf("attempts for %q = %d, want %d", subject, entry.Attempts, want)
		}
		if entry.Reliability < 0 || entry.Reliability > 1 {
			t.Fatalf("reliability for %q = %f escaped [0,1]", subject, entry.Reliability)
		}
	}
}

func TestPersistenceFailureTolerated(t *testing.T) {
	e := New(Config{Seed: 8, Persister: &failingPersister{err: errors.New("disk full")}})
	res := e.Classify("5+5", false)
	if res.Persisted {
		t.Fatal("Persisted = true under a failing store")
	}
	if res.Label.String() != "10" {
		t.Fatalf("label = %s under persistence failure, want 10", res.Label)
	}
	res = e.Classify("7*3", false)
	if res.Label.String() != "21" {
		t.Fatalf("loop stopped after persistence failure: %s", res.Label)
	}
	if e.persistFails != 2 {
		t.Fatalf("consecutive failures = %d, want 2", e.persistFails)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := New(Config{Seed: 9})
	e.Classify("cgi-bin attack", true)
	e.Classify("5+5", false)

	r := Restore(e.Snapshot(), Config{Seed: 9})
	if r.MemoryLen() != e.MemoryLen() {
		t.Fatalf("restored memory = %d, want %d", r.MemoryLen(), e.MemoryLen())
	}
	if r.BufferLen() != e.BufferLen() {
		t.Fatalf("restored buffer = %d, want %d", r.BufferLen(), e.BufferLen())
	}
	if r.Emotion() != e.Emotion() {
		t.Fatalf("restored emotion = %s, want %s", r.Emotion(), e.Emotion())
	}
	if math.Abs(r.MetaConfidence()-e.MetaConfidence()) > 1e-12 {
		t.Fatalf("restored meta = %f, want %f", r.MetaConfidence(), e.MetaConfidence())
	}
	entry, ok := r.MemoryEntry("cgi-bin attack")
	if !ok || entry.Label != "malicious" {
		t.Fatalf("restored entry = %+v, want labeled malicious", entry)
	}
	if r.WordCount() != e.WordCount() {
		t.Fatalf("restored words = %d, want %d", r.WordCount(), e.WordCount())
	}
}

func TestRestoreNilBootsFresh(t *testing.T) {
	e := Restore(nil, Config{Seed: 10})
	if e.MemoryLen() != 0 || e.BufferLen() != 0 {
		t.Fatalf("nil restore not empty: memory %d, buffer %d", e.MemoryLen(), e.BufferLen())
	}
	if e.MetaConfidence() != 1 {
		t.Fatalf("meta = %f, want boot value 1", e.MetaConfidence())
	}
}
