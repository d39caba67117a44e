package fce

import (
	"math"
	"math/rand"
	"testing"

	"github.com/thosperis/logmind/internal/vector"
	"github.com/thosperis/logmind/internal/verdict"
)

func TestRecallEmptyMemory(t *testing.T) {
	m := NewMemory()
	label, conf := m.Recall([vector.Dim]float64{1})
	if !label.Equal(verdict.Benign) {
		t.Fatalf("empty recall label = %s, want benign", label)
	}
	if conf != 0 {
		t.Fatalf("empty recall confidence = %f, want 0", conf)
	}
}

func TestUpdateCreatesAtNeutralReliability(t *testing.T) {
	tab := vector.NewTable(rand.New(rand.NewSource(3)))
	m := NewMemory()
	fp := tab.Fingerprint("cgi-bin probe")
	m.Update("cgi-bin probe", fp, verdict.Malicious, true)
	e, ok := m.Get("cgi-bin probe")
	if !ok {
		t.Fatal("entry missing after update")
	}
	if e.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", e.Attempts)
	}
	if math.Abs(e.Reliability-0.6) > 1e-9 {
		t.Fatalf("reliability = %f, want 0.6 (0.5 start + 0.1 success)", e.Reliability)
	}
	if e.Label != "malicious" {
		t.Fatalf("label = %q, want malicious", e.Label)
	}
}

func TestReliabilityClamping(t *testing.T) {
	m := NewMemory()
	fp := [vector.Dim]float64{1}
	for i := 0; i < 20; i++ {
		m.Update("s", fp, verdict.Malicious, true)
	}
	e, _ := m.Get("s")
	if math.Abs(e.Reliability-1) > 1e-9 {
		t.Fatalf("reliability after success run = %f, want 1", e.Reliability)
	}
	for i := 0; i < 40; i++ {
		m.Update("s", fp, verdict.Malicious, false)
	}
	e, _ = m.Get("s")
	if math.Abs(e.Reliability) > 1e-9 {
		t.Fatalf("reliability after failure run = %f, want 0", e.Reliability)
	}
	if e.Attempts != 60 {
		t.Fatalf("attempts = %d, want 60", e.Attempts)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
}

func TestLabelOverwrittenEvenOnFailure(t *testing.T) {
	m := NewMemory()
	fp := [vector.Dim]float64{1}
	m.Update("s", fp, verdict.Malicious, true)
	m.Update("s", fp, verdict.Benign, false)
	e, _ := m.Get("s")
	if e.Label != "benign" {
		t.Fatalf("label = %q, want benign (wrong answers are remembered as given)", e.Label)
	}
}

func TestComputedLabelStoredAsBenign(t *testing.T) {
	m := NewMemory()
	fp := [vector.Dim]float64{1}
	m.Update("differentiate x^3", fp, verdict.Computed("3*x^2"), true)
	e, _ := m.Get("differentiate x^3")
	if e.Label != "benign" {
		t.Fatalf("label = %q, want benign (computed results are not hostile)", e.Label)
	}
}

func TestRecallExactSubjectHighConfidence(t *testing.T) {
	tab := vector.NewTable(rand.New(rand.NewSource(11)))
	m := NewMemory()
	subject := "cgi-bin exploit attempt"
	fp := tab.Fingerprint(subject)
	for i := 0; i < 5; i++ {
		m.Update(subject, fp, verdict.Malicious, true)
	}
	label, conf := m.Recall(tab.Fingerprint(subject))
	if !label.Equal(verdict.Malicious) {
		t.Fatalf("recall label = %s, want malicious", label)
	}
	if conf < 0.85 {
		t.Fatalf("confidence = %f, want >= 0.85 (similarity 1, reliability 1)", conf)
	}
}

func TestRecallTieBreakInsertionOrder(t *testing.T) {
	m := NewMemory()
	fp := [vector.Dim]float64{1, 2, 3}
	m.Update("first", fp, verdict.Malicious, true)
	m.Update("second", fp, verdict.Benign, true)
	label, _ := m.Recall(fp)
	if !label.Equal(verdict.Malicious) {
		t.Fatalf("recall = %s, want malicious from the first-inserted entry", label)
	}
}

func TestUnlabeledEntryRecallsMalicious(t *testing.T) {
	fp := [vector.Dim]float64{0.5, -0.5}
	m := Restore(map[string]Entry{
		"legacy": {Fingerprint: fp, Reliability: 0.9},
	}, []string{"legacy"})
	label, conf := m.Recall(fp)
	if !label.Equal(verdict.Malicious) {
		t.Fatalf("unlabeled entry recalled %s, want malicious default", label)
	}
	if math.Abs(conf-0.95) > 1e-9 {
		t.Fatalf("confidence = %f, want 0.95", conf)
	}
}

func TestExportRestoreKeepsOrder(t *testing.T) {
	m := NewMemory()
	fp := [vector.Dim]float64{1, 1}
	m.Update("a", fp, verdict.Malicious, true)
	m.Update("b", fp, verdict.Benign, true)
	entries, order := m.Export()
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v, want [a b]", order)
	}
	restored := Restore(entries, order)
	label, _ := restored.Recall(fp)
	if !label.Equal(verdict.Malicious) {
		t.Fatalf("restored recall = %s, want malicious (same tie-break winner)", label)
	}
}
