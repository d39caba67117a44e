// Package engine runs the classification loop over the owned aggregate of
// word table, associative memory, trace buffer and affective state.
package engine

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/thosperis/logmind/internal/affect"
	"github.com/thosperis/logmind/internal/fce"
	"github.com/thosperis/logmind/internal/persist"
	"github.com/thosperis/logmind/internal/reasoner"
	"github.com/thosperis/logmind/internal/trace"
	"github.com/thosperis/logmind/internal/vector"
	"github.com/thosperis/logmind/internal/verdict"
)

// Confidence thresholds and the reflection chance of the outcome phase.
const (
	AcceptThreshold     = 0.85
	CrosscheckThreshold = 0.65
	ReflectionChance    = 0.3
)

// #region branch

// Branch records which path produced the final label.
type Branch string

const (
	BranchAccept     Branch = "accept"     // recall confidence >= AcceptThreshold
	BranchCrosscheck Branch = "crosscheck" // recall cross-checked against the reasoner
	BranchFallback   Branch = "fallback"   // reasoner alone
)

// #endregion branch

// #region config

// Solver is the pluggable fallback strategy.
type Solver interface {
	Solve(subject string) verdict.Label
}

// Persister stores a snapshot after every finalized classification.
type Persister interface {
	Persist(snap *persist.Snapshot) error
}

// Config wires an engine. Nil fields get safe defaults: a nop logger, no
// persistence and the rule-based reasoner over the engine's own buffer.
type Config struct {
	Seed      int64
	Solver    Solver
	Persister Persister
	Logger    *zap.Logger
}

// #endregion config

// #region engine

// Engine owns every mutable structure of the classification loop: one RNG
// seeds all randomness, so a fixed seed and input sequence reproduce every
// label, trace layer and emotional shift. All methods must be called from a
// single goroutine; the service feeds the engine through one ordered
// channel.
type Engine struct {
	words  *vector.Table
	memory *fce.Memory
	buffer *trace.Buffer
	mood   *affect.State
	solver Solver
	rng    *rand.Rand
	log    *zap.Logger

	persister    Persister
	persistFails int
}

// New boots an empty engine.
func New(cfg Config) *Engine {
	rng := rand.New(rand.NewSource(cfg.Seed))
	return assemble(
		vector.NewTable(rng),
		fce.NewMemory(),
		trace.NewBuffer(rng),
		affect.NewState(rng),
		rng, cfg)
}

// Restore resumes from a persisted snapshot; a nil snapshot boots fresh.
func Restore(snap *persist.Snapshot, cfg Config) *Engine {
	if snap == nil {
		return New(cfg)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return assemble(
		vector.Restore(snap.Words, rng),
		fce.Restore(snap.State.Memory, snap.State.MemoryOrder),
		trace.RestoreBuffer(snap.State.Layers, snap.State.Chunks, snap.State.NextLayerID, rng),
		affect.RestoreState(snap.State.Emotion, snap.State.PrevEmotion, snap.State.MetaConfidence, rng),
		rng, cfg)
}

func assemble(words *vector.Table, memory *fce.Memory, buffer *trace.Buffer, mood *affect.State, rng *rand.Rand, cfg Config) *Engine {
	e := &Engine{
		words:     words,
		memory:    memory,
		buffer:    buffer,
		mood:      mood,
		rng:       rng,
		solver:    cfg.Solver,
		persister: cfg.Persister,
		log:       cfg.Logger,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.solver == nil {
		e.solver = reasoner.New(e.buffer)
	}
	return e
}

// #endregion engine

// #region result

// Result is one finalized classification.
type Result struct {
	Subject          string
	Label            verdict.Label
	Branch           Branch
	RecallLabel      verdict.Label
	RecallConfidence float64
	GroundTruth      bool
	Success          bool
	Emotion          affect.Emotion
	MetaConfidence   float64
	Persisted        bool
}

// #endregion result

// #region classify

// Classify runs one full cycle: recall, branch selection, outcome
// bookkeeping, consolidation and persistence. groundTruth is the operator's
// verdict that the subject really is hostile; success means the final label
// agreed with it.
func (e *Engine) Classify(subject string, groundTruth bool) Result {
	fp := e.words.Fingerprint(subject)
	recalled, confidence := e.memory.Recall(fp)

	var label verdict.Label
	var branch Branch
	switch {
	case confidence >= AcceptThreshold:
		branch = BranchAccept
		label = recalled
		e.buffer.Append(fmt.Sprintf("memory accepted %q as %s (confidence %.2f)",
			subject, recalled, confidence), trace.CategoryFCEAccepted)
	case confidence >= CrosscheckThreshold:
		branch = BranchCrosscheck
		solved := e.solver.Solve(subject)
		if solved.Equal(recalled) {
			label = recalled
			e.buffer.Append(fmt.Sprintf("crosscheck agrees with memory: %s", recalled),
				trace.CategoryInfo)
		} else {
			label = solved
			e.buffer.Append(fmt.Sprintf("crosscheck overruled memory %s with %s", recalled, solved),
				trace.CategoryInfo)
		}
	default:
		branch = BranchFallback
		label = e.solver.Solve(subject)
	}

	success := label.IsMalicious() == groundTruth
	e.memory.Update(subject, fp, label, success)
	e.mood.Update(success)

	outcome := "failure"
	if success {
		outcome = "success"
	}
	e.buffer.Append(fmt.Sprintf("%s: %q classified %s via %s", outcome, subject, label, branch),
		trace.CategoryOutcome)
	if e.rng.Float64() < ReflectionChance {
		e.buffer.Append(fmt.Sprintf("feeling %s after the last outcome (meta confidence %.2f)",
			e.mood.Current(), e.mood.MetaConfidence()), trace.CategoryReflection)
	}
	e.buffer.DreamReorder()
	e.buffer.RetentionCheck(e.mood.RetentionFactor())
	if e.buffer.Len()%3 == 0 {
		e.buffer.ChunkDetect()
	}

	return Result{
		Subject:          subject,
		Label:            label,
		Branch:           branch,
		RecallLabel:      recalled,
		RecallConfidence: confidence,
		GroundTruth:      groundTruth,
		Success:          success,
		Emotion:          e.mood.Current(),
		MetaConfidence:   e.mood.MetaConfidence(),
		Persisted:        e.persist(),
	}
}

// Seed teaches the memory a known-hostile subject ahead of live traffic, as
// one successful malicious classification. Seeding does not touch the trace
// buffer or the affective state.
func (e *Engine) Seed(subject string) {
	fp := e.words.Fingerprint(subject)
	e.memory.Update(subject, fp, verdict.Malicious, true)
}

// persist pushes the current snapshot through the configured persister. A
// failure is an operator alert, never a loop abort: the engine keeps its
// in-memory state and the next cycle retries.
func (e *Engine) persist() bool {
	if e.persister == nil {
		return false
	}
	if err := e.persister.Persist(e.Snapshot()); err != nil {
		e.persistFails++
		e.log.Error("state persistence failed; continuing from in-memory state",
			zap.Error(err), zap.Int("consecutive_failures", e.persistFails))
		return false
	}
	e.persistFails = 0
	return true
}

// #endregion classify

// #region snapshot

// Snapshot assembles the persistable view of the aggregate.
func (e *Engine) Snapshot() *persist.Snapshot {
	entries, order := e.memory.Export()
	return &persist.Snapshot{
		Words: e.words.Export(),
		State: persist.State{
			Layers:         e.buffer.Layers(),
			NextLayerID:    e.buffer.NextID(),
			Chunks:         e.buffer.Chunks(),
			Memory:         entries,
			MemoryOrder:    order,
			Emotion:        e.mood.Current(),
			PrevEmotion:    e.mood.Previous(),
			MetaConfidence: e.mood.MetaConfidence(),
		},
	}
}

// Flush persists immediately, outside the classification cycle. The seeding
// tool and shutdown paths use it.
func (e *Engine) Flush() error {
	if e.persister == nil {
		return nil
	}
	return e.persister.Persist(e.Snapshot())
}

// #endregion snapshot

// #region accessors

// MemoryLen reports the number of remembered subjects.
func (e *Engine) MemoryLen() int { return e.memory.Len() }

// BufferLen reports the number of active trace layers.
func (e *Engine) BufferLen() int { return e.buffer.Len() }

// ChunkCount reports the size of the chunk table.
func (e *Engine) ChunkCount() int { return e.buffer.ChunkCount() }

// Emotion returns the current affective state.
func (e *Engine) Emotion() affect.Emotion { return e.mood.Current() }

// MetaConfidence returns the engine's self-assessment in [0,2].
func (e *Engine) MetaConfidence() float64 { return e.mood.MetaConfidence() }

// MemoryEntry exposes one memory entry for inspection.
func (e *Engine) MemoryEntry(subject string) (fce.Entry, bool) { return e.memory.Get(subject) }

// WordCount reports the size of the word-vector table.
func (e *Engine) WordCount() int { return e.words.Len() }

// #endregion accessors
