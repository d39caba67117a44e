// Package trace implements the bounded narrative buffer: ordered layers with
// monotonic IDs, gradual fading, chunk compression, dream reordering and
// emotion-weighted retention.
package trace

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	// MaxActiveLayers is the window kept at full fidelity; older layers
	// degrade a little more on every append.
	MaxActiveLayers = 15
	// FadeThreshold is the hard cap; layers beyond it are dropped oldest
	// first.
	FadeThreshold = 60
)

// Layer categories written by the engine and the fallback reasoner.
const (
	CategoryProblemRecognition = "problem_recognition"
	CategorySymbolicCalcStep   = "symbolic_calc_step"
	CategorySolution           = "solution"
	CategoryComprehension      = "comprehension"
	CategoryError              = "error"
	CategoryInfo               = "info"
	CategoryChunk              = "chunk"
	CategoryFCEAccepted        = "fce_accepted"
	CategoryOutcome            = "outcome"
	CategoryReflection         = "reflection"
)

const (
	chunkMark           = "~CHUNKED:"
	similarityThreshold = 0.8
	charRetention       = 0.5 // per-rune survival probability while degrading
	fadeDecay           = 0.8
	retentionDecay      = 0.9
)

// #region layer

// Layer is one narrative entry.
type Layer struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a compressed run of similar layers. The chunk table is
// append-only: chunks are never deleted or rewritten.
type Chunk struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

// #endregion layer

// #region buffer

// Buffer is the engine's working narrative. Not safe for concurrent use; the
// engine is the single writer.
type Buffer struct {
	layers []Layer
	chunks []Chunk
	nextID int64
	rng    *rand.Rand
}

// NewBuffer returns an empty buffer drawing randomness from rng.
func NewBuffer(rng *rand.Rand) *Buffer {
	return &Buffer{nextID: 1, rng: rng}
}

// RestoreBuffer rebuilds a buffer from persisted layers and chunks. nextID
// continues the persisted ID sequence so layer IDs stay unique across
// restarts.
func RestoreBuffer(layers []Layer, chunks []Chunk, nextID int64, rng *rand.Rand) *Buffer {
	b := NewBuffer(rng)
	b.layers = append(b.layers, layers...)
	b.chunks = append(b.chunks, chunks...)
	if nextID > b.nextID {
		b.nextID = nextID
	}
	return b
}

// Len reports the number of active layers.
func (b *Buffer) Len() int { return len(b.layers) }

// Layers returns a copy of the active layers, oldest first.
func (b *Buffer) Layers() []Layer {
	out := make([]Layer, len(b.layers))
	copy(out, b.layers)
	return out
}

// Chunks returns a copy of the chunk table.
func (b *Buffer) Chunks() []Chunk {
	out := make([]Chunk, len(b.chunks))
	copy(out, b.chunks)
	return out
}

// ChunkCount reports the size of the chunk table.
func (b *Buffer) ChunkCount() int { return len(b.chunks) }

// NextID exposes the next layer ID for persistence.
func (b *Buffer) NextID() int64 { return b.nextID }

// #endregion buffer

// #region append

// Append adds a layer at full confidence and runs the fading pass: every
// layer older than the newest MaxActiveLayers degrades a little more, and
// the buffer is truncated to the newest FadeThreshold layers. IDs are
// monotonic and never reused.
func (b *Buffer) Append(content, category string) Layer {
	l := Layer{
		ID:         b.nextID,
		Content:    content,
		Category:   category,
		Confidence: 1.0,
		CreatedAt:  time.Now().UTC(),
	}
	b.nextID++
	b.layers = append(b.layers, l)
	b.fade()
	return l
}

func (b *Buffer) fade() {
	if excess := len(b.layers) - MaxActiveLayers; excess > 0 {
		for i := 0; i < excess; i++ {
			b.degrade(&b.layers[i], fadeDecay)
		}
	}
	if over := len(b.layers) - FadeThreshold; over > 0 {
		b.layers = append(b.layers[:0], b.layers[over:]...)
	}
}

// degrade keeps each rune of the content with probability charRetention and
// scales confidence by decay. Degradation is irreversible.
func (b *Buffer) degrade(l *Layer, decay float64) {
	var kept []rune
	for _, r := range l.Content {
		if b.rng.Float64() < charRetention {
			kept = append(kept, r)
		}
	}
	l.Content = string(kept)
	l.Confidence *= decay
}

// #endregion append

// #region chunking

// ChunkDetect compares the newest layer against every earlier layer, newest
// first. The first one similar enough closes a range: everything from that
// layer through the newest is concatenated into a new chunk, a summary layer
// is appended, and the absorbed layers are marked in place rather than
// deleted. At most one range per call.
func (b *Buffer) ChunkDetect() {
	if len(b.layers) < 2 {
		return
	}
	last := len(b.layers) - 1
	newest := b.layers[last]
	for i := last - 1; i >= 0; i-- {
		if Similarity(newest.Content, b.layers[i].Content) <= similarityThreshold {
			continue
		}
		parts := make([]string, 0, last-i+1)
		absorbed := make(map[int64]bool, last-i+1)
		for j := i; j <= last; j++ {
			parts = append(parts, b.layers[j].Content)
			absorbed[b.layers[j].ID] = true
		}
		chunk := Chunk{ID: len(b.chunks) + 1, Content: strings.Join(parts, "|")}
		b.chunks = append(b.chunks, chunk)
		b.Append(fmt.Sprintf("chunk %d absorbed %d layers", chunk.ID, len(parts)), CategoryChunk)
		// Mark by ID: the summary append may have faded or truncated, so
		// positions are stale but IDs are not.
		for j := range b.layers {
			if absorbed[b.layers[j].ID] && !strings.HasPrefix(b.layers[j].Content, chunkMark) {
				b.layers[j].Content = chunkMark + b.layers[j].Content
			}
		}
		return
	}
}

// Similarity is the crude containment metric used for chunking: the share of
// the longer string's runes covered by distinct runes of the shorter. Either
// side empty scores 0.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	shorter, longer := ra, rb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	present := make(map[rune]bool, len(longer))
	for _, r := range longer {
		present[r] = true
	}
	seen := make(map[rune]bool, len(shorter))
	count := 0
	for _, r := range shorter {
		if seen[r] {
			continue
		}
		seen[r] = true
		if present[r] {
			count++
		}
	}
	return float64(count) / float64(len(longer))
}

// #endregion chunking

// #region consolidation

// DreamReorder shuffles consolidation: five random swap draws (a draw with
// both indices equal swaps nothing), each executed swap re-running
// ChunkDetect with probability one half, then a completion layer.
func (b *Buffer) DreamReorder() {
	for k := 0; k < 5; k++ {
		n := len(b.layers)
		if n < 2 {
			continue
		}
		i, j := b.rng.Intn(n), b.rng.Intn(n)
		if i == j {
			continue
		}
		b.layers[i], b.layers[j] = b.layers[j], b.layers[i]
		if b.rng.Float64() < 0.5 {
			b.ChunkDetect()
		}
	}
	b.Append("dream reorder pass complete", CategoryInfo)
}

// RetentionCheck rolls each layer against the current emotional retention
// factor: with probability 1-factor the layer degrades, confidence scaled by
// 0.9. Factors of 1 or above keep everything.
func (b *Buffer) RetentionCheck(factor float64) {
	p := 1 - factor
	if p <= 0 {
		return
	}
	for i := range b.layers {
		if b.rng.Float64() < p {
			b.degrade(&b.layers[i], retentionDecay)
		}
	}
}

// #endregion consolidation
