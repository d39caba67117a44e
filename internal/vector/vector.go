// Package vector implements the word-vector table and subject fingerprints
// used by associative recall.
package vector

import (
	"math"
	"math/rand"
	"strings"
	"unicode"
)

// Dim is the dimensionality of word vectors and fingerprints.
const Dim = 10

// #region word-table

// Table maps words to fixed random vectors. Vectors are assigned on first
// sight from the shared engine RNG and are never renormalized or evicted, so
// a given seed and subject order always reproduce the same table.
type Table struct {
	words map[string][Dim]float64
	rng   *rand.Rand
}

// NewTable returns an empty table drawing new vectors from rng.
func NewTable(rng *rand.Rand) *Table {
	return &Table{words: make(map[string][Dim]float64), rng: rng}
}

// Restore rebuilds a table from persisted word vectors.
func Restore(words map[string][Dim]float64, rng *rand.Rand) *Table {
	t := NewTable(rng)
	for w, v := range words {
		t.words[w] = v
	}
	return t
}

// Vector returns the vector for word, creating one with components uniform in
// [-1, 1] the first time the word is seen.
func (t *Table) Vector(word string) [Dim]float64 {
	if v, ok := t.words[word]; ok {
		return v
	}
	var v [Dim]float64
	for i := range v {
		v[i] = t.rng.Float64()*2 - 1
	}
	t.words[word] = v
	return v
}

// Len reports the number of known words.
func (t *Table) Len() int { return len(t.words) }

// Export copies the table for persistence.
func (t *Table) Export() map[string][Dim]float64 {
	out := make(map[string][Dim]float64, len(t.words))
	for w, v := range t.words {
		out[w] = v
	}
	return out
}

// #endregion word-table

// #region fingerprint

// Tokenize lowercases s and splits it into maximal alphanumeric runs.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Fingerprint averages the vectors of every token in subject, duplicates
// included. A subject with no tokens maps to the zero vector.
func (t *Table) Fingerprint(subject string) [Dim]float64 {
	var fp [Dim]float64
	tokens := Tokenize(subject)
	if len(tokens) == 0 {
		return fp
	}
	for _, tok := range tokens {
		v := t.Vector(tok)
		for i := range fp {
			fp[i] += v[i]
		}
	}
	n := float64(len(tokens))
	for i := range fp {
		fp[i] /= n
	}
	return fp
}

// #endregion fingerprint

// #region cosine

// Cosine returns the cosine similarity of a and b, or 0 when either has zero
// magnitude.
func Cosine(a, b [Dim]float64) float64 {
	var dot, na, nb float64
	for i := 0; i < Dim; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// #endregion cosine
