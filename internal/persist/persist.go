// Package persist implements the durable-store contract: the word-vector
// table and the engine state as two JSON documents, rewritten atomically
// after every finalized classification.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thosperis/logmind/internal/affect"
	"github.com/thosperis/logmind/internal/fce"
	"github.com/thosperis/logmind/internal/trace"
	"github.com/thosperis/logmind/internal/vector"
)

// #region snapshot

// Snapshot is everything the engine persists: the word table in one document
// and the mutable engine state in the other.
type Snapshot struct {
	Words map[string][vector.Dim]float64 `json:"words"`
	State State                          `json:"state"`
}

// State is the engine-state document. MemoryOrder pins recall enumeration
// across restarts.
type State struct {
	Layers         []trace.Layer        `json:"layers"`
	NextLayerID    int64                `json:"next_layer_id"`
	Chunks         []trace.Chunk        `json:"chunks"`
	Memory         map[string]fce.Entry `json:"memory"`
	MemoryOrder    []string             `json:"memory_order"`
	Emotion        affect.Emotion       `json:"emotion"`
	PrevEmotion    affect.Emotion       `json:"previous_emotion"`
	MetaConfidence float64              `json:"meta_confidence"`
}

// #endregion snapshot

// #region files

// Files stores snapshots at two fixed paths.
type Files struct {
	wordsPath string
	statePath string
}

// NewFiles returns a store writing the word table to wordsPath and the
// engine state to statePath.
func NewFiles(wordsPath, statePath string) *Files {
	return &Files{wordsPath: wordsPath, statePath: statePath}
}

// Persist writes both documents, each atomically: temp file in the target
// directory, then rename. A failure leaves the previous document intact.
func (f *Files) Persist(snap *Snapshot) error {
	if err := writeJSON(f.wordsPath, snap.Words); err != nil {
		return fmt.Errorf("persist words: %w", err)
	}
	if err := writeJSON(f.statePath, &snap.State); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// Load reads both documents. A missing state document means a fresh
// deployment: Load returns (nil, nil) and the caller boots an empty engine.
func (f *Files) Load() (*Snapshot, error) {
	snap := &Snapshot{Words: map[string][vector.Dim]float64{}}
	found, err := readJSON(f.statePath, &snap.State)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !found {
		return nil, nil
	}
	if _, err := readJSON(f.wordsPath, &snap.Words); err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	return snap, nil
}

// #endregion files

// #region io

func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// #endregion io
