// Command inspect prints the persisted engine state and, optionally, the
// journal history behind it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/thosperis/logmind/internal/journal"
	"github.com/thosperis/logmind/internal/persist"
)

// #region main

func main() {
	wordsPath := flag.String("words", "data/words.json", "word table document")
	statePath := flag.String("state", "data/state.json", "engine state document")
	journalPath := flag.String("journal", "", "include journal history from this database")
	last := flag.Int("last", 10, "show N most recent journal entries")
	jsonOut := flag.Bool("json", false, "output as JSON instead of tables")
	flag.Parse()

	store := persist.NewFiles(*wordsPath, *statePath)
	snap, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load state: %v\n", err)
		os.Exit(1)
	}

	var entries []journal.Entry
	var stats journal.Stats
	if *journalPath != "" {
		j, err := journal.Open(*journalPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
			os.Exit(1)
		}
		defer j.Close()
		if entries, err = j.Recent(*last); err != nil {
			fmt.Fprintf(os.Stderr, "read journal: %v\n", err)
			os.Exit(1)
		}
		if stats, err = j.Stats(); err != nil {
			fmt.Fprintf(os.Stderr, "journal stats: %v\n", err)
			os.Exit(1)
		}
	}

	if *jsonOut {
		out := map[string]any{"state": snap}
		if *journalPath != "" {
			out["journal_recent"] = entries
			out["journal_stats"] = stats
		}
		if err := printJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printState(snap)
	if *journalPath != "" {
		printJournal(entries, stats)
	}
}

// #endregion main

// #region state-view

func printState(snap *persist.Snapshot) {
	if snap == nil {
		fmt.Println("no persisted state (fresh deployment)")
		return
	}
	st := snap.State

	fmt.Printf("memory entries:  %d\n", len(st.Memory))
	fmt.Printf("trace layers:    %d (next id %d)\n", len(st.Layers), st.NextLayerID)
	fmt.Printf("chunks:          %d\n", len(st.Chunks))
	fmt.Printf("emotion:         %s (previous %s)\n", st.Emotion, st.PrevEmotion)
	fmt.Printf("meta confidence: %.3f\n", st.MetaConfidence)
	fmt.Printf("known words:     %d\n", len(snap.Words))

	subjects := make([]string, 0, len(st.Memory))
	for s := range st.Memory {
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, k int) bool {
		a, b := st.Memory[subjects[i]], st.Memory[subjects[k]]
		if a.Reliability != b.Reliability {
			return a.Reliability > b.Reliability
		}
		return subjects[i] < subjects[k]
	})

	if len(subjects) > 0 {
		fmt.Println("\nmost reliable subjects:")
		for i, s := range subjects {
			if i == 5 {
				break
			}
			e := st.Memory[s]
			fmt.Printf("  %-40s rel %.2f  attempts %-4d label %s\n",
				truncate(s, 40), e.Reliability, e.Attempts, labelOr(e.Label))
		}
	}

	if n := len(st.Layers); n > 0 {
		fmt.Println("\nnewest trace layers:")
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, l := range st.Layers[start:] {
			fmt.Printf("  [%d] %-18s %.2f  %s\n", l.ID, l.Category, l.Confidence, truncate(l.Content, 60))
		}
	}
}

// #endregion state-view

// #region journal-view

func printJournal(entries []journal.Entry, stats journal.Stats) {
	fmt.Printf("\njournal: %d classifications, %d successes\n", stats.Total, stats.Successes)

	branches := make([]string, 0, len(stats.ByBranch))
	for b := range stats.ByBranch {
		branches = append(branches, b)
	}
	sort.Strings(branches)
	for _, b := range branches {
		fmt.Printf("  %-12s %d\n", b, stats.ByBranch[b])
	}

	if len(entries) > 0 {
		fmt.Println("\nnewest entries:")
		for _, e := range entries {
			outcome := "fail"
			if e.Success {
				outcome = "ok"
			}
			fmt.Printf("  %s  %-4s %-10s %-40s -> %s\n",
				e.CreatedAt.Format("15:04:05"), outcome, e.Branch,
				truncate(e.Subject, 40), truncate(e.Label, 24))
		}
	}
}

// #endregion journal-view

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func labelOr(label string) string {
	if label == "" {
		return "(unset)"
	}
	return label
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// #endregion output
