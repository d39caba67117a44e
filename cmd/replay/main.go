// Command replay re-executes recorded traffic against a fresh engine and
// reports divergence from the recorded outcomes. Fixture mode replays a JSON
// fixture; journal mode rebuilds the problem sequence from a journal
// database, which only reproduces when the journal covers the engine's whole
// history from the same seed.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/thosperis/logmind/internal/journal"
	"github.com/thosperis/logmind/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	record := flag.Bool("record", false, "with --fixture: record outcomes into the file instead of comparing")
	journalPath := flag.String("journal", "", "path to journal database (journal mode)")
	runID := flag.String("run", "", "with --journal: restrict to one run ID")
	seed := flag.Int64("seed", 1, "engine seed for journal mode")
	outPath := flag.String("out", "", "with --journal: export the rebuilt sequence as a fixture instead of replaying")
	verbose := flag.Bool("v", false, "print every outcome, not only mismatches")
	flag.Parse()

	if (*fixturePath == "" && *journalPath == "") || (*fixturePath != "" && *journalPath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--record]")
		fmt.Fprintln(os.Stderr, "       replay --journal path/to/logmind.db [--run id] [--seed n] [--out fixture.json]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *record, *verbose)
	} else {
		exitCode = runJournalMode(*journalPath, *runID, *seed, *outPath, *verbose)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string, record, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	if record {
		replay.Record(f)
		if err := replay.WriteFixture(path, f); err != nil {
			fmt.Fprintf(os.Stderr, "write fixture: %v\n", err)
			return 2
		}
		fmt.Printf("recorded %d expected outcomes into %s\n", len(f.Expected), path)
		return 0
	}

	return printComparison(replay.Run(f), verbose)
}

// #endregion fixture-mode

// #region journal-mode

func runJournalMode(path, runID string, seed int64, outPath string, verbose bool) int {
	j, err := journal.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		return 2
	}
	defer j.Close()

	entries, err := j.Replayable(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read journal: %v\n", err)
		return 2
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no replayable entries found in journal")
		return 2
	}

	f := &replay.Fixture{
		Description: fixtureDescription(path, runID),
		Seed:        seed,
	}
	for _, e := range entries {
		f.Problems = append(f.Problems, replay.FixtureProblem{
			Subject:   e.Subject,
			Malicious: e.GroundTruth,
		})
		f.Expected = append(f.Expected, replay.FixtureExpected{
			Label:   e.Label,
			Branch:  e.Branch,
			Success: e.Success,
		})
	}

	if outPath != "" {
		if err := replay.WriteFixture(outPath, f); err != nil {
			fmt.Fprintf(os.Stderr, "export fixture: %v\n", err)
			return 2
		}
		fmt.Printf("exported %d problems to %s\n", len(f.Problems), outPath)
		return 0
	}

	return printComparison(replay.Run(f), verbose)
}

func fixtureDescription(path, runID string) string {
	if runID == "" {
		return fmt.Sprintf("exported from %s", path)
	}
	return fmt.Sprintf("exported from %s, run %s", path, runID)
}

// #endregion journal-mode

// #region output

// printComparison outputs the per-problem table and returns the exit code:
// zero when every outcome matched, one on divergence.
func printComparison(sum replay.Summary, verbose bool) int {
	fmt.Printf("%-5s| %-40s| %-20s| %-10s| %s\n", "#", "Subject", "Label", "Branch", "Match")
	fmt.Printf("%-5s+%-41s+%-21s+%-11s+%s\n",
		"-----", "-----------------------------------------", "---------------------", "-----------", "------")

	for _, o := range sum.Outcomes {
		if o.Matched && !verbose {
			continue
		}
		match := "OK"
		if !o.Matched {
			match = "DIFF"
		}
		fmt.Printf("%-5d| %-40s| %-20s| %-10s| %s\n",
			o.Index, truncate(o.Subject, 40), truncate(o.Label, 20), o.Branch, match)
		if !o.Matched {
			fmt.Printf("      %s\n", o.Mismatch)
		}
	}

	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", sum.Total, sum.Matched, sum.Mismatched)
	if sum.Mismatched > 0 {
		return 1
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// #endregion output
