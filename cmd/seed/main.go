// Command seed pre-populates the associative memory with known-hostile
// subjects so day-one traffic hits the accept path instead of the fallback.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/thosperis/logmind/internal/config"
	"github.com/thosperis/logmind/internal/engine"
	"github.com/thosperis/logmind/internal/persist"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	listPath := flag.String("list", "", "file with one known-bad subject per line (default stdin)")
	repeat := flag.Int("repeat", 5, "seeding repetitions per subject; five drive reliability to 1.0")
	flag.Parse()

	if *repeat < 1 {
		fmt.Fprintln(os.Stderr, "usage: seed [--config file] [--list file] [--repeat n>=1]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("config: %v", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		fail("logger: %v", err)
	}
	defer logger.Sync()

	store := persist.NewFiles(cfg.Engine.WordsPath, cfg.Engine.StatePath)
	snap, err := store.Load()
	if err != nil {
		fail("load engine state: %v", err)
	}
	eng := engine.Restore(snap, engine.Config{
		Seed:      cfg.Engine.Seed,
		Persister: store,
		Logger:    logger,
	})

	in := os.Stdin
	if *listPath != "" {
		f, err := os.Open(*listPath)
		if err != nil {
			fail("open list: %v", err)
		}
		defer f.Close()
		in = f
	}

	subjects := 0
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		subject := strings.TrimSpace(sc.Text())
		if subject == "" || strings.HasPrefix(subject, "#") {
			continue
		}
		for i := 0; i < *repeat; i++ {
			eng.Seed(subject)
		}
		subjects++
	}
	if err := sc.Err(); err != nil {
		fail("read list: %v", err)
	}

	if err := eng.Flush(); err != nil {
		fail("persist seeded state: %v", err)
	}
	logger.Info("memory seeded",
		zap.Int("subjects", subjects),
		zap.Int("repetitions", *repeat),
		zap.Int("memory_entries", eng.MemoryLen()))
}

// #endregion main

// #region helpers

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// #endregion helpers
