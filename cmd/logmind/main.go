// Command logmind runs the adaptive classification service over an access
// log stream: ingest feeds one ordered queue, the engine classifies, and the
// journal, reputation tracker, abuse reporter and Prometheus endpoint observe
// every finalized result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/thosperis/logmind/internal/config"
	"github.com/thosperis/logmind/internal/engine"
	"github.com/thosperis/logmind/internal/ingest"
	"github.com/thosperis/logmind/internal/journal"
	"github.com/thosperis/logmind/internal/metrics"
	"github.com/thosperis/logmind/internal/persist"
	"github.com/thosperis/logmind/internal/report"
	"github.com/thosperis/logmind/internal/reputation"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := buildLogger(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("service failed", zap.Error(err))
		os.Exit(1)
	}
}

func buildLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// #endregion main

// #region run

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Engine state and persistence.
	store := persist.NewFiles(cfg.Engine.WordsPath, cfg.Engine.StatePath)
	snap, err := store.Load()
	if err != nil {
		return fmt.Errorf("load engine state: %w", err)
	}
	eng := engine.Restore(snap, engine.Config{
		Seed:      cfg.Engine.Seed,
		Persister: store,
		Logger:    logger,
	})
	if snap == nil {
		logger.Info("booting fresh engine", zap.Int64("seed", cfg.Engine.Seed))
	} else {
		logger.Info("resumed persisted engine",
			zap.Int("memory_entries", eng.MemoryLen()),
			zap.Int("trace_layers", eng.BufferLen()))
	}

	// Journal, with reputation sharing its database.
	jrnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	var tracker *reputation.Tracker
	if cfg.Reputation.Enabled {
		tracker, err = reputation.NewTracker(jrnl.DB(), cfg.Reputation.BanThreshold)
		if err != nil {
			return fmt.Errorf("reputation tracker: %w", err)
		}
	}

	var reporter report.Reporter
	if cfg.Report.Enabled && cfg.Report.Endpoint != "" {
		reporter = report.NewHTTPReporter(cfg.Report.Endpoint,
			time.Duration(cfg.Report.TimeoutSeconds)*time.Second)
	}

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
		logger.Info("metrics endpoint up", zap.String("addr", cfg.Metrics.Addr))
	}

	// Single producer, single consumer: ordering is the determinism contract.
	source, closeSource, err := openSource(cfg.Ingest.Source)
	if err != nil {
		return err
	}
	defer closeSource()

	problems := make(chan ingest.Problem, 64)
	go func() {
		skipped, serr := ingest.Stream(ctx, source, problems)
		if serr != nil && !errors.Is(serr, context.Canceled) {
			logger.Error("ingest stream ended", zap.Error(serr))
		}
		if skipped > 0 {
			metrics.SkippedLines.Add(float64(skipped))
			logger.Warn("skipped malformed log lines", zap.Int("count", skipped))
		}
	}()

	runID := uuid.New().String()
	logger.Info("classification loop started",
		zap.String("run_id", runID),
		zap.String("source", sourceName(cfg.Ingest.Source)))

	processed := 0
	for p := range problems {
		res := eng.Classify(p.Subject, p.Malicious)
		processed++

		if err := jrnl.Append(journal.FromResult(runID, res, eng.BufferLen(), eng.MemoryLen())); err != nil {
			metrics.JournalFailures.Inc()
			logger.Error("journal append failed", zap.Error(err))
		}
		metrics.RecordClassification(res, eng.MemoryLen(), eng.BufferLen(), eng.ChunkCount())

		if tracker != nil {
			handleReputation(ctx, logger, tracker, reporter, p, res)
		}
	}

	if err := eng.Flush(); err != nil {
		logger.Error("final state flush failed", zap.Error(err))
	}
	logger.Info("classification loop stopped", zap.Int("processed", processed))
	return nil
}

// handleReputation folds the final label into the source's record and, on a
// fresh ban, fires the abuse report.
func handleReputation(ctx context.Context, logger *zap.Logger, tracker *reputation.Tracker,
	reporter report.Reporter, p ingest.Problem, res engine.Result) {

	banned, err := tracker.Observe(p.Addr, res.Label)
	if err != nil {
		logger.Error("reputation update failed", zap.Error(err), zap.String("addr", p.Addr))
		return
	}
	if !banned {
		return
	}

	metrics.Bans.Inc()
	logger.Warn("source banned", zap.String("addr", p.Addr), zap.String("subject", p.Subject))

	if reporter == nil {
		return
	}
	strikes := 0
	if src, found, lerr := tracker.Lookup(p.Addr); lerr == nil && found {
		strikes = src.Strikes
	}
	inc := report.NewIncident(p.Addr, p.Subject, strikes)
	if rerr := reporter.Report(ctx, inc); rerr != nil {
		metrics.RecordReportResult(false)
		logger.Error("abuse report failed", zap.Error(rerr), zap.String("incident", inc.ID))
		return
	}
	metrics.RecordReportResult(true)
	logger.Info("abuse report delivered", zap.String("incident", inc.ID), zap.String("addr", p.Addr))
}

// #endregion run

// #region helpers

func openSource(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log source: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func sourceName(path string) string {
	if path == "" {
		return "stdin"
	}
	return path
}

// #endregion helpers
