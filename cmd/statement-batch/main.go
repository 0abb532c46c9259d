package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/export"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/ingest"
	"github.com/joseph-ayodele/finextract/internal/llm"
	"github.com/joseph-ayodele/finextract/internal/llm/openai"
	"github.com/joseph-ayodele/finextract/internal/pipeline"
	repo "github.com/joseph-ayodele/finextract/internal/repository"
	"github.com/joseph-ayodele/finextract/internal/server"
)

const inMemoryDSN = "file:statement-batch?mode=memory&cache=shared"

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem    = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir      = flag.String("dir", "", "directory to process documents from (required)")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		fromStr  = flag.String("from", "", "from date YYYY-MM-DD")
		toStr    = flag.String("to", "", "to date YYYY-MM-DD")
		parallel = flag.Int("parallel", 4, "documents processed concurrently")
		hidden   = flag.Bool("hidden", false, "include hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "statements.xlsx")
	}

	from, err := parseDateFlag("from", *fromStr)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	to, err := parseDateFlag("to", *toStr)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.DSN = inMemoryDSN
	}
	if cfg.Database.DSN == "" {
		printError("Error: DB_URL is required unless --inmem is set\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)

	docsRepo := repo.NewDocumentRepository(db, logger)
	txRepo := repo.NewTransactionRepository(db, logger)
	jobsRepo := repo.NewExtractJobRepository(db, logger)

	dispatcher := extract.NewDispatcher(extract.NewServices(cfg, logger), logger)

	var analyzer llm.Analyzer
	if cfg.AnalyzerEnabled() {
		analyzer = openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
		logger.Info("OpenAI client initialized", "model", cfg.LLM.Model)
	} else {
		logger.Warn("OpenAI API key not configured, transaction analysis will be skipped")
	}
	processor := pipeline.NewProcessor(logger, docsRepo, txRepo, jobsRepo, dispatcher, analyzer)

	// Ingest directory
	ingestor := ingest.NewFSIngestor(docsRepo, nil, logger)
	logger.Info("starting ingestion", "dir", *dir)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir, !*hidden)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}

	var ingested []uuid.UUID
	for _, r := range results {
		if r.Err == "" {
			ingested = append(ingested, r.DocumentID)
		}
	}
	logger.Info("ingestion complete",
		"documents", len(ingested),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	// Process documents; one failure never stops the batch
	var processed, failures atomic.Int64
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, *parallel))
	for _, id := range ingested {
		g.Go(func() error {
			if _, err := processor.ProcessDocument(gctx, id); err != nil {
				logger.Error("failed to process document", "document_id", id, "error", err)
				failures.Add(1)
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		logger.Warn("batch interrupted", "error", ctx.Err())
		os.Exit(1)
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsx, err := export.NewService(docsRepo, txRepo, logger).ExportXLSX(ctx, from, to)
	if err != nil {
		logger.Error("failed to export", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"documents", len(ingested),
		"processed", processed.Load(),
		"failures", failures.Load(),
		"output_file", *out,
		"duration_ms", time.Since(start).Milliseconds())

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents ingested: %d\n", len(ingested))
	fmt.Printf("- Documents processed: %d\n", processed.Load())
	fmt.Printf("- Failures: %d\n", failures.Load())
	fmt.Printf("- Output: %s\n", *out)
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := common.ParseYMD(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date format, use YYYY-MM-DD: %w", name, err)
	}
	return &t, nil
}
