package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/finextract/internal/async"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/export"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/ingest"
	"github.com/joseph-ayodele/finextract/internal/llm"
	"github.com/joseph-ayodele/finextract/internal/llm/openai"
	"github.com/joseph-ayodele/finextract/internal/metrics"
	"github.com/joseph-ayodele/finextract/internal/ocr"
	"github.com/joseph-ayodele/finextract/internal/pipeline"
	repo "github.com/joseph-ayodele/finextract/internal/repository"
	"github.com/joseph-ayodele/finextract/internal/server"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)
	if err := server.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	docsRepo := repo.NewDocumentRepository(db, logger)
	txRepo := repo.NewTransactionRepository(db, logger)
	jobsRepo := repo.NewExtractJobRepository(db, logger)

	// Metrics
	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	// Extraction core: built once, shared by every request and worker
	services := extract.NewServices(cfg, logger, ocr.WithAttemptObserver(m.ObserveOCRAttempt))
	dispatcher := extract.NewDispatcher(services, logger, extract.WithObserver(m.ObserveExtraction))
	cached := extract.NewCachedDispatcher(dispatcher, cfg.Cache.TTL, cfg.Cache.Capacity, logger)
	cached.Start()
	defer cached.Stop()
	metrics.RegisterCache(reg, cached)

	var analyzer llm.Analyzer
	if cfg.AnalyzerEnabled() {
		analyzer = openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
		logger.Info("analyzer enabled", "model", cfg.LLM.Model)
	} else {
		logger.Warn("OPENAI_API_KEY not set, documents stop after text extraction")
	}

	processor := pipeline.NewProcessor(logger, docsRepo, txRepo, jobsRepo, cached, analyzer)
	queue := async.NewQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.Timeout),
		async.WithOnDone(m.ObserveJob),
	)
	metrics.RegisterQueue(reg, queue)

	ingestor := ingest.NewFSIngestor(docsRepo, queue.Submit, logger)
	if len(cfg.Ingest.WatchDirs) > 0 {
		go func() {
			err := ingest.Watch(ctx, ingestor, ingest.WatchConfig{
				Roots:       cfg.Ingest.WatchDirs,
				InitialScan: true,
				Debounce:    cfg.Ingest.Debounce,
				Logger:      logger,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	// gRPC server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.UnaryLogging(logger)))
	svc := server.NewExtractionService(server.Deps{
		Extractor: cached,
		Ingestor:  ingestor,
		Docs:      docsRepo,
		Txs:       txRepo,
		Jobs:      jobsRepo,
		Exporter:  export.NewService(docsRepo, txRepo, logger),
	}, logger)
	server.RegisterExtractionServer(grpcServer, svc)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(server.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics serve error", "error", err)
		}
	}()

	logger.Info("finextractd listening", "addr", cfg.Server.GRPCAddr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.Timeout)
	defer cancel()
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Warn("queue did not drain", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", "error", err)
	}
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
