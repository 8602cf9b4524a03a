// Package main is the Kotae CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/service"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/tokenize"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence so development runs pick up the
// project config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedPath),
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watch := watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, func(path string) {
			if _, _, err := components.Ingestor.IngestFile(context.Background(), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watch.Stop()
	}

	srv := server.NewServer(
		components.Queries,
		components.Ingestor,
		components.Storage,
		components.VectorIndex,
		cfg.Storage.VectorIndexPath,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	target := fs.Arg(0)

	cfg, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	info, err := os.Stat(target)
	if err != nil {
		fmt.Printf("Cannot read %s: %v\n", target, err)
		os.Exit(1)
	}

	ctx := context.Background()
	if info.IsDir() {
		n, err := components.Ingestor.IngestDirectory(ctx, target, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Ingestion failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d documents from %s\n", n, target)
		return
	}

	doc, chunks, err := components.Ingestor.IngestFile(ctx, target)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %s (%d chunks, id %s)\n", doc.Title, chunks, doc.ID)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "number of passages to retrieve (default from config)")
	mode := fs.String("mode", "", "search mode: vector or hybrid (default from config)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae query [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	req := &models.QueryRequest{Query: question, TopK: *topK}
	switch {
	case *mode != "":
		req.Mode = models.SearchMode(*mode)
	case cfg.Retrieval.Mode != "":
		req.Mode = models.SearchMode(cfg.Retrieval.Mode)
	}

	answer, err := components.Queries.Answer(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	printAnswer(answer)
}

// printAnswer renders an answer for the terminal with color-coded confidence.
func printAnswer(answer *models.Answer) {
	confColor := color.New(color.FgRed)
	switch answer.Confidence {
	case models.ConfidenceHigh:
		confColor = color.New(color.FgGreen)
	case models.ConfidenceMedium:
		confColor = color.New(color.FgYellow)
	}

	fmt.Println(answer.Answer)
	fmt.Println()
	confColor.Printf("confidence: %s", answer.Confidence)
	if answer.Degraded {
		color.New(color.FgRed).Printf("  (degraded)")
	}
	fmt.Printf("  [%dms total, %dms llm]\n", answer.LatencyMillis, answer.LLMMillis)

	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		bold := color.New(color.Bold)
		for i, c := range answer.Citations {
			bold.Printf("  [%d] %s", i+1, c.Title)
			fmt.Printf(" (%.3f)\n", c.Score)
			if c.SourceURL != "" {
				fmt.Printf("      %s\n", c.SourceURL)
			}
		}
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	docs, err := components.Storage.CountDocuments(ctx)
	if err != nil {
		fmt.Printf("Status failed: %v\n", err)
		os.Exit(1)
	}
	chunks, err := components.Storage.CountChunks(ctx)
	if err != nil {
		fmt.Printf("Status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("documents: %d\nchunks:    %d\nvectors:   %d\n", docs, chunks, components.VectorIndex.Size())
	if m, err := components.Storage.LatencyMetrics(ctx); err == nil && m.Count > 0 {
		fmt.Printf("queries:   %d (avg %.0fms, p50 %dms, p95 %dms)\n", m.Count, m.AvgMillis, m.P50Millis, m.P95Millis)
	}
}

func mustInitialize(configPath string) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return cfg, logger, components
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.Index
	KeywordIndex *keyword.BleveIndex
	Ingestor     *ingest.Ingestor
	Queries      *service.QueryService
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX embedder unavailable, using mock embedder", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	vectorIndex, err := vector.New(cfg.Retrieval.IndexType, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if err := vectorIndex.Load(cfg.Storage.VectorIndexPath); err != nil {
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}
	logger.Info("vector index initialized",
		zap.String("type", cfg.Retrieval.IndexType),
		zap.Int("vectors", vectorIndex.Size()))

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	ch, err := chunker.New(tokenize.NewSegmentTokenizer(), cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	ingestor := ingest.NewIngestor(ch, embedder, vectorIndex, store, keywordIndex,
		cfg.Storage.VectorIndexPath, cfg.Embedding.BatchSize, logger)

	retriever := retrieval.NewRetriever(embedder, vectorIndex, store, keywordIndex,
		cfg.Retrieval, cfg.Embedding, logger)

	var generator generation.Generator
	apiKey := os.Getenv(cfg.Generation.APIKeyEnv)
	if apiKey != "" {
		generator = generation.NewChatClient(cfg.Generation, apiKey, logger)
	} else {
		logger.Warn("no LLM API key set, responses will be citations only",
			zap.String("env", cfg.Generation.APIKeyEnv))
	}
	queries := service.NewQueryService(retriever, generator, store, logger)

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		KeywordIndex: keywordIndex,
		Ingestor:     ingestor,
		Queries:      queries,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - developer knowledge copilot

Usage:
  kotae server [flags]              Start the HTTP server
  kotae ingest [flags] <path>       Ingest a file or directory
  kotae query [flags] <question>    Ask a question
  kotae status [flags]              Show corpus and index status
  kotae version                     Show version
  kotae help                        Show this help

Flags:
  --config string   Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug           Enable debug logging (server only)
  --top-k int       Number of passages to retrieve (query only)
  --mode string     Search mode: vector or hybrid (query only)`)
}
