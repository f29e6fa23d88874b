// Package main is the fundermatch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openfunders/fundermatch/internal/cli"
	"github.com/openfunders/fundermatch/internal/config"
	"github.com/openfunders/fundermatch/internal/embedding"
	"github.com/openfunders/fundermatch/internal/engine"
	"github.com/openfunders/fundermatch/internal/funderindex"
	"github.com/openfunders/fundermatch/internal/ingest"
	"github.com/openfunders/fundermatch/internal/loader"
	"github.com/openfunders/fundermatch/internal/matching"
	"github.com/openfunders/fundermatch/internal/models"
	"github.com/openfunders/fundermatch/internal/server"
	"github.com/openfunders/fundermatch/internal/storage"
	"github.com/openfunders/fundermatch/internal/taxonomy"
	"github.com/openfunders/fundermatch/internal/watcher"
	"github.com/openfunders/fundermatch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/fundermatch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path actually loaded.
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "match":
		runMatch()
	case "load":
		runLoad()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("fundermatch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (per-pair scoring, ingestion, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
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
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled && cfg.Watch.Dropbox != "" {
		ing := components.Ingestor
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		w := watcher.NewWatcher(
			cfg.Watch.Dropbox,
			func(path string) {
				if err := ing.IngestDataFile(watchCtx, path); err != nil {
					logger.Warn("data file ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if _, err := ing.IngestFiling(watchCtx, path); err != nil {
					logger.Warn("filing ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(
		components.Engine,
		components.Storage,
		components.Index,
		components.Taxonomy,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
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
	_ = srv.Stop(ctx)
}

func runMatch() {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 0, "number of results (0 = config default)")
	minScore := fs.Float64("min-score", 0, "minimum final score to include")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: fundermatch match [flags] <candidate.json>")
		os.Exit(1)
	}
	candidatePath := fs.Arg(0)

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "compact":
		format = cli.OutputCompact
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text, compact, or json\n", *outputFormat)
		os.Exit(1)
	}

	data, err := os.ReadFile(candidatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read candidate file: %v\n", err)
		os.Exit(1)
	}
	var candidate models.Candidate
	if err := json.Unmarshal(data, &candidate); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse candidate file: %v\n", err)
		os.Exit(1)
	}
	if candidate.Name == "" {
		fmt.Fprintln(os.Stderr, "Candidate file must set \"name\"")
		os.Exit(1)
	}

	request := &engine.MatchRequest{
		Candidate: candidate,
		Limit:     *limit,
		MinScore:  *minScore,
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids a SQLite
		// lock conflict with the server process).
		response, err := matchViaHTTP(*serverURL, request)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteMatchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Engine.Match(context.Background(), request)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteMatchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func matchViaHTTP(serverURL string, request *engine.MatchRequest) (*engine.MatchResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/match", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response engine.MatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runLoad() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	filing := fs.Bool("filing", false, "treat the files as account filings (file name = recipient id)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: fundermatch load [flags] <file>...")
		fmt.Println("  Data files are routed by name: funders .json, grants*.csv,")
		fmt.Println("  areas*.csv, hierarchy*.csv, causes*.csv, beneficiaries*.csv,")
		fmt.Println("  UKCAT tag workbooks .xlsx.")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	for _, path := range fs.Args() {
		if *filing {
			n, err := components.Ingestor.IngestFiling(ctx, path)
			if err != nil {
				fmt.Printf("Filing %s failed: %v\n", path, err)
				os.Exit(1)
			}
			fmt.Printf("Filing %s: %d grant(s) updated\n", path, n)
			continue
		}
		if err := components.Ingestor.IngestDataFile(ctx, path); err != nil {
			fmt.Printf("Load %s failed: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %s\n", path)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	n, err := components.Ingestor.RebuildIndex(context.Background())
	if err != nil {
		fmt.Printf("Index rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d funder(s)\n", n)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Funders        int64 `json:"funders"`
	Grants         int64 `json:"grants"`
	IndexedFunders int64 `json:"indexed_funders"`
	Areas          int   `json:"areas"`
	Tags           int   `json:"tags"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		funderCount, err := components.Storage.CountFunders(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count funders failed: %v\n", err)
			os.Exit(1)
		}
		grantCount, err := components.Storage.CountGrants(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count grants failed: %v\n", err)
			os.Exit(1)
		}
		indexed, err := components.Index.Count()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Index count failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Funders:        funderCount,
			Grants:         grantCount,
			IndexedFunders: int64(indexed),
			Areas:          len(components.Taxonomy.Areas()),
			Tags:           len(components.Taxonomy.Tags()),
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("funders:          %d   # registered funders in storage\n", status.Funders)
		fmt.Printf("grants:           %d   # grant history rows\n", status.Grants)
		fmt.Printf("indexed_funders:  %d   # funders in the text index\n", status.IndexedFunders)
		fmt.Printf("areas:            %d   # geographic areas loaded\n", status.Areas)
		fmt.Printf("tags:             %d   # classification tags loaded\n", status.Tags)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Index    *funderindex.Index
	Taxonomy *taxonomy.Store
	Engine   *engine.Engine
	Ingestor *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
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
		logger.Warn("ONNX embedder unavailable, using mock", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	index, err := funderindex.NewIndex(cfg.Storage.FunderIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize funder index: %w", err)
	}

	data, err := store.LoadTaxonomy(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	tax := taxonomy.NewStore(data.Areas, data.Edges, data.Tags)
	logger.Info("taxonomy loaded",
		zap.Int("areas", len(data.Areas)),
		zap.Int("edges", len(data.Edges)),
		zap.Int("tags", len(data.Tags)))

	matcher := matching.NewMatcher(&cfg.Matching, tax, embedder)
	eng := engine.NewEngine(store, embedder, matcher,
		engine.WithWorkers(cfg.Engine.Workers),
		engine.WithLogger(logger))

	ingestOpts := []ingest.Option{ingest.WithLogger(logger)}
	areaNames := make([]string, 0, len(data.Areas))
	for _, area := range data.Areas {
		areaNames = append(areaNames, area.Name)
	}
	classifier, err := loader.NewClassifier(data.Tags, areaNames)
	if err != nil {
		logger.Warn("classifier unavailable, filings ingest without classes", zap.Error(err))
	} else {
		ingestOpts = append(ingestOpts, ingest.WithClassifier(classifier))
	}
	ing := ingest.NewIngestor(store, embedder, index, ingestOpts...)

	return &Components{
		Storage:  store,
		Embedder: embedder,
		Index:    index,
		Taxonomy: tax,
		Engine:   eng,
		Ingestor: ing,
	}, nil
}

func printUsage() {
	fmt.Println(`fundermatch - funder-recipient compatibility scoring

Usage:
  fundermatch server [flags]             Start the HTTP server
  fundermatch match [flags] <file>       Score a candidate JSON file against all funders
  fundermatch load [flags] <file>...     Import reference data, grants or filings
  fundermatch index [flags]              Rebuild the funder text index
  fundermatch status [flags]             Show storage/index status
  fundermatch version                    Show version
  fundermatch help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/fundermatch/config.yaml)
  --debug            Enable debug logging (per-pair scoring, ingestion, etc.)

Match Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --limit int        Number of results (default: config default_limit)
  --min-score float  Minimum final score to include
  --output string    Output format: text, compact, or json (default: text)

Load Flags:
  --config string    Config file path
  --filing           Treat the files as account filings (file name = recipient id)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  fundermatch server
  fundermatch load areas.csv hierarchy.csv causes.csv beneficiaries.csv
  fundermatch load ukcat.xlsx funders.json grants_2023.csv
  fundermatch load --filing 1122334.pdf
  fundermatch index
  fundermatch match candidate.json
  fundermatch match --output json --limit 50 candidate.json
  fundermatch status`)
}
