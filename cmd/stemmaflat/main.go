// Package main is the stemmaflat CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/stemmaflat/internal/cli"
	"github.com/hyperjump/stemmaflat/internal/config"
	"github.com/hyperjump/stemmaflat/internal/indexer"
	"github.com/hyperjump/stemmaflat/internal/keyword"
	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/ranking"
	"github.com/hyperjump/stemmaflat/internal/search"
	"github.com/hyperjump/stemmaflat/internal/server"
	"github.com/hyperjump/stemmaflat/internal/storage"
	"github.com/hyperjump/stemmaflat/internal/watcher"
	"github.com/hyperjump/stemmaflat/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/stemmaflat/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence if it exists, so running from a
// project checkout picks up the project's settings.
// Returns the config and the path that was actually loaded.
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
	case "tei", "store", "locations", "graphs", "all":
		os.Exit(runGenerate(command, os.Args[2:]))
	case "serve":
		runServe()
	case "search":
		runSearch()
	case "runs":
		runRuns()
	case "version", "--version", "-v":
		fmt.Printf("stemmaflat version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file changes, section indexing, etc.)")
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
		zap.String("output_root", cfg.Output.Root),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx := components.Indexer
	if n, err := idx.IndexAll(ctx); err != nil {
		logger.Warn("initial index skipped (run `stemmaflat store` first)", zap.Error(err))
	} else {
		logger.Info("sections indexed", zap.Int("sections", n))
	}

	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Output.Root,
		func(path string) {
			if err := idx.IndexFile(context.Background(), path); err != nil {
				logger.Warn("watch index file failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := idx.RemoveFile(context.Background(), path); err != nil {
				logger.Warn("watch remove file failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()

	srv := server.NewServer(
		components.Engine,
		components.Storage,
		cfg.Output.Root,
		&cfg.Server,
		logger,
		server.WithIndex(components.KeywordIndex),
		server.WithStatePaths(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: stemmaflat search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Searches the lemma text and titles of the generated sections.
  • A query with no exact hits is retried with typo tolerance automatically.
  • Use --fuzzy to always match spelling variants.
  • Use --server "" to read the index directly when no server is running.

Examples:
  stemmaflat search Եդեսիա
  stemmaflat search --fuzzy Եդեսեա
  stemmaflat search --output json --limit 20 Ուռհայ
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// positional arguments to the front of the slice so that flag.Parse() sees
// them. Go's flag package stops at the first non-flag argument, so
// "stemmaflat search query --fuzzy" would otherwise leave --fuzzy unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct index mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the index directly when the server is not running)")
	limit := fs.Int("limit", 10, "number of results")
	fuzzyEnabled := fs.Bool("fuzzy", false, "enable fuzzy matching for spelling variants")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:        queryStr,
		Limit:        *limit,
		FuzzyEnabled: *fuzzyEnabled,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// The server holds the Bleve lock; go through its API.
		response, err = searchViaHTTP(*serverURL, searchQuery)
	} else {
		response, err = searchDirect(*configPath, searchQuery)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchDirect(configPath string, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	index, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	defer index.Close()
	return newEngine(cfg, index, keyword.NewSuggester(index), logger).Search(context.Background(), query)
}

func newEngine(cfg *config.Config, index keyword.Index, suggester *keyword.Suggester, logger *zap.Logger) *search.Engine {
	return search.NewEngine(index,
		search.WithSuggester(suggester),
		search.WithRanker(ranking.NewRanker(&cfg.Search.Ranking)),
		search.WithTitleBoost(cfg.Search.TitleBoost),
		search.WithSnippetLength(cfg.Search.SnippetLength),
		search.WithLogger(logger))
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runRuns() {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 20, "number of runs to list")
	offset := fs.Int("offset", 0, "number of runs to skip")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	runs, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open run history: %v\n", err)
		os.Exit(1)
	}
	defer runs.Close()

	ctx := context.Background()
	if fs.NArg() > 0 {
		report, err := runs.GetReport(ctx, fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteReport(os.Stdout, report, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	list, err := runs.ListReports(ctx, max(*offset, 0), max(*limit, 1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "List runs failed: %v\n", err)
		os.Exit(1)
	}
	total, err := runs.CountReports(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count runs failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRuns(os.Stdout, list, total, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds the services behind `serve`.
type Components struct {
	Storage      storage.Storage
	KeywordIndex *keyword.BleveIndex
	Suggester    *keyword.Suggester
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	runs, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize run history: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = runs.Close()
		return nil, fmt.Errorf("failed to initialize search index: %w", err)
	}

	suggester := keyword.NewSuggester(keywordIndex)
	engine := newEngine(cfg, keywordIndex, suggester, logger)
	idx := indexer.NewIndexer(keywordIndex, cfg.Output.Root,
		indexer.WithLogger(logger),
		indexer.WithAfterChange(suggester.Invalidate))

	return &Components{
		Storage:      runs,
		KeywordIndex: keywordIndex,
		Suggester:    suggester,
		Engine:       engine,
		Indexer:      idx,
	}, nil
}

func printUsage() {
	fmt.Println(`stemmaflat - Stemmarest to TEI edition generator

Usage:
  stemmaflat tei [flags] <timestamp>        Write dts-xml_<timestamp>/lemma.tei.xml
  stemmaflat store [flags]                  Write the per-section HTML store and sections.json
  stemmaflat locations [flags] <timestamp>  Write data_<timestamp>/locations.json
  stemmaflat graphs [flags] <timestamp>     Write data_<timestamp>/<section>/graph.svg
  stemmaflat all [flags] <timestamp>        Run tei, store, locations and graphs
  stemmaflat serve [flags]                  Serve the output and the section search API
  stemmaflat search [flags] <query>         Search the generated sections
  stemmaflat runs [flags] [run-id]          List recorded runs or show one
  stemmaflat version                        Show version
  stemmaflat help                           Show this help

Generator Flags:
  --config string    Config file path (default: /usr/local/etc/stemmaflat/config.yaml)
  --output string    Report format: text or json (default: text)
  --strict           Exit with status 2 when the run recorded warnings
  --debug            Enable debug logging

Serve Flags:
  --config string    Config file path
  --debug            Enable debug logging (file changes, section indexing, etc.)

Search Flags:
  --config string    Config file path (for direct index mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read the index directly.
  --limit int        Number of results (default: 10)
  --fuzzy            Enable fuzzy matching for spelling variants (default: false)
  --output string    Output format: text or json (default: text)

Runs Flags:
  --config string    Config file path
  --limit int        Number of runs to list (default: 20)
  --offset int       Number of runs to skip
  --output string    Output format: text or json (default: text)

Environment:
  STEMMAREST_REPOSITORY, STEMMAREST_TRADITION, STEMMAREST_USERNAME and
  STEMMAREST_PASSWORD override the repository settings; a .env file next to
  the config file is loaded first.

Examples:
  stemmaflat all 20240115
  stemmaflat tei --strict 20240115
  stemmaflat serve
  stemmaflat search Եդեսիա
  stemmaflat runs --output json`)
}
