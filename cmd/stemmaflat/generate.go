package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/hyperjump/stemmaflat/internal/cli"
	"github.com/hyperjump/stemmaflat/internal/config"
	"github.com/hyperjump/stemmaflat/internal/gazetteer"
	"github.com/hyperjump/stemmaflat/internal/graphs"
	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/pipeline"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
	"github.com/hyperjump/stemmaflat/internal/storage"
	"github.com/hyperjump/stemmaflat/internal/store"
	"github.com/hyperjump/stemmaflat/pkg/utils"
)

// Exit codes of the generator commands.
const (
	exitOK       = 0
	exitFailure  = 1
	exitWarnings = 2
)

// generator is one output-producing step.
type generator struct {
	name        string
	timestamped bool
	run         func(ctx context.Context, env *generateEnv, timestamp string) (*models.Report, error)
}

type generateEnv struct {
	cfg    *config.Config
	client *stemmarest.Client
	logger *zap.Logger
}

var (
	teiGenerator = generator{name: "tei", timestamped: true, run: func(ctx context.Context, env *generateEnv, ts string) (*models.Report, error) {
		runner := pipeline.NewRunner(env.client,
			pipeline.WithLogger(env.logger),
			pipeline.WithConcurrency(env.cfg.Fetch.Concurrency),
			pipeline.WithTitle(env.cfg.Edition.Title),
			pipeline.WithWorkbook(true))
		return runner.GenerateTEI(ctx, pipeline.TEIDir(env.cfg.Output.Root, ts))
	}}
	storeGenerator = generator{name: "store", run: func(ctx context.Context, env *generateEnv, _ string) (*models.Report, error) {
		gen := store.NewGenerator(env.client,
			store.WithLogger(env.logger),
			store.WithConcurrency(env.cfg.Fetch.Concurrency))
		return gen.Generate(ctx, env.cfg.Output.Root)
	}}
	locationsGenerator = generator{name: "locations", timestamped: true, run: func(ctx context.Context, env *generateEnv, ts string) (*models.Report, error) {
		resolver := gazetteer.NewResolver(env.client,
			gazetteer.WithGeonames(env.cfg.Gazetteer.GeonamesURL, env.cfg.Gazetteer.GeonamesUsername),
			gazetteer.WithConcurrency(env.cfg.Fetch.Concurrency),
			gazetteer.WithLogger(env.logger))
		return resolver.Generate(ctx, pipeline.DataDir(env.cfg.Output.Root, ts))
	}}
	graphsGenerator = generator{name: "graphs", timestamped: true, run: func(ctx context.Context, env *generateEnv, ts string) (*models.Report, error) {
		renderer := graphs.NewRenderer(env.client,
			graphs.WithDotBinary(env.cfg.Graphs.DotBinary),
			graphs.WithConcurrency(env.cfg.Fetch.Concurrency),
			graphs.WithLogger(env.logger))
		return renderer.Generate(ctx, pipeline.DataDir(env.cfg.Output.Root, ts))
	}}
)

// generatorsFor returns the steps a generator command runs, in order.
// Graphs come last so a missing Graphviz install still leaves everything else.
func generatorsFor(command string) []generator {
	switch command {
	case "tei":
		return []generator{teiGenerator}
	case "store":
		return []generator{storeGenerator}
	case "locations":
		return []generator{locationsGenerator}
	case "graphs":
		return []generator{graphsGenerator}
	case "all":
		return []generator{teiGenerator, storeGenerator, locationsGenerator, graphsGenerator}
	}
	return nil
}

func needsTimestamp(steps []generator) bool {
	for _, s := range steps {
		if s.timestamped {
			return true
		}
	}
	return false
}

// validateTimestamp rejects values that would escape the output root when
// used in a directory name.
func validateTimestamp(ts string) error {
	if strings.TrimSpace(ts) == "" {
		return errors.New("timestamp is required")
	}
	if strings.ContainsAny(ts, `/\`) || ts == "." || ts == ".." {
		return fmt.Errorf("invalid timestamp %q", ts)
	}
	return nil
}

// exitCode maps a finished run to the process status: warnings only fail the
// run in strict mode.
func exitCode(reports []*models.Report, failed, strict bool) int {
	if failed {
		return exitFailure
	}
	if strict {
		for _, r := range reports {
			if r != nil && len(r.Warnings) > 0 {
				return exitWarnings
			}
		}
	}
	return exitOK
}

// newClient builds the collation service client from the fetch and
// repository settings.
func newClient(cfg *config.Config, logger *zap.Logger) *stemmarest.Client {
	opts := []stemmarest.ClientOption{
		stemmarest.WithTimeout(cfg.Fetch.Timeout),
		stemmarest.WithRateLimit(cfg.Fetch.RateLimit, cfg.Fetch.Burst),
		stemmarest.WithRetries(cfg.Fetch.Retries),
		stemmarest.WithCache(cfg.Fetch.CacheTTL),
		stemmarest.WithLogger(logger),
	}
	if cfg.Repository.HasAuth() {
		opts = append(opts, stemmarest.WithBasicAuth(cfg.Repository.Username, cfg.Repository.Password))
	}
	return stemmarest.NewClient(cfg.Repository.BaseURL(), opts...)
}

func runGenerate(command string, args []string) int {
	steps := generatorsFor(command)
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	strict := fs.Bool("strict", false, "exit with status 2 when the run recorded warnings")
	outputFormat := fs.String("output", "text", "report format: text or json")
	_ = fs.Parse(searchArgsReorder(args))

	var timestamp string
	if needsTimestamp(steps) {
		if fs.NArg() < 1 {
			fmt.Printf("Usage: stemmaflat %s [flags] <timestamp>\n", command)
			return exitFailure
		}
		timestamp = fs.Arg(0)
		if err := validateTimestamp(timestamp); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFailure
		}
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config %s: %v\n", resolvedConfigPath, err)
		return exitFailure
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		return exitFailure
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runs storage.Storage
	if s, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath); err != nil {
		logger.Warn("run history unavailable", zap.String("path", cfg.Storage.DatabasePath), zap.Error(err))
	} else {
		runs = s
		defer runs.Close()
	}

	env := &generateEnv{cfg: cfg, client: newClient(cfg, logger), logger: logger}
	logger.Debug("generating",
		zap.String("command", command),
		zap.String("repository", cfg.Repository.BaseURL()),
		zap.String("timestamp", timestamp))

	reports := make([]*models.Report, 0, len(steps))
	failed := false
	for _, step := range steps {
		report, err := step.run(ctx, env, timestamp)
		if report != nil {
			report.Timestamp = timestamp
			reports = append(reports, report)
			if runs != nil {
				if saveErr := runs.SaveReport(context.Background(), report); saveErr != nil {
					logger.Warn("failed to record run", zap.String("run_id", report.RunID), zap.Error(saveErr))
				}
			}
			if writeErr := cli.WriteReport(os.Stdout, report, format); writeErr != nil {
				fmt.Fprintf(os.Stderr, "Output failed: %v\n", writeErr)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", step.name, err)
			failed = true
			break
		}
	}
	return exitCode(reports, failed, *strict)
}
