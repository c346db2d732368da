// Package commands implements the gitpulse CLI subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitpulse/gitpulse/internal/config"
	"github.com/gitpulse/gitpulse/internal/export"
	"github.com/gitpulse/gitpulse/internal/extract"
	"github.com/gitpulse/gitpulse/internal/gitexec"
	"github.com/gitpulse/gitpulse/internal/identity"
	"github.com/gitpulse/gitpulse/internal/observability"
	"github.com/gitpulse/gitpulse/internal/pipeline"
	"github.com/gitpulse/gitpulse/internal/repocache"
	"github.com/gitpulse/gitpulse/internal/rules"
	"github.com/gitpulse/gitpulse/pkg/persist"
	"github.com/gitpulse/gitpulse/pkg/version"
)

// DefaultConfigPath is the config file used when --config is not given.
const DefaultConfigPath = "config.yaml"

// metricsReadHeaderTimeout bounds header reads on the scrape listener.
const metricsReadHeaderTimeout = 5 * time.Second

// ErrNoRepositories indicates discovery found nothing to analyze.
var ErrNoRepositories = errors.New("no repositories found to analyze")

// AnalyzeCommand holds the configuration for the analyze command.
type AnalyzeCommand struct {
	configPath    string
	outputDir     string
	workers       int
	metricsListen string
	otlpEndpoint  string
	logJSON       bool
}

// NewAnalyzeCommand creates and configures the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	ac := &AnalyzeCommand{}

	cobraCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Extract commit history from configured repositories",
		Long: `Analyze walks every configured repository's commit history, applies the
exclusion rules and identity mapping, and writes an Elasticsearch bulk file
plus an aggregate summary to the output directory.

Repositories whose contents are unchanged since the previous run are served
from the result cache without touching git history.`,
		RunE: ac.run,
	}

	cobraCmd.Flags().StringVarP(&ac.configPath, "config", "c", DefaultConfigPath, "Path to the configuration file")
	cobraCmd.Flags().StringVarP(&ac.outputDir, "output", "o", "", "Override analysis.output_directory")
	cobraCmd.Flags().IntVar(&ac.workers, "workers", 0, "Number of parallel workers (0 = config value or CPU count)")
	cobraCmd.Flags().StringVar(&ac.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	cobraCmd.Flags().StringVar(&ac.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC collector address for traces and metrics")
	cobraCmd.Flags().BoolVar(&ac.logJSON, "log-json", false, "Emit logs as JSON")

	return cobraCmd
}

// run executes the full analysis pipeline.
func (ac *AnalyzeCommand) run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ac.configPath)
	if err != nil {
		return err
	}

	ac.applyOverrides(cfg)

	providers, err := ac.initObservability()
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(observability.DefaultConfig().ShutdownTimeoutSec)*time.Second)
		defer cancel()

		_ = providers.Shutdown(shutdownCtx)
	}()

	logger := providers.Logger

	stopMetrics := ac.maybeServeMetrics(providers)
	defer stopMetrics()

	repoPaths, err := gitexec.DiscoverRepositories(cfg.Repositories.BaseDirectory, cfg.Repositories.ReposToAnalyze)
	if err != nil {
		return err
	}

	if len(repoPaths) == 0 {
		return fmt.Errorf("%w under %s", ErrNoRepositories, cfg.Repositories.BaseDirectory)
	}

	cache, err := repocache.Open(cfg.Analysis.OutputDirectory, cacheCodec(cfg), logger)
	if err != nil {
		return err
	}

	orchestrator := ac.buildOrchestrator(cfg, cache, providers)

	color.New(color.FgCyan).Fprintf(os.Stdout, "Analyzing %d repositories with %d workers\n", len(repoPaths), orchestrator.Workers())

	out := orchestrator.Run(ctx, repoPaths)

	cache.PersistIndex()

	return reportRun(cfg, out)
}

// applyOverrides folds CLI flag overrides into the loaded config.
func (ac *AnalyzeCommand) applyOverrides(cfg *config.Config) {
	if ac.outputDir != "" {
		cfg.Analysis.OutputDirectory = ac.outputDir
	}

	if ac.workers > 0 {
		cfg.Parallelization.MaxWorkers = ac.workers
	}
}

// initObservability initializes providers from defaults plus CLI flags.
func (ac *AnalyzeCommand) initObservability() (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = ac.otlpEndpoint
	obsCfg.EnablePrometheus = ac.metricsListen != ""
	obsCfg.LogJSON = ac.logJSON

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

// maybeServeMetrics starts the Prometheus scrape listener when requested.
// Returns a stop function; a no-op when metrics are disabled.
func (ac *AnalyzeCommand) maybeServeMetrics(providers observability.Providers) func() {
	if ac.metricsListen == "" || providers.MetricsHandler == nil {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", providers.MetricsHandler)

	server := &http.Server{
		Addr:              ac.metricsListen,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		serveErr := server.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			providers.Logger.Error("metrics listener failed", "error", serveErr)
		}
	}()

	return func() { _ = server.Close() }
}

// buildOrchestrator wires the extraction pipeline from config.
func (ac *AnalyzeCommand) buildOrchestrator(
	cfg *config.Config, cache *repocache.Cache, providers observability.Providers,
) *pipeline.Orchestrator {
	logger := providers.Logger
	runner := gitexec.NewRunner()

	extractor := extract.NewExtractor(
		runner,
		rules.NewEngine(cfg, logger),
		identity.NewResolver(cfg.EmailMapping),
		extract.Options{
			Log: gitexec.LogOptions{
				AllBranches:   cfg.Analysis.AllBranches,
				ExcludeMerges: cfg.Analysis.ExcludeMergeCommits,
				Since:         cfg.Analysis.StartDate,
				Until:         cfg.Analysis.EndDate,
			},
			NormalizeMessage: cfg.Metrics.Commits.NormalizeMessage,
		},
		logger,
	)

	metrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		logger.Warn("pipeline metrics disabled", "error", err)
	}

	return pipeline.NewOrchestrator(
		runner, extractor, cache, logger,
		pipeline.WithWorkers(cfg.Parallelization.MaxWorkers),
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(metrics),
		pipeline.WithStatus(printStatus),
	)
}

// printStatus prints one per-repository progress line.
func printStatus(line string) {
	fmt.Fprintln(os.Stdout, line)
}

// cacheCodec selects the per-repository data file codec from config.
func cacheCodec(cfg *config.Config) persist.Codec {
	if cfg.Cache.Compression == config.CompressionLZ4 {
		return persist.NewLZ4Codec()
	}

	return persist.NewCompactJSONCodec()
}

// reportRun writes the export artifacts and prints the run report.
// Diagnostics do not fail the command: the batch from healthy repositories
// is still written.
func reportRun(cfg *config.Config, out pipeline.RunOutput) error {
	bulkPath, err := export.WriteBulkFile(cfg.Analysis.OutputDirectory, out.Records, cfg.Elasticsearch.CommitIndex)
	if err != nil {
		return err
	}

	summary := export.Summarize(out.Records)

	_, err = export.WriteSummaryFile(cfg.Analysis.OutputDirectory, summary)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, summary.Table())
	fmt.Fprintln(os.Stdout)
	color.New(color.FgGreen).Fprintf(os.Stdout, "Bulk export written to %s\n", bulkPath)

	for _, diag := range out.Diagnostics {
		color.New(color.FgYellow).Fprintf(os.Stdout, "warning: %s: %v\n", diag.RepoName, diag.Err)
	}

	if len(out.Diagnostics) > 0 {
		color.New(color.FgYellow).Fprintf(os.Stdout, "%d repositories reported errors\n", len(out.Diagnostics))
	}

	return nil
}
