// Package pipeline runs per-repository analysis tasks across a bounded
// worker pool and collects their results in completion order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/gitpulse/gitpulse/internal/extract"
	"github.com/gitpulse/gitpulse/internal/gitexec"
	"github.com/gitpulse/gitpulse/internal/observability"
	"github.com/gitpulse/gitpulse/internal/repocache"
)

// Outcome classifies how a repository task finished.
type Outcome string

const (
	// OutcomeCached means the result cache was valid and extraction was skipped.
	OutcomeCached Outcome = "cached"
	// OutcomeExtracted means a fresh history walk produced the records.
	OutcomeExtracted Outcome = "extracted"
	// OutcomeFailed means the task produced no records.
	OutcomeFailed Outcome = "failed"
)

// Result is one repository task's outcome.
type Result struct {
	RepoName string
	Outcome  Outcome
	Records  []extract.CommitRecord
	Duration time.Duration
}

// Diagnostic is a per-repository soft failure surfaced at the end of a run.
type Diagnostic struct {
	RepoName string
	Err      error
}

// RunOutput aggregates everything a pipeline run produced. Records holds all
// repositories' records flattened in task completion order; that order is not
// reproducible across runs and nothing downstream may depend on it.
type RunOutput struct {
	Records     []extract.CommitRecord
	Results     []Result
	Diagnostics []Diagnostic
}

// StatusFunc receives one human-readable progress line per repository event.
// Serialized by the orchestrator so interleaved worker output stays
// line-coherent; purely cosmetic.
type StatusFunc func(line string)

// Orchestrator dispatches one analysis task per repository.
// Tasks are independent: no task blocks on another's result, and a failure in
// one never cancels its siblings.
type Orchestrator struct {
	git       gitexec.Git
	extractor *extract.Extractor
	cache     *repocache.Cache
	workers   int
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *observability.PipelineMetrics
	status    StatusFunc

	statusMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the worker pool. Zero or negative means available
// parallelism.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// WithTracer sets the OTel tracer for per-repository spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithMetrics sets the pipeline metric instruments.
func WithMetrics(metrics *observability.PipelineMetrics) Option {
	return func(o *Orchestrator) { o.metrics = metrics }
}

// WithStatus sets the console progress sink.
func WithStatus(status StatusFunc) Option {
	return func(o *Orchestrator) { o.status = status }
}

// NewOrchestrator creates an orchestrator over the given collaborators.
func NewOrchestrator(
	git gitexec.Git,
	extractor *extract.Extractor,
	cache *repocache.Cache,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		git:       git,
		extractor: extractor,
		cache:     cache,
		logger:    logger,
		tracer:    nooptrace.NewTracerProvider().Tracer(""),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.workers <= 0 {
		o.workers = runtime.NumCPU()
	}

	return o
}

// Workers returns the effective worker pool size.
func (o *Orchestrator) Workers() int {
	return o.workers
}

// Run analyzes all repositories and returns the flattened batch.
// A task that fails or panics is logged, reported in Diagnostics, and
// excluded from the batch; the run itself always completes.
func (o *Orchestrator) Run(ctx context.Context, repoPaths []string) RunOutput {
	jobs := make(chan string)
	results := make(chan taskOutcome)

	var wg sync.WaitGroup

	for range o.workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for repoPath := range jobs {
				results <- o.runTask(ctx, repoPath)
			}
		}()
	}

	go func() {
		for _, repoPath := range repoPaths {
			jobs <- repoPath
		}

		close(jobs)
		wg.Wait()
		close(results)
	}()

	var out RunOutput

	for outcome := range results {
		if outcome.diag != nil {
			o.logger.Error("repository analysis failed",
				slog.String("repository", outcome.diag.RepoName),
				slog.String("error", outcome.diag.Err.Error()))

			out.Diagnostics = append(out.Diagnostics, *outcome.diag)
		}

		if outcome.result != nil {
			out.Results = append(out.Results, *outcome.result)
			out.Records = append(out.Records, outcome.result.Records...)
		}
	}

	return out
}

// taskOutcome carries either a result, a diagnostic, or (for a failed task
// that still counts toward Results) both.
type taskOutcome struct {
	result *Result
	diag   *Diagnostic
}

// runTask runs one repository task, converting panics into diagnostics so a
// misbehaving repository cannot take down the pool.
func (o *Orchestrator) runTask(ctx context.Context, repoPath string) (outcome taskOutcome) {
	repoName := filepath.Base(repoPath)

	defer func() {
		if r := recover(); r != nil {
			outcome = taskOutcome{
				result: &Result{RepoName: repoName, Outcome: OutcomeFailed},
				diag:   &Diagnostic{RepoName: repoName, Err: fmt.Errorf("task panic: %v", r)},
			}
		}
	}()

	ctx, span := o.tracer.Start(ctx, "pipeline.repository",
		trace.WithAttributes(attribute.String("repository", repoName)))
	defer span.End()

	start := time.Now()

	result, diag := o.analyzeRepository(ctx, repoPath, repoName)
	result.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("outcome", string(result.Outcome)),
		attribute.Int("commits", len(result.Records)),
	)

	o.metrics.RecordRepository(ctx, string(result.Outcome), len(result.Records), result.Duration)

	return taskOutcome{result: result, diag: diag}
}

// analyzeRepository is the per-repository task body: consult the cache via
// the live fingerprint, short-circuit on a hit, otherwise extract and store.
func (o *Orchestrator) analyzeRepository(ctx context.Context, repoPath, repoName string) (*Result, *Diagnostic) {
	fingerprint := repocache.Fingerprint(ctx, o.git, repoPath)

	if o.cache.IsValid(repoName, fingerprint) {
		if records, ok := o.cache.Load(repoName); ok {
			o.metrics.RecordCacheLookup(ctx, true)
			o.emitStatus(fmt.Sprintf("Repository unchanged (using cache): %s (%d commits)", repoName, len(records)))

			return &Result{RepoName: repoName, Outcome: OutcomeCached, Records: records}, nil
		}
	}

	o.metrics.RecordCacheLookup(ctx, false)
	o.emitStatus("Analyzing repository: " + repoName)

	records, err := o.extractor.Extract(ctx, repoPath, repoName)
	if err != nil {
		return &Result{RepoName: repoName, Outcome: OutcomeFailed},
			&Diagnostic{RepoName: repoName, Err: err}
	}

	// An empty fingerprint means unknown ref state; caching it would make the
	// entry look permanently fresh.
	if fingerprint != "" {
		o.cache.Store(repoName, fingerprint, records)
	}

	o.emitStatus(fmt.Sprintf("  Found %d commits in %s", len(records), repoName))

	return &Result{RepoName: repoName, Outcome: OutcomeExtracted, Records: records}, nil
}

// emitStatus forwards one progress line to the status sink under a lock so
// concurrent workers cannot interleave partial lines.
func (o *Orchestrator) emitStatus(line string) {
	if o.status == nil {
		return
	}

	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	o.status(line)
}
