package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricReposTotal         = "gitpulse.pipeline.repositories.total"
	metricCommitsTotal       = "gitpulse.pipeline.commits.total"
	metricExtractionDuration = "gitpulse.pipeline.extraction.duration.seconds"
	metricCacheHitsTotal     = "gitpulse.pipeline.cache.hits.total"
	metricCacheMissesTotal   = "gitpulse.pipeline.cache.misses.total"

	attrOutcome = "outcome"
)

// durationBucketBoundaries covers extraction times from sub-second small
// repos to multi-minute monorepo walks.
var durationBucketBoundaries = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900}

// PipelineMetrics holds OTel instruments for the repository analysis pipeline.
type PipelineMetrics struct {
	reposTotal         metric.Int64Counter
	commitsTotal       metric.Int64Counter
	extractionDuration metric.Float64Histogram
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &PipelineMetrics{
		reposTotal:         b.counter(metricReposTotal, "Repositories processed by outcome", "{repository}"),
		commitsTotal:       b.counter(metricCommitsTotal, "Commit records produced", "{commit}"),
		extractionDuration: b.histogram(metricExtractionDuration, "Per-repository extraction duration in seconds", "s", durationBucketBoundaries...),
		cacheHits:          b.counter(metricCacheHitsTotal, "Result cache hits", "{hit}"),
		cacheMisses:        b.counter(metricCacheMissesTotal, "Result cache misses", "{miss}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// RecordRepository records one finished repository task.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordRepository(ctx context.Context, outcome string, commits int, dur time.Duration) {
	if pm == nil {
		return
	}

	pm.reposTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
	pm.commitsTotal.Add(ctx, int64(commits))
	pm.extractionDuration.Record(ctx, dur.Seconds())
}

// RecordCacheLookup records a result cache hit or miss.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if pm == nil {
		return
	}

	if hit {
		pm.cacheHits.Add(ctx, 1)

		return
	}

	pm.cacheMisses.Add(ctx, 1)
}
