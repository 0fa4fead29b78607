package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/pathfollow/pkg/filehistory"
)

const (
	metricRequestsTotal    = "pathfollow.requests.total"
	metricRequestDuration  = "pathfollow.request.duration.seconds"
	metricErrorsTotal      = "pathfollow.errors.total"
	metricInflightRequests = "pathfollow.inflight.requests"

	metricBuildsTotal      = "pathfollow.builds.total"
	metricCommitsResolved  = "pathfollow.commits.resolved"
	metricCommitsExcluded  = "pathfollow.commits.excluded"
	metricMergesCollapsed  = "pathfollow.merges.collapsed"
	metricRenamesDetected  = "pathfollow.renames.detected"
	metricAmbiguousParents = "pathfollow.parents.ambiguous"
	metricBuildDuration    = "pathfollow.build.duration.seconds"

	attrOp     = "op"
	attrStatus = "status"

	// StatusOK marks a successful request.
	StatusOK = "ok"
	// StatusError marks a failed request.
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 300s: small repositories answer
// instantly, full histories of large ones take minutes.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &REDMetrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		errorsTotal:      errTotal,
		inflightRequests: inflight,
	}, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// FollowMetrics records history build statistics. It implements
// [filehistory.StatsRecorder].
type FollowMetrics struct {
	builds    metric.Int64Counter
	resolved  metric.Int64Counter
	excluded  metric.Int64Counter
	collapsed metric.Int64Counter
	renames   metric.Int64Counter
	ambiguous metric.Int64Counter
	duration  metric.Float64Histogram
}

var _ filehistory.StatsRecorder = (*FollowMetrics)(nil)

// NewFollowMetrics creates the build instruments from the given meter.
func NewFollowMetrics(mt metric.Meter) (*FollowMetrics, error) {
	fm := &FollowMetrics{}

	counters := []struct {
		name, desc, unit string
		dst              *metric.Int64Counter
	}{
		{metricBuildsTotal, "Completed history builds", "{build}", &fm.builds},
		{metricCommitsResolved, "Commits kept in built histories", "{commit}", &fm.resolved},
		{metricCommitsExcluded, "Commits excluded for not affecting the file", "{commit}", &fm.excluded},
		{metricMergesCollapsed, "Trivial merges collapsed", "{commit}", &fm.collapsed},
		{metricRenamesDetected, "Renames recorded in file identity indexes", "{rename}", &fm.renames},
		{metricAmbiguousParents, "Identity disagreements resolved structurally", "{commit}", &fm.ambiguous},
	}

	for _, c := range counters {
		counter, err := mt.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}

		*c.dst = counter
	}

	duration, err := mt.Float64Histogram(metricBuildDuration,
		metric.WithDescription("History build duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBuildDuration, err)
	}

	fm.duration = duration

	return fm, nil
}

// RecordBuild implements [filehistory.StatsRecorder].
func (fm *FollowMetrics) RecordBuild(ctx context.Context, stats filehistory.Stats) {
	fm.builds.Add(ctx, 1)
	fm.resolved.Add(ctx, int64(stats.Commits))
	fm.excluded.Add(ctx, int64(stats.Excluded))
	fm.collapsed.Add(ctx, int64(stats.Collapsed))
	fm.renames.Add(ctx, int64(stats.Renames))
	fm.ambiguous.Add(ctx, int64(stats.Ambiguous))
	fm.duration.Record(ctx, stats.Duration.Seconds())
}
