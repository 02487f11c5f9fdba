// Package metrics exposes Prometheus collectors for a sync run.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder owns a private registry so each run reports only its own values.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	favoritesScraped   prometheus.Counter
	blocksAppended     prometheus.Counter
	notionRequests     *prometheus.CounterVec
	notionDuration     *prometheus.HistogramVec
	stepFailures       *prometheus.CounterVec
	runDurationSeconds *prometheus.HistogramVec
}

// New registers the favsync collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		favoritesScraped: factory.NewCounter(prometheus.CounterOpts{
			Name: "favsync_favorites_scraped_total",
			Help: "Total number of favorite items scraped from the page.",
		}),
		blocksAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "favsync_blocks_appended_total",
			Help: "Total number of paragraph blocks appended to the Notion page.",
		}),
		notionRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "favsync_notion_requests_total",
				Help: "Total number of Notion API calls, labeled by operation and status code.",
			},
			[]string{"operation", "code"},
		),
		notionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "favsync_notion_request_duration_seconds",
				Help:    "Histogram of Notion API call latencies including retries.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"operation"},
		),
		stepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "favsync_step_failures_total",
				Help: "Total number of failed pipeline steps, labeled by step and error kind.",
			},
			[]string{"step", "kind"},
		),
		runDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "favsync_run_duration_seconds",
				Help:    "Histogram of whole-run durations, labeled by outcome.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveNotionRequest records one logical API call. code is 0 when no
// response was received.
func (r *Recorder) ObserveNotionRequest(operation string, code int, duration time.Duration) {
	if r == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	r.notionRequests.WithLabelValues(operation, label).Inc()
	r.notionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddScraped increments the scraped favorites counter.
func (r *Recorder) AddScraped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.favoritesScraped.Add(float64(n))
}

// AddAppended increments the appended blocks counter.
func (r *Recorder) AddAppended(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.blocksAppended.Add(float64(n))
}

// ObserveStepFailure counts a failed step.
func (r *Recorder) ObserveStepFailure(step, kind string) {
	if r == nil {
		return
	}
	r.stepFailures.WithLabelValues(step, kind).Inc()
}

// ObserveRun records the total run duration.
func (r *Recorder) ObserveRun(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.runDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Push sends the registry to a Pushgateway, grouped by run ID.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job, runID string) error {
	if r == nil || gatewayURL == "" {
		return nil
	}
	pusher := push.New(gatewayURL, job).Gatherer(r.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
