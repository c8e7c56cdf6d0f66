package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/STRATINT/followbot/internal/discovery"
	"github.com/STRATINT/followbot/internal/models"
	"github.com/STRATINT/followbot/internal/social"
)

const namespace = "followbot"

// RunCollector records Prometheus metrics for one process run: outbound
// platform requests, discovery results and follow outcomes. There is no
// long-lived server, so the registry is exported with WriteTextfile.
type RunCollector struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	candidates      prometheus.Gauge
	rejections      *prometheus.CounterVec
	discoveryErrors *prometheus.CounterVec

	outcomes   *prometheus.CounterVec
	quotaUsed  prometheus.Gauge
	quotaLimit prometheus.Gauge
}

// NewRunCollector constructs a collector on a private registry.
func NewRunCollector() (*RunCollector, error) {
	c := &RunCollector{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for outbound platform requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "requests_total",
			Help:      "Total number of outbound platform requests.",
		}, []string{"method", "code"}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates",
			Help:      "Size of the candidate set written by the last discovery.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "rejections_total",
			Help:      "Accounts rejected by the engagement filters.",
		}, []string{"reason"}),
		discoveryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "errors_total",
			Help:      "Discovery failures, by scope (source or item).",
		}, []string{"scope"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "follow",
			Name:      "outcomes_total",
			Help:      "Candidates processed by the follow executor, by outcome and failure kind.",
		}, []string{"outcome", "kind"}),
		quotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "follow",
			Name:      "quota_used",
			Help:      "Follows counted against today's quota.",
		}),
		quotaLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "follow",
			Name:      "quota_limit",
			Help:      "Configured daily follow limit.",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.requestDuration, c.requestTotal,
		c.candidates, c.rejections, c.discoveryErrors,
		c.outcomes, c.quotaUsed, c.quotaLimit,
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// InstrumentRoundTripper wraps next to record outbound request metrics.
func (c *RunCollector) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(c.requestTotal,
		promhttp.InstrumentRoundTripperDuration(c.requestDuration, next))
}

// ObserveDiscovery records the result of a refresh.
func (c *RunCollector) ObserveDiscovery(res *discovery.Result) {
	c.candidates.Set(float64(len(res.Candidates)))
	for reason, n := range res.Stats.Rejected {
		c.rejections.WithLabelValues(reason).Add(float64(n))
	}
	c.discoveryErrors.WithLabelValues("source").Add(float64(res.Stats.SourceErrors))
	c.discoveryErrors.WithLabelValues("item").Add(float64(res.Stats.ItemErrors))
}

// ObserveOutcome records one executor outcome.
func (c *RunCollector) ObserveOutcome(outcome models.Outcome, err error) {
	kind := "none"
	if err != nil {
		kind = social.KindOf(err).String()
	}
	c.outcomes.WithLabelValues(string(outcome), kind).Inc()
}

// ObserveQuota records the quota at the end of a run.
func (c *RunCollector) ObserveQuota(q models.DailyQuota, limit int) {
	c.quotaUsed.Set(float64(q.Count))
	c.quotaLimit.Set(float64(limit))
}

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (c *RunCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
