package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var msBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 4000}

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postcode_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postcode_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"route"})
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postcode_upstream_requests_total",
		Help: "Total postal lookup requests sent upstream",
	}, []string{"country"})
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postcode_upstream_duration_ms",
		Help:    "Upstream postal lookup duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"country"})
	LookupOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postcode_lookup_outcomes_total",
		Help: "Per-country lookup outcomes during panel aggregation",
	}, []string{"country", "outcome"})
	CandidatesPerQuery = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "postcode_candidates_per_query",
		Help:    "Number of countries contributing to a candidate list",
		Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12},
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postcode_empty_results_total",
		Help: "Total number of aggregations where the whole panel returned nothing",
	})
	SupersededTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postcode_superseded_total",
		Help: "Total number of aggregation results discarded because a newer generation exists",
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postcode_cache_hits_total",
		Help: "Lookup cache hits by tier",
	}, []string{"tier"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postcode_cache_misses_total",
		Help: "Lookup cache misses across all tiers",
	})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "postcode_autocomplete_sessions",
		Help: "Live websocket autocomplete sessions",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postcode_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamDurationMs)
	prometheus.MustRegister(LookupOutcomesTotal)
	prometheus.MustRegister(CandidatesPerQuery)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(SupersededTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标，供 Prometheus 抓取；在主入口挂载到 {API_BASE}/metrics。
func Handler() http.Handler { return promhttp.Handler() }
