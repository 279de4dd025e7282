package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Total number of sync runs by mode and outcome",
	}, []string{"mode", "outcome"})

	PagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_pages_fetched_total",
		Help: "Total number of order pages fetched from the remote API",
	})

	OrdersUpsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_orders_upserted_total",
		Help: "Total number of orders written to the local mirror",
	})

	OrdersSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_orders_skipped_total",
		Help: "Total number of order records skipped during a run",
	}, []string{"reason"})

	PageFetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_page_fetch_latency_seconds",
		Help:    "Latency of remote page fetches, retries included",
		Buckets: prometheus.DefBuckets,
	})

	OrderUpsertLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_order_upsert_latency_seconds",
		Help:    "Latency of per-order upsert transactions",
		Buckets: prometheus.DefBuckets,
	})

	LastWatermarkSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_last_watermark_timestamp_seconds",
		Help: "Unix time of the window end of the last successful sync run",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
