// Package metrics provides Prometheus metrics for the Ember matchmaking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ember"

var registry = prometheus.NewRegistry()

var (
	// Matching queue.
	queueWaiting = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "queue",
		Name: "waiting", Help: "Number of users currently waiting in the matching queue.",
	})
	queueEnqueues = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "queue",
		Name: "enqueues_total", Help: "Total accepted queue submissions.",
	})
	queueRejections = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "queue",
		Name: "rejections_total", Help: "Rejected queue submissions by reason code.",
	}, []string{"reason"})
	pairings = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "pairing",
		Name: "commits_total", Help: "Total committed pairings.",
	})
	pairingScanLatency = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "pairing",
		Name: "scan_latency_ms", Help: "Latency of pool scans in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100},
	})

	// Match sessions.
	sessionsActive = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "session",
		Name: "active", Help: "Number of live match sessions.",
	})
	sessionUnlocks = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "session",
		Name: "unlocks_total", Help: "Sessions that reached CHAT_UNLOCKED.",
	})
	sessionEnds = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "session",
		Name: "ends_total", Help: "Terminated sessions by end reason.",
	}, []string{"reason"})
	cardDeliveries = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cards",
		Name: "deliveries_total", Help: "Card sequence deliveries (first delivery per user).",
	})
	cardAnswers = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cards",
		Name: "answers_total", Help: "Recorded card answers, including overwrites.",
	})

	// Boost lifecycle.
	boostActivations = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "boost",
		Name: "activations_total", Help: "Boost activations, including stacking extensions.",
	})
	boostActive = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "boost",
		Name: "active", Help: "Users with a currently active boost.",
	})
	boostExpiries = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "boost",
		Name: "expiries_total", Help: "Boost flags cleared by the expiry sweep.",
	})

	// Settlement.
	settlementRuns = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "settlement",
		Name: "runs_total", Help: "Completed settlement runs.",
	})
	settlementDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "settlement",
		Name: "duration_ms", Help: "Settlement run duration in milliseconds.",
		Buckets: []float64{1, 10, 100, 1000, 10000},
	})
	settlementLastUnix = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "settlement",
		Name: "last_run_unix", Help: "Unix timestamp of the last completed settlement run.",
	})
	rewardClaims = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "settlement",
		Name: "reward_claims_total", Help: "Newly created reward claims.",
	})

	// Notice queue and delivery workers.
	noticeQueueSize = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "notices",
		Name: "queue_size", Help: "Outbound notices waiting for delivery.",
	})
	noticeQueueCapacity = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "notices",
		Name: "queue_capacity", Help: "Configured capacity of the notice queue.",
	})
	noticesDropped = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "notices",
		Name: "dropped_total", Help: "Notices rejected due to backpressure or closed queue.",
	})
	noticesDelivered = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "notices",
		Name: "delivered_total", Help: "Notices handed to a connection or the notifier.",
	})
	deliveryLatency = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "notices",
		Name: "delivery_latency_ms", Help: "Time from dequeue to delivery in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
	})

	// Gateway.
	gatewayConnections = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "gateway",
		Name: "connections", Help: "Open websocket connections.",
	})
	gatewayMessagesIn = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "gateway",
		Name: "messages_in_total", Help: "Inbound gateway messages.",
	})
	gatewayMessagesOut = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "gateway",
		Name: "messages_out_total", Help: "Outbound gateway messages.",
	})

	// HTTP.
	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http",
		Name: "requests_total", Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	httpRequestDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http",
		Name: "request_duration_ms", Help: "HTTP request duration in milliseconds.",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
	}, []string{"endpoint", "method", "status"})

	// Errors.
	errorsByComponent = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "errors",
		Name: "by_component_total", Help: "Errors by component and type.",
	}, []string{"component", "type"})

	// Process.
	systemMemoryBytes = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "system",
		Name: "memory_bytes", Help: "Allocated heap bytes.",
	})
	systemGoroutines = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "system",
		Name: "goroutines", Help: "Number of live goroutines.",
	})
)

// Queue helpers.

func UpdateQueueWaiting(n int)          { queueWaiting.Set(float64(n)) }
func RecordQueueEnqueue()               { queueEnqueues.Inc() }
func RecordQueueRejection(reason string) { queueRejections.WithLabelValues(reason).Inc() }
func RecordPairing()                    { pairings.Inc() }
func RecordPairingScanLatency(ms float64) { pairingScanLatency.Observe(ms) }

// Session helpers.

func UpdateActiveSessions(n int)      { sessionsActive.Set(float64(n)) }
func RecordUnlock()                   { sessionUnlocks.Inc() }
func RecordSessionEnd(reason string)  { sessionEnds.WithLabelValues(reason).Inc() }
func RecordCardDelivery()             { cardDeliveries.Inc() }
func RecordCardAnswer()               { cardAnswers.Inc() }

// Boost helpers.

func RecordBoostActivation() { boostActivations.Inc() }
func UpdateActiveBoosts(n int) { boostActive.Set(float64(n)) }
func RecordBoostExpiry()     { boostExpiries.Inc() }

// Settlement helpers.

func RecordSettlementRun(durationMs float64, completedUnix int64) {
	settlementRuns.Inc()
	settlementDuration.Observe(durationMs)
	settlementLastUnix.Set(float64(completedUnix))
}

func RecordRewardClaim() { rewardClaims.Inc() }

// Notice queue helpers.

func UpdateNoticeQueueSize(n int)        { noticeQueueSize.Set(float64(n)) }
func UpdateNoticeQueueCapacity(n int)    { noticeQueueCapacity.Set(float64(n)) }
func RecordNoticeDropped()               { noticesDropped.Inc() }
func RecordNoticeDelivered()             { noticesDelivered.Inc() }
func RecordDeliveryLatency(ms float64)   { deliveryLatency.Observe(ms) }

// Gateway helpers.

func GatewayConnectionOpened() { gatewayConnections.Inc() }
func GatewayConnectionClosed() { gatewayConnections.Dec() }
func RecordGatewayMessageIn()  { gatewayMessagesIn.Inc() }
func RecordGatewayMessageOut() { gatewayMessagesOut.Inc() }

// HTTP helpers.

func RecordHTTPRequest(endpoint, method, status string) {
	httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// Error helpers.

func RecordErrorByComponent(component, errorType string) {
	errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Process helpers.

func UpdateSystemMemoryUsage(bytes uint64) { systemMemoryBytes.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int) { systemGoroutines.Set(float64(count)) }

// GetRegistry exposes the registry for the /healthz handler.
func GetRegistry() *prometheus.Registry {
	return registry
}
