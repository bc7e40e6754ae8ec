// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GenerationDuration tracks generation endpoint latency.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusbot_generation_duration_seconds",
			Help:    "Generation request duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// GenerationTokensTotal tracks tokens reported by the provider.
	GenerationTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_generation_tokens_total",
			Help: "Total generation tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// MessagesTotal tracks messages appended to sessions.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_messages_total",
			Help: "Total messages appended to chat sessions",
		},
		[]string{"role"},
	)

	// SessionsTotal tracks session lifecycle operations.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_sessions_total",
			Help: "Chat session lifecycle operations",
		},
		[]string{"op"},
	)

	// PersistErrorsTotal tracks failed session writes.
	PersistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campusbot_persist_errors_total",
			Help: "Failed writes of the session collection",
		},
	)

	// RecognitionErrorsTotal tracks speech recognition errors by kind.
	RecognitionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_recognition_errors_total",
			Help: "Speech recognition errors",
		},
		[]string{"kind"},
	)

	// RecognitionRetriesTotal tracks automatic recognition restarts.
	RecognitionRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campusbot_recognition_retries_total",
			Help: "Automatic speech recognition retries",
		},
	)

	// UtterancesTotal tracks speech synthesis requests.
	UtterancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_utterances_total",
			Help: "Speech synthesis requests",
		},
		[]string{"status"},
	)

	// GatewayConnectionsActive tracks connected browser pages.
	GatewayConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusbot_gateway_connections_active",
			Help: "Number of active gateway WebSocket connections",
		},
	)

	// GatewayRequestsTotal tracks gateway RPC calls.
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_gateway_requests_total",
			Help: "Gateway RPC requests",
		},
		[]string{"method", "status"},
	)

	// GatewayAuthTotal tracks page handshakes by outcome.
	GatewayAuthTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_gateway_auth_total",
			Help: "Gateway handshakes by outcome",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal tracks gateway HTTP requests by mux pattern.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_http_requests_total",
			Help: "Gateway HTTP requests",
		},
		[]string{"route", "code"},
	)
)

// RecordGeneration records the outcome of one generation request.
func RecordGeneration(provider, status string, seconds float64, tokensIn, tokensOut int) {
	GenerationDuration.WithLabelValues(provider, status).Observe(seconds)
	GenerationTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	GenerationTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// RecordMessage counts an appended message.
func RecordMessage(role string) {
	MessagesTotal.WithLabelValues(role).Inc()
}

// RecordSession counts a session operation ("created", "selected", "deleted").
func RecordSession(op string) {
	SessionsTotal.WithLabelValues(op).Inc()
}

// RecordRecognitionError counts a recognition error of the given kind.
func RecordRecognitionError(kind string) {
	RecognitionErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordGatewayRequest counts one RPC call.
func RecordGatewayRequest(method string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	GatewayRequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordGatewayAuth counts one handshake.
func RecordGatewayAuth(ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	GatewayAuthTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(route string, code int) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
