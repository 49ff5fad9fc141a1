// Package metrics holds the prometheus collectors shared by the switch
// transports, sessions, registry and RPC server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "usi"

	labelModel     = "model"
	labelState     = "state"
	labelOperation = "operation"
	labelOutcome   = "outcome"
	labelKind      = "kind"
	labelMethod    = "method"
	labelCode      = "code"
)

var (
	KeepAlives = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "keepalives_total",
		Help:      "Blank lines sent to idle switch sessions",
	}, []string{labelModel})

	PaginationContinuations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "pagination_continuations_total",
		Help:      "Keystrokes sent to resume paginated output",
	}, []string{labelModel})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "state_transitions_total",
		Help:      "Session state machine transitions by entered state",
	}, []string{labelModel, labelState})

	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "command_duration_seconds",
		Help:      "Histogram of switch operation durations",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{labelModel, labelOperation, labelOutcome})

	ParseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "parse_errors_total",
		Help:      "Responses that could not be fully framed or parsed",
	}, []string{labelModel, labelKind})

	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "sessions",
		Help:      "Switch sessions currently held by the registry",
	})

	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "The total number of RPC requests received",
	}, []string{labelMethod, labelCode})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "Histogram of the RPC request duration",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{labelMethod})
)
