package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trxps_gateway_requests_total",
			Help: "Calls to the Trxps API by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trxps_gateway_request_duration_seconds",
			Help:    "Latency of calls to the Trxps API",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)
)

const (
	outcomeOK        = "ok"
	outcomeConfig    = "configuration_error"
	outcomeTransport = "transport_error"
	outcomeProtocol  = "protocol_error"
)
