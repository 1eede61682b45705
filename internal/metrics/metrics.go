package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "metrics")

var (
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxpay_frames_received_total",
			Help: "Number of clearing-node frames received, by kind",
		},
		[]string{"kind"},
	)
	framesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxpay_frames_dropped_total",
			Help: "Number of inbound frames that could not be parsed or had no listener",
		},
	)
	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxpay_frames_sent_total",
			Help: "Number of frames written to the clearing node",
		},
	)
	waitersPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxpay_waiters_pending",
			Help: "Number of one-shot waiters currently registered",
		},
	)
	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxpay_auth_attempts_total",
			Help: "Number of auth handshakes, by result",
		},
		[]string{"result"},
	)
	chainTxs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxpay_chain_transactions_total",
			Help: "Number of on-chain transactions, by operation and result",
		},
		[]string{"op", "result"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. It is safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesReceived)
		prometheus.MustRegister(framesDropped)
		prometheus.MustRegister(framesSent)
		prometheus.MustRegister(waitersPending)
		prometheus.MustRegister(authAttempts)
		prometheus.MustRegister(chainTxs)
	})
}

// Serve registers the collectors and exposes them on addr under /metrics.
// It returns once the listener fails.
func Serve(addr string) error {
	Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.WithField("addr", addr).Info("serving metrics")
	return http.ListenAndServe(addr, mux)
}

func FrameReceived(kind string) {
	framesReceived.With(prometheus.Labels{"kind": kind}).Inc()
}

func FrameDropped() {
	framesDropped.Inc()
}

func FrameSent() {
	framesSent.Inc()
}

func WaiterAdded() {
	waitersPending.Inc()
}

func WaiterRemoved() {
	waitersPending.Dec()
}

func AuthAttempt(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	authAttempts.With(prometheus.Labels{"result": result}).Inc()
}

func ChainTx(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	chainTxs.With(prometheus.Labels{"op": op, "result": result}).Inc()
}
