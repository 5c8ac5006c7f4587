package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/blocktune/blocktune/pkg/logutil"
)

// Classification outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomeTimeout        = "timeout"
	OutcomeProtocolError  = "protocol_error"
)

type Collector struct {
	EventsAccepted  prometheus.Counter
	EventsDiscarded prometheus.Counter
	Windows         prometheus.Counter
	Classifications *prometheus.CounterVec
	PolicyWrites    *prometheus.CounterVec
	LastClass       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		EventsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "blocktune_events_accepted_total",
			Help: "Block I/O events accepted into a window.",
		}),
		EventsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "blocktune_events_discarded_total",
			Help: "Zero-byte events discarded by the aggregator.",
		}),
		Windows: factory.NewCounter(prometheus.CounterOpts{
			Name: "blocktune_windows_total",
			Help: "Aggregation windows closed.",
		}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blocktune_classifications_total",
			Help: "Classification exchanges by outcome.",
		}, []string{"outcome"}),
		PolicyWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blocktune_policy_writes_total",
			Help: "Readahead policy writes by result.",
		}, []string{"result"}),
		LastClass: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blocktune_last_class",
			Help: "Most recently applied class index.",
		}),
	}
}

// Serve exposes reg on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) {
	logger := logutil.GetLogger()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics listener failed", zap.Error(err))
	}
}
