package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// Latency buckets span sub-second CPU answers up to multi-minute generations.
var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

var (
	ModelLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "case_model_load_seconds",
		Help:    "Time spent loading the model",
		Buckets: latencyBuckets,
	})

	PrimingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "case_priming_seconds",
		Help:    "Duration of the seed prompt generation",
		Buckets: latencyBuckets,
	})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "case_turn_seconds",
		Help:    "Duration of each operator turn generation",
		Buckets: latencyBuckets,
	})

	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "case_turns_total",
		Help: "The total number of completed operator turns",
	})

	GenerationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "case_generation_errors_total",
		Help: "Total number of failed generation calls",
	}, []string{"phase"})
)

// RecordModelLoad records a model load duration.
func RecordModelLoad(d time.Duration) {
	ModelLoadDuration.Observe(d.Seconds())
}

// RecordPriming records the seed prompt latency.
func RecordPriming(d time.Duration) {
	PrimingDuration.Observe(d.Seconds())
}

// RecordTurn records a completed operator turn.
func RecordTurn(d time.Duration) {
	TurnDuration.Observe(d.Seconds())
	TurnsTotal.Inc()
}

// RecordGenerationError counts a failed generation; phase is "priming" or "turn".
func RecordGenerationError(phase string) {
	GenerationErrors.WithLabelValues(phase).Inc()
}

// Server serves /metrics until Shutdown is called.
type Server struct {
	srv    *http.Server
	wg     conc.WaitGroup
	logger zerolog.Logger
}

// Serve starts the metrics endpoint on addr in the background.
func Serve(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger.With().Str("component", "metrics").Logger(),
	}

	s.wg.Go(func() {
		s.logger.Info().Str("addr", addr).Msg("Metrics serving on /metrics")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	})

	return s
}

// Shutdown stops the server and waits for the serving goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.wg.Wait()
	return err
}
