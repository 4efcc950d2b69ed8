package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultFailureThreshold is how many consecutive transport failures mark the
// authority as unreachable.
const DefaultFailureThreshold = 3

type HealthStatus struct {
	Healthy        bool            `json:"healthy"`
	Moves          MetricsSnapshot `json:"moves"`
	NATSConfigured bool            `json:"nats_configured"`
	NATSConnected  bool            `json:"nats_connected"`
	Errors         []string        `json:"errors"`
}

type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// MoveHealthChecker reports on the authority (through the move failure streak)
// and on the optional NATS connection.
type MoveHealthChecker struct {
	metrics   *MoveMetrics
	nats      *NATSPublisher
	threshold int
}

// NewMoveHealthChecker builds a checker; nats may be nil when publishing is off.
func NewMoveHealthChecker(metrics *MoveMetrics, nats *NATSPublisher, threshold int) *MoveHealthChecker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &MoveHealthChecker{metrics: metrics, nats: nats, threshold: threshold}
}

func (h *MoveHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Moves:   h.metrics.Snapshot(),
		Errors:  []string{},
	}

	if status.Moves.FailureStreak >= h.threshold {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("last %d moves failed to reach the authority", status.Moves.FailureStreak))
	}

	if h.nats != nil {
		status.NATSConfigured = true
		status.NATSConnected = h.nats.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}
	return status
}

func (h *MoveHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health response")
	}
}

// PrometheusExporter renders a health check in the Prometheus text format.
type PrometheusExporter struct {
	checker HealthChecker
}

func NewPrometheusExporter(checker HealthChecker) *PrometheusExporter {
	return &PrometheusExporter{checker: checker}
}

func (e *PrometheusExporter) Export(ctx context.Context) string {
	status := e.checker.Check(ctx)

	return fmt.Sprintf(`# HELP puzzle_healthy Whether the move pipeline is healthy
# TYPE puzzle_healthy gauge
puzzle_healthy %d

# HELP puzzle_moves_total Resolved moves by status
# TYPE puzzle_moves_total counter
puzzle_moves_total{status="applied"} %d
puzzle_moves_total{status="rejected"} %d
puzzle_moves_total{status="failed"} %d

# HELP puzzle_move_duration_mean_seconds Mean round trip to the authority
# TYPE puzzle_move_duration_mean_seconds gauge
puzzle_move_duration_mean_seconds %g

# HELP puzzle_nats_connected Whether NATS is connected
# TYPE puzzle_nats_connected gauge
puzzle_nats_connected %d
`,
		boolGauge(status.Healthy),
		status.Moves.Applied,
		status.Moves.Rejected,
		status.Moves.Failed,
		status.Moves.MeanDuration.Seconds(),
		boolGauge(status.NATSConnected),
	)
}

func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprint(w, e.Export(r.Context()))
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
