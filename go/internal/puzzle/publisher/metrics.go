package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/tileswap/go/internal/puzzle"
)

// MoveMetrics keeps in-process counters for resolved moves.
type MoveMetrics struct {
	mu            sync.Mutex
	counts        map[puzzle.DropStatus]uint64
	totalDuration time.Duration
	lastMove      time.Time
	failureStreak int
}

func NewMoveMetrics() *MoveMetrics {
	return &MoveMetrics{counts: make(map[puzzle.DropStatus]uint64)}
}

// MoveResolved counts one outcome; MoveMetrics sits in a FanOut.
func (m *MoveMetrics) MoveResolved(ctx context.Context, outcome puzzle.MoveOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[outcome.Status]++
	m.totalDuration += outcome.Duration
	m.lastMove = outcome.Intent.RequestedAt.Add(outcome.Duration)
	if outcome.Status == puzzle.DropFailed {
		m.failureStreak++
	} else {
		m.failureStreak = 0
	}
}

// MetricsSnapshot is a point-in-time copy of MoveMetrics.
type MetricsSnapshot struct {
	Applied       uint64        `json:"applied"`
	Rejected      uint64        `json:"rejected"`
	Failed        uint64        `json:"failed"`
	MeanDuration  time.Duration `json:"mean_duration_ns"`
	LastMoveTime  time.Time     `json:"last_move_time"`
	FailureStreak int           `json:"failure_streak"`
}

func (s MetricsSnapshot) Total() uint64 {
	return s.Applied + s.Rejected + s.Failed
}

func (m *MoveMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Applied:       m.counts[puzzle.DropApplied],
		Rejected:      m.counts[puzzle.DropRejected],
		Failed:        m.counts[puzzle.DropFailed],
		LastMoveTime:  m.lastMove,
		FailureStreak: m.failureStreak,
	}
	if total := snap.Total(); total > 0 {
		snap.MeanDuration = m.totalDuration / time.Duration(total)
	}
	return snap
}
