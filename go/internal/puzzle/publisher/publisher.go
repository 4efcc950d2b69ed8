package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MoveEnvelope is the wire form of a resolved move.
type MoveEnvelope struct {
	MoveID      string    `json:"move_id"`
	Status      string    `json:"status"`
	Source      int       `json:"source"`
	Target      int       `json:"target"`
	RequestedAt time.Time `json:"requested_at"`
	DurationMs  int64     `json:"duration_ms"`
	Turns       *int      `json:"turns,omitempty"`
	Passed      bool      `json:"passed,omitempty"`
	Locked      bool      `json:"locked,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewEnvelope flattens an outcome for publishing.
func NewEnvelope(outcome puzzle.MoveOutcome) MoveEnvelope {
	env := MoveEnvelope{
		MoveID:      outcome.Intent.ID.String(),
		Status:      outcome.Status.String(),
		Source:      outcome.Intent.Source,
		Target:      outcome.Intent.Target,
		RequestedAt: outcome.Intent.RequestedAt,
		DurationMs:  outcome.Duration.Milliseconds(),
	}
	if outcome.Result != nil && outcome.Status == puzzle.DropApplied {
		turns := outcome.Result.Turns
		env.Turns = &turns
		env.Passed = outcome.Result.Passed
		env.Locked = outcome.Result.Locked
	}
	if outcome.Err != nil {
		env.Error = outcome.Err.Error()
	}
	return env
}

// Subject returns the subject a move with the given status is published on.
func Subject(prefix string, status puzzle.DropStatus) string {
	return fmt.Sprintf("%s.move.%s", prefix, status)
}

// LogPublisher writes resolved moves to a zerolog logger.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) MoveResolved(ctx context.Context, outcome puzzle.MoveOutcome) {
	env := NewEnvelope(outcome)
	p.logger.Info().
		Str("move_id", env.MoveID).
		Str("status", env.Status).
		Int("source", env.Source).
		Int("target", env.Target).
		Int64("duration_ms", env.DurationMs).
		Msg("move published")
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "puzzle.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes resolved moves to NATS. Publishing is fire-and-forget;
// a failed publish is logged and never reaches the player.
type NATSPublisher struct {
	nc     *nats.Conn
	config NATSConfig
}

func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("tileswap"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, config: cfg}, nil
}

func (p *NATSPublisher) MoveResolved(ctx context.Context, outcome puzzle.MoveOutcome) {
	subject := Subject(p.config.SubjectPrefix, outcome.Status)

	data, err := json.Marshal(NewEnvelope(outcome))
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal move envelope")
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().
			Err(err).
			Str("subject", subject).
			Str("move_id", outcome.Intent.ID.String()).
			Msg("failed to publish move")
		return
	}

	log.Debug().
		Str("subject", subject).
		Int("size", len(data)).
		Msg("move published to NATS")
}

// Connected reports whether the NATS connection is currently up.
func (p *NATSPublisher) Connected() bool {
	return p.nc.IsConnected()
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Flush(); err != nil {
		p.nc.Close()
		return fmt.Errorf("flush NATS: %w", err)
	}
	p.nc.Close()
	return nil
}

// FanOut forwards each outcome to every observer in order.
type FanOut []puzzle.MoveObserver

func (f FanOut) MoveResolved(ctx context.Context, outcome puzzle.MoveOutcome) {
	for _, o := range f {
		o.MoveResolved(ctx, outcome)
	}
}
