package services

import (
	"github.com/mcdev12/tileswap/go/clients/puzzle_client"
	"github.com/mcdev12/tileswap/go/internal/config"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/mcdev12/tileswap/go/internal/puzzle/publisher"
	"github.com/rs/zerolog/log"
)

// Services are the collaborators every front end hands to its synchronizer.
type Services struct {
	Transport puzzle.Transport
	Observer  puzzle.MoveObserver
	Metrics   *publisher.MoveMetrics
	Health    *publisher.MoveHealthChecker

	closers []func() error
}

// Setup wires the authority client and transport, plus move publishers and metrics.
// NATS is optional; an unreachable server is logged and skipped.
func Setup(cfg *config.Config) *Services {
	client := puzzle_client.NewPuzzleClient(cfg.AuthorityURL, cfg.SessionCookie)
	if cfg.RequestTimeout > 0 {
		client.SetTimeout(cfg.RequestTimeout)
	}

	s := &Services{
		Transport: puzzle.NewHTTPTransport(client),
		Metrics:   publisher.NewMoveMetrics(),
	}

	var natsPub *publisher.NATSPublisher
	observers := publisher.FanOut{publisher.NewLogPublisher(log.Logger), s.Metrics}
	if cfg.NATS.URL != "" {
		natsCfg := publisher.DefaultNATSConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		pub, err := publisher.NewNATSPublisher(natsCfg)
		if err != nil {
			log.Warn().Err(err).Str("nats_url", cfg.NATS.URL).Msg("move events will not be published to NATS")
		} else {
			natsPub = pub
			observers = append(observers, pub)
			s.closers = append(s.closers, pub.Close)
		}
	}
	s.Observer = observers
	s.Health = publisher.NewMoveHealthChecker(s.Metrics, natsPub, publisher.DefaultFailureThreshold)

	log.Info().
		Str("authority_url", cfg.AuthorityURL).
		Dur("request_timeout", cfg.RequestTimeout).
		Int("observers", len(observers)).
		Msg("services ready")
	return s
}

// Close releases publisher connections.
func (s *Services) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("failed to close service")
		}
	}
}
