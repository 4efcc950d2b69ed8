package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/tileswap/go/internal/config"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/mcdev12/tileswap/go/internal/puzzle/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTransportReachesAuthority(t *testing.T) {
	var cookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
		board := make([]int, 25)
		_ = json.NewEncoder(w).Encode(map[string]any{"board": board, "turns": 9})
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.AuthorityURL = srv.URL
	cfg.SessionCookie = "session=xyz"

	s := Setup(cfg)
	defer s.Close()

	res, err := s.Transport.SubmitMove(context.Background(), puzzle.MoveIntent{Source: 1, Target: 2})
	require.NoError(t, err)
	assert.Equal(t, 9, res.Turns)
	assert.Equal(t, "session=xyz", cookie)

	fan, ok := s.Observer.(publisher.FanOut)
	require.True(t, ok)
	assert.Len(t, fan, 2)

	fan.MoveResolved(context.Background(), puzzle.MoveOutcome{Status: puzzle.DropApplied})
	assert.Equal(t, uint64(1), s.Metrics.Snapshot().Applied)
	assert.True(t, s.Health.Check(context.Background()).Healthy)
}

func TestSetupSkipsUnreachableNATS(t *testing.T) {
	cfg := config.Default()
	cfg.NATS.URL = "nats://127.0.0.1:1"

	s := Setup(cfg)
	defer s.Close()

	fan, ok := s.Observer.(publisher.FanOut)
	require.True(t, ok)
	assert.Len(t, fan, 2)
	assert.False(t, s.Health.Check(context.Background()).NATSConfigured)
}
