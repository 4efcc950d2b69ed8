package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/tileswap/go/internal/config"
	"github.com/mcdev12/tileswap/go/internal/puzzle/gateway"
	"github.com/mcdev12/tileswap/go/internal/puzzle/publisher"
	"github.com/mcdev12/tileswap/go/internal/services"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(os.Getenv("PUZZLE_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg.LogLevel)

	puzzleCfg, err := cfg.PuzzleConfig()
	if err != nil {
		log.Warn().Err(err).Msg("initial board unusable")
	}

	svc := services.Setup(cfg)
	defer svc.Close()

	connCfg := gateway.DefaultConnectionConfig()
	connCfg.CheckOrigin = originChecker(cfg.Gateway.AllowedOrigins)

	gatewayService, err := gateway.NewService(gateway.Config{
		ConnectionConfig: connCfg,
		Puzzle:           puzzleCfg,
	}, svc.Transport, svc.Observer, nil)
	if err != nil {
		// Views still connect and receive the alert; there is just no board.
		log.Error().Err(err).Msg("puzzle board not initialized")
	}

	log.Info().
		Str("authority_url", cfg.AuthorityURL).
		Str("port", cfg.Gateway.Port).
		Bool("locked", puzzleCfg.Locked).
		Msg("starting puzzle gateway")

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	mux.Handle("/health", svc.Health)
	mux.Handle("/metrics", publisher.NewPrometheusExporter(svc.Health))

	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := gatewayService.GetStats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"puzzle-gateway","version":"1.0.0","connections":%d,"state":%q}`,
			stats["total_connections"], stats["state"])
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: cfg.Gateway.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Gateway.Port),
		Handler:     h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	if !waitForService(shutdownCtx, serviceDone) {
		log.Warn().Msg("timed out waiting for in-flight moves")
	}

	log.Info().Msg("puzzle gateway shutdown complete")
}

// waitForService blocks until done closes or ctx expires, reporting whether done won.
// The gateway service closes done only after its in-flight moves resolve.
func waitForService(ctx context.Context, done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// originChecker accepts websocket upgrades from the configured origins; "*" allows any.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
