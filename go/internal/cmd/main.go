package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mcdev12/tileswap/go/internal/config"
	"github.com/mcdev12/tileswap/go/internal/notice"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/mcdev12/tileswap/go/internal/render"
	"github.com/mcdev12/tileswap/go/internal/services"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("PUZZLE_CONFIG"), "path to YAML config")
	showImages := flag.Bool("images", false, "list tile image URLs under the grid")
	flag.Parse()

	cfg, err := config.Load(*configPath)
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

	in := bufio.NewReader(os.Stdin)
	term := render.NewTerminalRenderer(os.Stdout, *showImages)

	synchronizer := puzzle.NewSynchronizer(puzzleCfg, puzzle.Deps{
		Renderer:  term,
		Notifier:  term,
		Transport: svc.Transport,
		Observer:  svc.Observer,
	})
	if err := synchronizer.Init(); err != nil {
		svc.Close()
		os.Exit(1)
	}

	session := &terminalSession{
		sync:       synchronizer,
		dispatcher: &notice.Dispatcher{
			Modal:   notice.NewModal(),
			Confirm: render.NewPromptConfirmer(in, os.Stdout),
			OnModal: term.ShowModal,
		},
		notices: cfg.Notices,
		metrics: svc.Metrics,
		out:     os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stdout, "type help for commands")
	if err := run(ctx, in, session); err != nil && err != io.EOF {
		log.Error().Err(err).Msg("input failed")
	}
	log.Info().Msg("bye")
}

// run reads commands until quit, EOF, or ctx is cancelled.
func run(ctx context.Context, in *bufio.Reader, session *terminalSession) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(session.out, "> ")
		line, err := in.ReadString('\n')
		if strings.TrimSpace(line) != "" && session.Execute(ctx, line) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
