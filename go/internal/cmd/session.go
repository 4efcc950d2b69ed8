package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mcdev12/tileswap/go/internal/config"
	"github.com/mcdev12/tileswap/go/internal/notice"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
	"github.com/mcdev12/tileswap/go/internal/puzzle/publisher"
	"github.com/mcdev12/tileswap/go/internal/render"
	"github.com/rs/zerolog/log"
)

const quitConfirmMessage = "Leave the puzzle?"

const helpText = `commands:
  drag <pos>         pick up the tile at <pos>
  drop <pos>         drop the picked tile onto <pos>
  move <from> <to>   drag and drop in one step
  show               print the current board
  stats              move counts for this session
  notices            list notices
  notice <n>         open notice <n>
  close | esc        close the open notice
  quit               leave
`

// terminalSession maps typed commands onto the gestures a page would produce.
type terminalSession struct {
	sync       *puzzle.Synchronizer
	dispatcher *notice.Dispatcher
	notices    []config.NoticeConfig
	metrics    *publisher.MoveMetrics
	out        io.Writer
}

// Execute runs one command line and reports whether the session should end.
func (s *terminalSession) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "drag":
		if p, ok := s.position(fields, 1); ok {
			s.sync.DragStart(p)
		}

	case "drop":
		if p, ok := s.position(fields, 1); ok {
			s.drop(ctx, p)
		}

	case "move", "swap":
		from, ok := s.position(fields, 1)
		if !ok {
			return false
		}
		to, ok := s.position(fields, 2)
		if !ok {
			return false
		}
		s.sync.DragStart(from)
		s.drop(ctx, to)

	case "show":
		snap := s.sync.Snapshot()
		if snap.Cells == nil {
			fmt.Fprintln(s.out, "no board")
			return false
		}
		fmt.Fprint(s.out, render.FormatGrid(snap.Cells, false))
		fmt.Fprintf(s.out, "turns: %d\n", snap.Turns)

	case "stats":
		if s.metrics == nil {
			fmt.Fprintln(s.out, "no stats")
			return false
		}
		m := s.metrics.Snapshot()
		fmt.Fprintf(s.out, "applied: %d  rejected: %d  failed: %d  mean: %s\n",
			m.Applied, m.Rejected, m.Failed, m.MeanDuration)

	case "notices":
		if len(s.notices) == 0 {
			fmt.Fprintln(s.out, "no notices")
		}
		for i, n := range s.notices {
			fmt.Fprintf(s.out, "%d. %s  %s\n", i, n.Title, n.Date)
		}

	case "notice":
		i, err := argInt(fields, 1)
		if err != nil || i < 0 || i >= len(s.notices) {
			fmt.Fprintln(s.out, "unknown notice")
			return false
		}
		n := s.notices[i]
		s.dispatcher.HandleClick(&notice.Element{
			Classes: []string{notice.ClassNoticeLink},
			Attrs: map[string]string{
				notice.AttrTitle:   n.Title,
				notice.AttrDate:    n.Date,
				notice.AttrContent: n.Content,
			},
		})

	case "close":
		s.dispatcher.HandleClick(&notice.Element{Attrs: map[string]string{notice.AttrCloseModal: ""}})

	case "esc":
		s.dispatcher.HandleKey(notice.KeyEscape)

	case "quit", "exit":
		res := s.dispatcher.HandleClick(&notice.Element{Attrs: map[string]string{notice.AttrConfirm: quitConfirmMessage}})
		return !res.Cancelled

	case "help", "?":
		fmt.Fprint(s.out, helpText)

	default:
		fmt.Fprintf(s.out, "unknown command %q, try help\n", fields[0])
	}
	return false
}

// drop lands the pending tile only when the board accepts drops, as a page would.
func (s *terminalSession) drop(ctx context.Context, target int) {
	if !s.sync.DragOver(target) {
		return
	}
	status, err := s.sync.Drop(ctx, target)
	if err != nil {
		log.Debug().Err(err).Int("target", target).Str("status", status.String()).Msg("move did not apply")
	}
}

func (s *terminalSession) position(fields []string, idx int) (int, bool) {
	p, err := argInt(fields, idx)
	if err != nil {
		fmt.Fprintf(s.out, "%s: expected a position\n", fields[0])
		return 0, false
	}
	return p, true
}

func argInt(fields []string, idx int) (int, error) {
	if idx >= len(fields) {
		return 0, fmt.Errorf("missing argument %d", idx)
	}
	return strconv.Atoi(fields[idx])
}
