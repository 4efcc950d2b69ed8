package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mcdev12/tileswap/go/internal/models"
	"github.com/mcdev12/tileswap/go/internal/notice"
	"github.com/mcdev12/tileswap/go/internal/puzzle"
)

// TerminalRenderer draws the puzzle as text. Each cell shows its tile id; the grid
// carries row and column position labels so moves can be typed as positions.
type TerminalRenderer struct {
	mu         sync.Mutex
	out        io.Writer
	showImages bool
}

func NewTerminalRenderer(out io.Writer, showImages bool) *TerminalRenderer {
	return &TerminalRenderer{out: out, showImages: showImages}
}

// FormatGrid renders cells as a GridWidth-wide table. Positions are printed
// alongside ids so a player can address cells directly.
func FormatGrid(cells []puzzle.Cell, showImages bool) string {
	var sb strings.Builder

	sb.WriteString("      ")
	for c := 0; c < models.GridWidth; c++ {
		fmt.Fprintf(&sb, " col%-2d", c)
	}
	sb.WriteString("\n")

	for i, cell := range cells {
		if i%models.GridWidth == 0 {
			fmt.Fprintf(&sb, "%3d | ", i)
		}
		marker := " "
		if !cell.Draggable {
			marker = "#"
		}
		fmt.Fprintf(&sb, "%s%3d  ", marker, cell.TileID)
		if i%models.GridWidth == models.GridWidth-1 {
			sb.WriteString("\n")
		}
	}

	if showImages {
		for _, cell := range cells {
			fmt.Fprintf(&sb, "  [%2d] %s\n", cell.Position, cell.ImageURL)
		}
	}
	return sb.String()
}

func (r *TerminalRenderer) RenderGrid(cells []puzzle.Cell) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, "\n"+FormatGrid(cells, r.showImages))
}

func (r *TerminalRenderer) SetTurns(turns, limit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > 0 {
		fmt.Fprintf(r.out, "turns: %d/%d\n", turns, limit)
		return
	}
	fmt.Fprintf(r.out, "turns: %d\n", turns)
}

func (r *TerminalRenderer) ShowResult(next string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "*** puzzle solved ***")
	if next != "" {
		fmt.Fprintf(r.out, "next: %s\n", next)
	}
}

func (r *TerminalRenderer) Alert(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "! %s\n", msg)
}

// ShowModal prints the notice dialog when it is open.
func (r *TerminalRenderer) ShowModal(state notice.ModalState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !state.Active {
		fmt.Fprintln(r.out, "(notice closed)")
		return
	}
	fmt.Fprintf(r.out, "+-- %s (%s)\n| %s\n+--\n", state.Title, state.Date, state.Content)
}

// PromptConfirmer asks yes/no questions on a line-oriented terminal.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPromptConfirmer(in *bufio.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: in, out: out}
}

// Confirm treats anything other than y/yes as a refusal, including EOF.
func (c *PromptConfirmer) Confirm(msg string) bool {
	fmt.Fprintf(c.out, "%s [y/N] ", msg)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
