package notice

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfirmMessage = "Continue?"
	KeyEscape             = "Escape"
)

// ModalState is what a view needs to draw the notice dialog.
type ModalState struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	Content    string `json:"content"`
	Active     bool   `json:"active"`
	AriaHidden bool   `json:"aria_hidden"`
}

// Modal is the shared notice dialog.
type Modal struct {
	mu    sync.Mutex
	state ModalState
}

func NewModal() *Modal {
	return &Modal{state: ModalState{AriaHidden: true}}
}

func (m *Modal) open(title, date, content string) ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = ModalState{Title: title, Date: date, Content: content, Active: true, AriaHidden: false}
	return m.state
}

func (m *Modal) close() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Active = false
	m.state.AriaHidden = true
	return m.state
}

// State returns the current dialog state.
func (m *Modal) State() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Confirmer asks the user a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(msg string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(msg string) bool

func (f ConfirmFunc) Confirm(msg string) bool { return f(msg) }

// ClickResult tells the view what to do with the original click.
type ClickResult struct {
	// Cancelled means prevent the default action and stop propagation.
	Cancelled bool
	// ModalChanged is set when the dialog was shown or hidden.
	ModalChanged bool
}

// Dispatcher applies the confirm/notice rules to click and key events.
// Modal may be nil on views without a notice dialog; Confirm may be nil when the view
// cannot prompt, in which case confirmations pass.
type Dispatcher struct {
	Modal   *Modal
	Confirm Confirmer
	OnModal func(ModalState)
}

// HandleClick processes a click on el. Confirmation wins over notice handling,
// which wins over dismissal.
func (d *Dispatcher) HandleClick(el *Element) ClickResult {
	if btn := el.ClosestAttr(AttrConfirm); btn != nil {
		msg := btn.Attr(AttrConfirm)
		if msg == "" {
			msg = DefaultConfirmMessage
		}
		if d.Confirm != nil && !d.Confirm.Confirm(msg) {
			log.Debug().Str("message", msg).Msg("confirmation declined")
			return ClickResult{Cancelled: true}
		}
		return ClickResult{}
	}

	if link := el.ClosestClass(ClassNoticeLink); link != nil {
		if d.Modal == nil {
			return ClickResult{}
		}
		state := d.Modal.open(link.Attr(AttrTitle), link.Attr(AttrDate), link.Attr(AttrContent))
		d.notify(state)
		return ClickResult{ModalChanged: true}
	}

	if el.HasAttr(AttrCloseModal) || el.HasClass(ClassNoticeModal) {
		return ClickResult{ModalChanged: d.close()}
	}
	return ClickResult{}
}

// HandleKey hides the dialog on Escape. It reports whether the dialog was touched.
func (d *Dispatcher) HandleKey(key string) bool {
	if key != KeyEscape {
		return false
	}
	return d.close()
}

func (d *Dispatcher) close() bool {
	if d.Modal == nil {
		return false
	}
	d.notify(d.Modal.close())
	return true
}

func (d *Dispatcher) notify(state ModalState) {
	if d.OnModal != nil {
		d.OnModal(state)
	}
}
