package notice

// Attribute and class names the dispatcher reacts to.
const (
	AttrConfirm    = "data-confirm"
	AttrCloseModal = "data-close-modal"
	AttrTitle      = "data-title"
	AttrDate       = "data-date"
	AttrContent    = "data-content"

	ClassNoticeLink  = "notice-link"
	ClassNoticeModal = "notice-modal"
)

// Element is the part of a clicked element the dispatcher needs: its attributes,
// classes, and parent chain.
type Element struct {
	Attrs   map[string]string `json:"attrs,omitempty"`
	Classes []string          `json:"classes,omitempty"`
	Parent  *Element          `json:"parent,omitempty"`
}

func (e *Element) HasAttr(name string) bool {
	if e == nil {
		return false
	}
	_, ok := e.Attrs[name]
	return ok
}

func (e *Element) Attr(name string) string {
	if e == nil {
		return ""
	}
	return e.Attrs[name]
}

func (e *Element) HasClass(class string) bool {
	if e == nil {
		return false
	}
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// ClosestAttr walks from e up through its parents and returns the first element carrying name.
func (e *Element) ClosestAttr(name string) *Element {
	for el := e; el != nil; el = el.Parent {
		if el.HasAttr(name) {
			return el
		}
	}
	return nil
}

// ClosestClass walks from e up through its parents and returns the first element with class.
func (e *Element) ClosestClass(class string) *Element {
	for el := e; el != nil; el = el.Parent {
		if el.HasClass(class) {
			return el
		}
	}
	return nil
}
