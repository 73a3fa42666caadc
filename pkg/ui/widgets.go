package ui

import (
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Null renders nothing and never consumes events.
type Null struct{}

// NewNull returns an empty placeholder.
func NewNull() *Null { return &Null{} }

func (n *Null) Render(width, height float64, st, at time.Duration) (*Render, error) {
	return NewRender(0, 0), nil
}

func (n *Null) Event(ev Event, x, y float64, st time.Duration) (any, error) { return nil, nil }
func (n *Null) Hide(st, at time.Duration, kind string) Displayable { return nil }
func (n *Null) SetTransformEvent(kind string) {}
func (n *Null) PerInteract(s Scheduler) error { return nil }
func (n *Null) Visit() []Displayable { return nil }

// Fixed is a multi-child container that lays every child out over the full
// area. It is the root container of every screen.
type Fixed struct {
	// Focus names the focus group the container belongs to.
	Focus    string
	children []Displayable
}

// NewFixed creates an empty Fixed in the given focus group.
func NewFixed(focus string) *Fixed {
	return &Fixed{Focus: focus}
}

// Add appends d.
func (f *Fixed) Add(d Displayable) {
	if d != nil {
		f.children = append(f.children, d)
	}
}

// Children returns the children in insertion order.
func (f *Fixed) Children() []Displayable { return f.children }

func (f *Fixed) Visit() []Displayable { return f.children }

func (f *Fixed) Render(width, height float64, st, at time.Duration) (*Render, error) {
	rv := NewRender(width, height)
	for _, c := range f.children {
		cr, err := c.Render(width, height, st, at)
		if err != nil {
			return nil, err
		}
		rv.Blit(cr, 0, 0, true, true)
	}
	return rv, nil
}

// Event offers ev to children from the topmost down.
func (f *Fixed) Event(ev Event, x, y float64, st time.Duration) (any, error) {
	for i := len(f.children) - 1; i >= 0; i-- {
		rv, err := f.children[i].Event(ev, x, y, st)
		if err != nil || rv != nil {
			return rv, err
		}
	}
	return nil, nil
}

// Hide collects the hide results of the children. It returns nil when no
// child animates its hide.
func (f *Fixed) Hide(st, at time.Duration, kind string) Displayable {
	var out *Fixed
	for _, c := range f.children {
		if h := c.Hide(st, at, kind); h != nil {
			if out == nil {
				out = NewFixed(f.Focus)
			}
			out.Add(h)
		}
	}
	if out == nil {
		return nil
	}
	return out
}

func (f *Fixed) SetTransformEvent(kind string) {
	for _, c := range f.children {
		c.SetTransformEvent(kind)
	}
}

func (f *Fixed) PerInteract(s Scheduler) error {
	s.Redraw(f, 0)
	return nil
}

// textFace measures Text content.
var textFace font.Face = basicfont.Face7x13

// Text is a leaf widget displaying a string.
type Text struct {
	ID      string
	Content string
	Style   string
}

// Render measures the content in the fixed 7x13 face, clamped to width.
func (t *Text) Render(width, height float64, st, at time.Duration) (*Render, error) {
	w := float64(font.MeasureString(textFace, t.Content).Ceil())
	if w > width {
		w = width
	}
	return NewRender(w, float64(textFace.Metrics().Height.Ceil())), nil
}

func (t *Text) Event(ev Event, x, y float64, st time.Duration) (any, error) { return nil, nil }
func (t *Text) Hide(st, at time.Duration, kind string) Displayable { return nil }
func (t *Text) SetTransformEvent(kind string) {}
func (t *Text) Visit() []Displayable { return nil }

func (t *Text) PerInteract(s Scheduler) error {
	s.Redraw(t, 0)
	return nil
}

// SetProperties accepts "content" and "style".
func (t *Text) SetProperties(props map[string]any) {
	if v, ok := props["content"].(string); ok {
		t.Content = v
	}
	if v, ok := props["style"].(string); ok {
		t.Style = v
	}
}

// Button consumes events of kind "click" by running Action.
type Button struct {
	ID     string
	Label  string
	Action func() any
	// Sensitive disables the button when false. Set by properties.
	Insensitive bool
}

func (b *Button) Render(width, height float64, st, at time.Duration) (*Render, error) {
	return NewRender(width, 32), nil
}

func (b *Button) Event(ev Event, x, y float64, st time.Duration) (any, error) {
	if ev.Kind != "click" || b.Action == nil || b.Insensitive {
		return nil, nil
	}
	return b.Action(), nil
}

func (b *Button) Hide(st, at time.Duration, kind string) Displayable { return nil }
func (b *Button) SetTransformEvent(kind string) {}
func (b *Button) Visit() []Displayable { return nil }

func (b *Button) PerInteract(s Scheduler) error {
	s.Redraw(b, 0)
	return nil
}

// SetProperties accepts "label" and "insensitive".
func (b *Button) SetProperties(props map[string]any) {
	if v, ok := props["label"].(string); ok {
		b.Label = v
	}
	if v, ok := props["insensitive"].(bool); ok {
		b.Insensitive = v
	}
}
