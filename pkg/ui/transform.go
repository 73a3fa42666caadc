package ui

import (
	"time"
)

// Transform wraps a child with an animated presentation. Transforms keep
// their animation clock across screen updates by taking state from the
// transform with the same id in the previous generation.
type Transform struct {
	ID    string
	Child Displayable

	// Alpha is the current opacity.
	Alpha float64
	// AnimatesHide is true when the transform has a hide animation, and so
	// survives its screen being hidden.
	AnimatesHide bool
	// HideDuration is how long the hide animation runs.
	HideDuration time.Duration

	// Started is the animation time the transform first rendered at. It is
	// carried across generations so animations do not restart.
	Started time.Duration
	started bool

	// Hiding is set on the copy returned from Hide.
	Hiding bool
	// LastEvent is the most recent transform event received.
	LastEvent string
	// Generation counts how many generations this transform's state has
	// been carried through.
	Generation int
}

// NewTransform wraps child.
func NewTransform(id string, child Displayable) *Transform {
	return &Transform{ID: id, Child: child, Alpha: 1}
}

// TakeState carries the animation clock over from old when it is a Transform.
func (t *Transform) TakeState(old Displayable) {
	prev, ok := old.(*Transform)
	if !ok || prev == t {
		return
	}
	t.Started = prev.Started
	t.started = prev.started
	t.Alpha = prev.Alpha
	t.LastEvent = prev.LastEvent
	t.Generation = prev.Generation + 1
}

func (t *Transform) Render(width, height float64, st, at time.Duration) (*Render, error) {
	if !t.started {
		t.Started = at
		t.started = true
	}
	if t.Hiding && t.HideDuration > 0 {
		elapsed := st
		if elapsed >= t.HideDuration {
			t.Alpha = 0
		} else {
			t.Alpha = 1 - float64(elapsed)/float64(t.HideDuration)
		}
	}
	rv := NewRender(width, height)
	if t.Child != nil {
		cr, err := t.Child.Render(width, height, st, at)
		if err != nil {
			return nil, err
		}
		rv.Blit(cr, 0, 0, !t.Hiding, true)
	}
	return rv, nil
}

func (t *Transform) Event(ev Event, x, y float64, st time.Duration) (any, error) {
	if t.Hiding || t.Child == nil {
		return nil, nil
	}
	return t.Child.Event(ev, x, y, st)
}

// Hide returns a frozen copy that plays the hide animation, or nil if the
// transform has none.
func (t *Transform) Hide(st, at time.Duration, kind string) Displayable {
	if !t.AnimatesHide {
		return nil
	}
	if t.Hiding {
		return t
	}
	clone := *t
	clone.Hiding = true
	clone.LastEvent = kind
	return &clone
}

func (t *Transform) SetTransformEvent(kind string) {
	t.LastEvent = kind
}

func (t *Transform) PerInteract(s Scheduler) error {
	s.Redraw(t, 0)
	return nil
}

func (t *Transform) Visit() []Displayable {
	if t.Child == nil {
		return nil
	}
	return []Displayable{t.Child}
}

// Done reports whether a hiding transform has finished animating at st.
func (t *Transform) Done(st time.Duration) bool {
	return t.Hiding && st >= t.HideDuration
}
