// Package ui defines the displayable contract shared by screens, widgets
// and the layer compositor, plus the small set of widgets screens are built
// from.
//
// # Core Types
//
// Displayable is anything that can be rendered, receive events and take
// part in hide transitions. Screens, containers and leaf widgets all
// implement it.
//
// Container is a Displayable that holds an ordered list of children. The
// screen builder opens containers and adds widgets to whichever is
// innermost.
//
// Render is the frame-local result of rendering a Displayable. Blits record
// how child renders are composited and whether they contribute focus.
package ui

import (
	"errors"
	"time"
)

// ErrIgnoreLayers is returned from Event by a modal displayable that did not
// consume the event. The compositor stops delivering the event to lower layers.
var ErrIgnoreLayers = errors.New("ui: ignore lower layers")

// Displayable is a node of the retained widget tree.
type Displayable interface {
	// Render produces the render object for the given size and times.
	Render(width, height float64, st, at time.Duration) (*Render, error)
	// Event delivers ev. A non-nil result means the event was consumed.
	Event(ev Event, x, y float64, st time.Duration) (any, error)
	// Hide returns a displayable that animates the hide transition, or nil
	// if this displayable disappears immediately.
	Hide(st, at time.Duration, kind string) Displayable
	// SetTransformEvent tells the displayable which transform event
	// ("show", "hide", "replace", ...) it is being shown with.
	SetTransformEvent(kind string)
	// PerInteract runs once per interaction before the first render.
	PerInteract(s Scheduler) error
	// Visit returns the direct children.
	Visit() []Displayable
}

// Container is a Displayable with an ordered, growable list of children.
type Container interface {
	Displayable
	Add(d Displayable)
	Children() []Displayable
}

// StateTaker is implemented by widgets that carry state over from the
// widget with the same id in the previous generation.
type StateTaker interface {
	TakeState(old Displayable)
}

// PropertySetter is implemented by widgets that accept per-id properties
// supplied when a screen is shown.
type PropertySetter interface {
	SetProperties(props map[string]any)
}

// Placer is implemented by displayables with a placement.
type Placer interface {
	Placement() Placement
}

// Event is an input event delivered through the tree.
type Event struct {
	Kind string
	Data any
}

// Placement positions a displayable inside its parent.
type Placement struct {
	XPos, YPos       float64
	XAnchor, YAnchor float64
}

// Render is the result of rendering a Displayable.
type Render struct {
	Width, Height float64
	// Modal marks a render that blocks input to layers beneath it.
	Modal bool
	Blits []Blit
}

// Blit records one child render composited into its parent.
type Blit struct {
	Child *Render
	X, Y  float64
	// Focus is true when the child contributes focusable widgets.
	Focus bool
	// Main is true when the child contributes to the main compositing pass.
	Main bool
}

// NewRender creates an empty render of the given size.
func NewRender(width, height float64) *Render {
	return &Render{Width: width, Height: height}
}

// Blit composites child at (x, y).
func (r *Render) Blit(child *Render, x, y float64, focus, main bool) {
	if child == nil {
		return
	}
	r.Blits = append(r.Blits, Blit{Child: child, X: x, Y: y, Focus: focus, Main: main})
}

// VisitAll calls fn for d and every descendant, parents before children.
func VisitAll(d Displayable, fn func(Displayable)) {
	if d == nil {
		return
	}
	fn(d)
	for _, c := range d.Visit() {
		VisitAll(c, fn)
	}
}

// PerInteractAll runs PerInteract on every descendant of root (root included)
// and returns the first error.
func PerInteractAll(root Displayable, s Scheduler) error {
	var first error
	VisitAll(root, func(d Displayable) {
		if err := d.PerInteract(s); err != nil && first == nil {
			first = err
		}
	})
	return first
}
