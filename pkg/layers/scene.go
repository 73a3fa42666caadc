// Package layers provides the compositing layer system screens are placed
// into: an ordered set of named layers, each holding a z-ordered stack of
// tagged entries.
package layers

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	screenerrors "github.com/go-drift/screens/pkg/errors"
	"github.com/go-drift/screens/pkg/ui"
)

// Entry is a single displayable placed on a layer.
type Entry struct {
	// ID uniquely identifies the entry for its lifetime.
	ID uuid.UUID
	// Tag is the replacement key within the layer.
	Tag string
	// Name is the screen name the entry was shown under.
	Name []string
	// Displayable is what gets rendered.
	Displayable ui.Displayable
	// ZOrder orders entries inside a layer; higher is on top.
	ZOrder int
	// Transient entries are removed by EndInteraction.
	Transient bool
	// ShownAt is when the entry was placed.
	ShownAt time.Time
}

// Scene holds the layers in bottom-to-top order.
type Scene struct {
	order   []string
	entries map[string][]*Entry
	hiding  map[string][]*Entry
	now     func() time.Time
}

// NewScene creates a scene with the named layers, bottom first.
func NewScene(layerNames ...string) *Scene {
	s := &Scene{
		entries: make(map[string][]*Entry),
		hiding:  make(map[string][]*Entry),
		now:     time.Now,
	}
	for _, name := range layerNames {
		s.addLayer(name)
	}
	return s
}

// SetNow replaces the time source. Returns the scene for chaining.
func (s *Scene) SetNow(now func() time.Time) *Scene {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Scene) addLayer(name string) {
	if !slices.Contains(s.order, name) {
		s.order = append(s.order, name)
	}
}

// Layers returns the layer names, bottom first.
func (s *Scene) Layers() []string {
	return slices.Clone(s.order)
}

// Place shows d on layer under tag, replacing any entry with the same tag.
// Unknown layers are created on top.
func (s *Scene) Place(layer, tag string, name []string, d ui.Displayable, zorder int, transient bool) {
	s.addLayer(layer)
	entry := &Entry{
		ID:          uuid.New(),
		Tag:         tag,
		Name:        slices.Clone(name),
		Displayable: d,
		ZOrder:      zorder,
		Transient:   transient,
		ShownAt:     s.now(),
	}
	list := s.entries[layer]
	replaced := false
	for i, e := range list {
		if e.Tag == tag {
			list[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, entry)
	}
	slices.SortStableFunc(list, func(a, b *Entry) int { return a.ZOrder - b.ZOrder })
	s.entries[layer] = list
}

// Remove takes the entry tagged tag off layer. The entry's displayable is
// asked for a hide transition; a non-nil result keeps animating on the
// layer's hiding list. Reports whether an entry was found.
func (s *Scene) Remove(layer, tag string) bool {
	list := s.entries[layer]
	idx := slices.IndexFunc(list, func(e *Entry) bool { return e.Tag == tag })
	if idx < 0 {
		return false
	}
	e := list[idx]
	s.entries[layer] = slices.Delete(list, idx, idx+1)

	st := s.now().Sub(e.ShownAt)
	if h := e.Displayable.Hide(st, st, "hide"); h != nil {
		hidden := *e
		hidden.ID = uuid.New()
		hidden.Displayable = h
		hidden.ShownAt = s.now()
		s.hiding[layer] = append(s.hiding[layer], &hidden)
	}
	return true
}

// ByTag returns the displayable tagged tag on layer, or nil.
func (s *Scene) ByTag(layer, tag string) ui.Displayable {
	for _, e := range s.entries[layer] {
		if e.Tag == tag {
			return e.Displayable
		}
	}
	return nil
}

// ByName returns the displayable shown under name on layer, or nil.
func (s *Scene) ByName(layer string, name []string) ui.Displayable {
	for _, e := range s.entries[layer] {
		if slices.Equal(e.Name, name) {
			return e.Displayable
		}
	}
	return nil
}

// Entries returns the live entries of layer, lowest zorder first.
func (s *Scene) Entries(layer string) []*Entry {
	return slices.Clone(s.entries[layer])
}

// Hiding returns the displayables still animating their hide on layer.
func (s *Scene) Hiding(layer string) []ui.Displayable {
	out := make([]ui.Displayable, 0, len(s.hiding[layer]))
	for _, e := range s.hiding[layer] {
		out = append(out, e.Displayable)
	}
	return out
}

// DropHidden forgets a finished hide animation.
func (s *Scene) DropHidden(layer string, d ui.Displayable) {
	s.hiding[layer] = slices.DeleteFunc(s.hiding[layer], func(e *Entry) bool {
		return e.Displayable == d
	})
}

// Prune drops every hiding entry for which done reports true, given the
// time since its hide began. It returns the number dropped.
func (s *Scene) Prune(done func(d ui.Displayable, st time.Duration) bool) int {
	now := s.now()
	dropped := 0
	for _, layer := range s.order {
		before := len(s.hiding[layer])
		s.hiding[layer] = slices.DeleteFunc(s.hiding[layer], func(e *Entry) bool {
			return done(e.Displayable, now.Sub(e.ShownAt))
		})
		dropped += before - len(s.hiding[layer])
	}
	return dropped
}

// Each calls fn for every live displayable, bottom layer first.
func (s *Scene) Each(fn func(layer string, d ui.Displayable)) {
	for _, layer := range s.order {
		for _, e := range s.entries[layer] {
			fn(layer, e.Displayable)
		}
	}
}

// EndInteraction removes transient entries from every layer.
func (s *Scene) EndInteraction() {
	for _, layer := range s.order {
		var tags []string
		for _, e := range s.entries[layer] {
			if e.Transient {
				tags = append(tags, e.Tag)
			}
		}
		for _, tag := range tags {
			s.dropTransient(layer, tag)
		}
	}
}

// dropTransient removes one transient entry. A panicking Hide is reported
// and the entry stays removed, so the rest of the layer is still cleared.
func (s *Scene) dropTransient(layer, tag string) {
	defer screenerrors.Recover("layers.EndInteraction")
	s.Remove(layer, tag)
}

// Render composites every layer, bottom first. Hiding displayables are drawn
// above the live entries of their layer and never contribute focus.
func (s *Scene) Render(width, height float64) (*ui.Render, error) {
	rv := ui.NewRender(width, height)
	now := s.now()
	for _, layer := range s.order {
		for _, e := range s.entries[layer] {
			st := now.Sub(e.ShownAt)
			r, err := e.Displayable.Render(width, height, st, st)
			if err != nil {
				return nil, err
			}
			rv.Blit(r, 0, 0, true, true)
		}
		for _, e := range s.hiding[layer] {
			st := now.Sub(e.ShownAt)
			r, err := e.Displayable.Render(width, height, st, st)
			if err != nil {
				return nil, err
			}
			rv.Blit(r, 0, 0, false, false)
		}
	}
	return rv, nil
}

// Dispatch delivers ev from the top entry of the top layer downward. The
// first non-nil result is returned. A displayable answering with
// ui.ErrIgnoreLayers stops delivery, and Dispatch reports stopped. A
// panicking handler is reported and returned as a *errors.PanicError.
func (s *Scene) Dispatch(ev ui.Event, x, y float64) (result any, stopped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &screenerrors.PanicError{
				Op:         "layers.Dispatch",
				Value:      r,
				StackTrace: screenerrors.CaptureStack(),
				Timestamp:  time.Now(),
			}
			screenerrors.ReportPanic(pe)
			result, stopped, err = nil, false, pe
		}
	}()

	now := s.now()
	for i := len(s.order) - 1; i >= 0; i-- {
		list := s.entries[s.order[i]]
		for j := len(list) - 1; j >= 0; j-- {
			e := list[j]
			rv, err := e.Displayable.Event(ev, x, y, now.Sub(e.ShownAt))
			if errors.Is(err, ui.ErrIgnoreLayers) {
				return nil, true, nil
			}
			if err != nil {
				return nil, false, err
			}
			if rv != nil {
				return rv, false, nil
			}
		}
	}
	return nil, false, nil
}
