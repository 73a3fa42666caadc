package screen

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/go-drift/screens/pkg/cache"
	"github.com/go-drift/screens/pkg/errors"
	"github.com/go-drift/screens/pkg/expr"
	"github.com/go-drift/screens/pkg/profile"
	"github.com/go-drift/screens/pkg/ui"
)

// Instance is the live, per-display unit of a screen. It owns the current
// widget tree and reconciles it against the previous generation on every
// update. Instances are confined to the UI thread.
type Instance struct {
	id  uuid.UUID
	dir *Directory
	def *Definition

	name  []string
	tag   string
	layer string

	scope            *Scope
	widgetProperties map[string]map[string]any
	properties       map[string]any
	policy           profile.Policy

	child ui.Displayable

	// widgets and transforms hold the most recent completed update.
	widgets    map[string]ui.Displayable
	transforms map[string]*ui.Transform

	// oldWidgets and oldTransforms are only set while the callback runs.
	oldWidgets    map[string]ui.Displayable
	oldTransforms map[string]*ui.Transform

	cache cache.Persistent

	oldTransfers bool
	pendingEvent string
	hiding       bool
	restarting   bool

	modal  bool
	zorder int
	phase  Phase

	builder *Builder
}

type instanceOptions struct {
	tag              string
	layer            string
	scope            *Scope
	widgetProperties map[string]map[string]any
	properties       map[string]any
}

// newInstance builds an instance of def in PhasePredict. When an instance
// with the same tag is live on the layer, its transforms and widgets seed
// the new one, and old-state transfer is allowed if it showed the same screen.
func (d *Directory) newInstance(def *Definition, opts instanceOptions) (*Instance, error) {
	scope := opts.scope
	if scope == nil {
		scope = NewScope()
	}
	s := &Instance{
		id:               uuid.New(),
		dir:              d,
		def:              def,
		name:             def.Name,
		tag:              opts.tag,
		layer:            opts.layer,
		scope:            scope,
		widgetProperties: opts.widgetProperties,
		properties:       opts.properties,
		policy:           d.profiles.Get(def.Name),
		widgets:          make(map[string]ui.Displayable),
		transforms:       make(map[string]*ui.Transform),
		cache:            cache.Persistent{},
		phase:            PhasePredict,
	}

	if opts.tag != "" && opts.layer != "" {
		if old := d.lookup([]string{opts.tag}, opts.layer); old != nil {
			s.transforms = maps.Clone(old.transforms)
			s.widgets = maps.Clone(old.widgets)
			s.oldTransfers = equalNames(old.name, s.name)
		}
	}

	if err := s.evaluate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Instance) evaluate() error {
	vars := s.scope.Vars()
	modal, err := s.dir.evaluator.Evaluate(s.def.Modal, vars)
	if err != nil {
		return &errors.ScreenError{Op: "screen.modal", Kind: errors.KindEvaluate, Screen: s.label(), Err: err}
	}
	zv, err := s.dir.evaluator.Evaluate(s.def.ZOrder, vars)
	if err != nil {
		return &errors.ScreenError{Op: "screen.zorder", Kind: errors.KindEvaluate, Screen: s.label(), Err: err}
	}
	zorder, err := expr.Int(zv)
	if err != nil {
		return &errors.ScreenError{Op: "screen.zorder", Kind: errors.KindEvaluate, Screen: s.label(), Err: err}
	}
	s.modal = expr.Truthy(modal)
	s.zorder = zorder
	return nil
}

// ID returns the instance's unique id.
func (s *Instance) ID() uuid.UUID { return s.id }

// Definition returns the definition, or nil for a defunct screen.
func (s *Instance) Definition() *Definition { return s.def }

// Name returns the screen name tokens.
func (s *Instance) Name() []string { return s.name }

// Tag returns the tag the instance was shown with, empty for predictions.
func (s *Instance) Tag() string { return s.tag }

// Layer returns the layer the instance was shown on, empty for predictions.
func (s *Instance) Layer() string { return s.layer }

// Scope returns the callback scope.
func (s *Instance) Scope() *Scope { return s.scope }

// Child returns the current widget subtree root.
func (s *Instance) Child() ui.Displayable { return s.child }

// Widgets returns the id to widget map of the most recent completed update.
func (s *Instance) Widgets() map[string]ui.Displayable { return s.widgets }

// Transforms returns the id to transform map of the most recent completed update.
func (s *Instance) Transforms() map[string]*ui.Transform { return s.transforms }

// Cache returns the persistent cache.
func (s *Instance) Cache() cache.Persistent { return s.cache }

// Phase returns the lifecycle phase.
func (s *Instance) Phase() Phase { return s.phase }

// Modal reports the evaluated modal flag.
func (s *Instance) Modal() bool { return s.modal }

// ZOrder returns the evaluated zorder.
func (s *Instance) ZOrder() int { return s.zorder }

// Hiding reports whether the instance is a frozen hide clone.
func (s *Instance) Hiding() bool { return s.hiding }

// Restarting reports whether the instance was marked before a restart.
func (s *Instance) Restarting() bool { return s.restarting }

// OldTransfers reports whether widgets may take state from the previous generation.
func (s *Instance) OldTransfers() bool { return s.oldTransfers }

func (s *Instance) String() string {
	return "Screen " + strings.Join(s.name, " ")
}

func (s *Instance) label() string {
	return strings.Join(s.name, " ")
}

func (s *Instance) focusName() string {
	return "_screen_" + strings.Join(s.name, "_")
}

// Update runs the screen callback and reconciles the new widget tree
// against the previous generation, returning the new id to widget map.
//
// Update runs at most once per interaction; later calls return the current
// map. A restarting or hiding instance never runs its callback. Callback
// errors and panics are returned, and the instance keeps the child and maps
// it had before the call.
func (s *Instance) Update() (map[string]ui.Displayable, error) {
	ic := s.dir.interaction
	if ic.Updated(s) {
		s.dir.metrics.UpdateSkip("frame")
		return s.widgets, nil
	}
	ic.markUpdated(s)

	if s.def == nil {
		s.child = ui.NewNull()
		return map[string]ui.Displayable{}, nil
	}

	if s.restarting || s.hiding {
		if s.child == nil {
			s.child = ui.NewNull()
		}
		s.dir.metrics.UpdateSkip("frozen")
		return s.widgets, nil
	}

	profiling, debug := s.shouldProfile(ic)
	label := s.label()
	phase := s.phase
	start := s.dir.clock.Now()
	if profiling {
		s.dir.profileLog.Start(phase.String(), label, start)
	}

	prevChild := s.child
	s.oldWidgets, s.oldTransforms = s.widgets, s.transforms
	s.widgets = make(map[string]ui.Displayable)
	s.transforms = make(map[string]*ui.Transform)

	root := ui.NewFixed(s.focusName())
	s.child = root

	s.scope.Set(KeyScope, s.scope)
	s.scope.Set(KeyName, 0)
	s.scope.Set(KeyDebug, debug)

	err := s.run(root)
	if err != nil {
		s.widgets, s.transforms = s.oldWidgets, s.oldTransforms
		s.oldWidgets, s.oldTransforms = nil, nil
		s.child = prevChild
		return nil, err
	}

	perErr := errors.Guard("screen.Update", label, func() error {
		return ui.PerInteractAll(root, ic.redraws)
	})

	s.oldWidgets, s.oldTransforms = nil, nil
	s.oldTransfers = true
	s.flushTransformEvent()

	elapsed := s.dir.clock.Now().Sub(start)
	if profiling {
		s.dir.profileLog.Finish(label, s.policy, elapsed)
	}
	s.dir.metrics.Update(label, phase.String(), elapsed)

	if s.phase == PhaseShow {
		s.phase = PhaseUpdate
	}
	if perErr != nil {
		return s.widgets, perErr
	}
	return s.widgets, nil
}

// run invokes the callback with s as the active instance, restoring the
// previous active instance on every exit path.
func (s *Instance) run(root *ui.Fixed) error {
	ic := s.dir.interaction
	b := newBuilder(s, root)
	prevBuilder := s.builder
	s.builder = b
	prev := ic.enter(s)
	defer func() {
		ic.leave(prev)
		s.builder = prevBuilder
	}()

	err := errors.Guard("screen.Update", s.label(), func() error {
		return s.def.Function(b, s.scope)
	})
	if err == nil {
		err = b.finish()
	}
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); !ok {
		err = &errors.ScreenError{Op: "screen.Update", Kind: errors.KindCallback, Screen: s.label(), Err: err}
	}
	return err
}

func (s *Instance) shouldProfile(ic *Interaction) (profiling, debug bool) {
	p := s.policy
	switch s.phase {
	case PhaseUpdate:
		profiling = p.Update
	case PhaseShow:
		profiling = p.Show
	case PhasePredict:
		profiling = p.Predict
	}
	if ic.profileOnce && p.Request {
		profiling = true
	}
	return profiling, profiling && p.Debug
}

// flushTransformEvent hands a pending transform event to every direct child
// of the root container.
func (s *Instance) flushTransformEvent() {
	if s.pendingEvent == "" {
		return
	}
	if c, ok := s.child.(ui.Container); ok {
		for _, d := range c.Children() {
			d.SetTransformEvent(s.pendingEvent)
		}
	}
	s.pendingEvent = ""
}

// Render lazily updates, renders the child, and wraps the result. A hiding
// instance neither contributes focus nor blocks lower layers.
func (s *Instance) Render(width, height float64, st, at time.Duration) (*ui.Render, error) {
	if s.child == nil {
		if _, err := s.Update(); err != nil {
			return nil, err
		}
	}
	child := s.child
	if child == nil {
		child = ui.NewNull()
	}
	cr, err := child.Render(width, height, st, at)
	if err != nil {
		return nil, err
	}
	rv := ui.NewRender(width, height)
	rv.Blit(cr, 0, 0, !s.hiding, !s.hiding)
	rv.Modal = s.modal && !s.hiding
	return rv, nil
}

// Event dispatches ev to the child with s active. If the child does not
// consume it and the screen is modal, Event returns ui.ErrIgnoreLayers.
func (s *Instance) Event(ev ui.Event, x, y float64, st time.Duration) (any, error) {
	if s.hiding {
		return nil, nil
	}
	var rv any
	if s.child != nil {
		ic := s.dir.interaction
		prev := ic.enter(s)
		var err error
		func() {
			defer ic.leave(prev)
			rv, err = s.child.Event(ev, x, y, st)
		}()
		if err != nil {
			return nil, err
		}
	}
	if rv != nil {
		return rv, nil
	}
	if s.modal {
		return nil, ui.ErrIgnoreLayers
	}
	return nil, nil
}

// Hide splits the hide transition across the screen's children. It returns
// a hiding clone whose root holds each child's hide result, or nil when the
// screen must disappear atomically: it has no definition or child, its root
// is not a multi-child container, or no child animates its hide.
func (s *Instance) Hide(st, at time.Duration, kind string) ui.Displayable {
	hid := s
	if !s.hiding {
		if s.def == nil || s.child == nil {
			return nil
		}
		if s.def.Compiled != nil {
			s.def.Compiled.CopyOnChange(s.cache.Root())
		}
		hid = s.cloneForHide()
	}

	hid.phase = PhaseHide
	hid.hiding = true
	hid.pendingEvent = kind
	// The hiding guard keeps the callback from running, so this only
	// marks the clone updated for the frame.
	_, _ = hid.Update()
	hid.flushTransformEvent()

	old, ok := hid.child.(ui.Container)
	if !ok {
		s.dir.metrics.Hide("atomic")
		return nil
	}

	root := ui.NewFixed(s.focusName())
	s.child = root
	hid.child = root

	redraws := s.dir.interaction.redraws
	var rv ui.Displayable
	for _, c := range old.Children() {
		if h := c.Hide(st, at, kind); h != nil {
			redraws.Redraw(h, 0)
			root.Add(h)
			rv = hid
		}
	}
	if rv == nil {
		s.dir.metrics.Hide("atomic")
		return nil
	}
	redraws.Redraw(hid, 0)
	s.dir.metrics.Hide("split")
	return rv
}

// cloneForHide copies the instance descriptor. Transforms and widgets are
// copied shallowly so running animations continue, and the child is shared.
func (s *Instance) cloneForHide() *Instance {
	return &Instance{
		id:               uuid.New(),
		dir:              s.dir,
		def:              s.def,
		name:             s.name,
		tag:              s.tag,
		layer:            s.layer,
		scope:            s.scope,
		widgetProperties: s.widgetProperties,
		properties:       s.properties,
		policy:           s.policy,
		child:            s.child,
		widgets:          maps.Clone(s.widgets),
		transforms:       maps.Clone(s.transforms),
		cache:            s.cache,
		oldTransfers:     true,
		modal:            s.modal,
		zorder:           s.zorder,
		phase:            s.phase,
	}
}

// SetTransformEvent queues kind for the children of the next update's root.
func (s *Instance) SetTransformEvent(kind string) {
	s.pendingEvent = kind
}

// PerInteract schedules a redraw and updates the instance.
func (s *Instance) PerInteract(sched ui.Scheduler) error {
	sched.Redraw(s, 0)
	_, err := s.Update()
	return err
}

// Visit returns the child.
func (s *Instance) Visit() []ui.Displayable {
	if s.child == nil {
		return nil
	}
	return []ui.Displayable{s.child}
}

// Placement lazily updates and returns the child's placement.
func (s *Instance) Placement() (ui.Placement, error) {
	if s.child == nil {
		if _, err := s.Update(); err != nil {
			return ui.Placement{}, err
		}
	}
	if p, ok := s.child.(ui.Placer); ok {
		return p.Placement(), nil
	}
	return ui.Placement{}, nil
}

// FindFocusable calls fn for every displayable in the child tree, unless
// the instance is hiding.
func (s *Instance) FindFocusable(fn func(ui.Displayable)) {
	if s.child == nil || s.hiding {
		return
	}
	ui.VisitAll(s.child, fn)
}

// Widget returns the widget registered under id by the last update.
func (s *Instance) Widget(id string) (ui.Displayable, bool) {
	w, ok := s.widgets[id]
	return w, ok
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var _ ui.Displayable = (*Instance)(nil)

// GoString helps test failure output.
func (s *Instance) GoString() string {
	return fmt.Sprintf("&screen.Instance{name:%q tag:%q layer:%q phase:%s}", s.label(), s.tag, s.layer, s.phase)
}
