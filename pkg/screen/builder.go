package screen

import (
	"fmt"
	"reflect"

	"github.com/go-drift/screens/pkg/errors"
	"github.com/go-drift/screens/pkg/profile"
	"github.com/go-drift/screens/pkg/ui"
)

// Builder is the widget construction context handed to a screen callback.
// It adds widgets to the innermost open container and registers widgets
// with an id in the instance's maps, carrying state over from the widget
// with the same id and type in the previous generation.
//
// An id may be registered once per screen body. Screens included with Use
// get their own body, so including the same screen twice replaces the
// earlier registrations and the last one wins.
//
// The first error is sticky: later calls are no-ops and the error is
// returned when the callback finishes.
type Builder struct {
	inst  *Instance
	stack []ui.Container
	err   error

	// body numbers the screen body currently running; bodies are 0 for the
	// instance's own callback and increase with every Use.
	body         int
	bodies       int
	widgetIDs    map[string]int
	transformIDs map[string]int
}

func newBuilder(inst *Instance, root ui.Container) *Builder {
	return &Builder{
		inst:         inst,
		stack:        []ui.Container{root},
		widgetIDs:    make(map[string]int),
		transformIDs: make(map[string]int),
	}
}

// claim records id for the running body and reports whether that body had
// already registered it.
func (b *Builder) claim(ids map[string]int, id string) bool {
	if body, ok := ids[id]; ok && body == b.body {
		return true
	}
	ids[id] = b.body
	return false
}

// enterBody starts a new body for a used screen and returns a func that
// restores the enclosing one.
func (b *Builder) enterBody() func() {
	prev := b.body
	b.bodies++
	b.body = b.bodies
	return func() { b.body = prev }
}

// Instance returns the instance being built.
func (b *Builder) Instance() *Instance {
	return b.inst
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) top() ui.Container {
	return b.stack[len(b.stack)-1]
}

// Add appends d to the innermost open container without registering it.
func (b *Builder) Add(d ui.Displayable) {
	if b.err != nil || d == nil {
		return
	}
	b.top().Add(d)
}

// Widget registers w under id and appends it to the innermost open
// container. An empty id only appends.
func (b *Builder) Widget(id string, w ui.Displayable) ui.Displayable {
	if b.err != nil || w == nil {
		return w
	}
	if id != "" {
		if b.claim(b.widgetIDs, id) {
			b.fail(fmt.Errorf("widget id %q was used more than once", id))
			return w
		}
		if props, ok := b.inst.widgetProperties[id]; ok {
			if ps, ok := w.(ui.PropertySetter); ok {
				ps.SetProperties(props)
			}
		}
		if old, ok := b.inst.oldWidgets[id]; ok && b.inst.oldTransfers {
			takeState(w, old)
		}
		b.inst.widgets[id] = w
	}
	b.top().Add(w)
	return w
}

// Transform registers t under id in the transform map and appends it to the
// innermost open container. Transforms take their animation state from the
// previous generation's transform with the same id.
func (b *Builder) Transform(id string, t *ui.Transform) *ui.Transform {
	if b.err != nil || t == nil {
		return t
	}
	if id != "" {
		if b.claim(b.transformIDs, id) {
			b.fail(fmt.Errorf("transform id %q was used more than once", id))
			return t
		}
		if old, ok := b.inst.oldTransforms[id]; ok && b.inst.oldTransfers {
			t.TakeState(old)
		}
		b.inst.transforms[id] = t
	}
	b.top().Add(t)
	return t
}

// Open registers c like Widget and makes it the innermost open container.
func (b *Builder) Open(id string, c ui.Container) {
	if b.err != nil || c == nil {
		return
	}
	b.Widget(id, c)
	if b.err == nil {
		b.stack = append(b.stack, c)
	}
}

// Close closes the innermost container opened with Open.
func (b *Builder) Close() {
	if b.err != nil {
		return
	}
	if len(b.stack) == 1 {
		b.fail(fmt.Errorf("close without a matching open"))
		return
	}
	b.stack = b.stack[:len(b.stack)-1]
}

// Old returns the widget registered under id by the previous generation.
// It is only meaningful while the callback runs.
func (b *Builder) Old(id string) (ui.Displayable, bool) {
	w, ok := b.inst.oldWidgets[id]
	return w, ok
}

// Use evaluates the screen called name inside the current screen. The used
// screen shares the current instance's widget maps.
func (b *Builder) Use(name string, opts ...UseOption) error {
	if b.err != nil {
		return b.err
	}
	err := b.inst.dir.use(b, profile.ParseName(name), opts...)
	if err != nil {
		b.fail(err)
	}
	return err
}

func (b *Builder) finish() error {
	if b.err != nil {
		return b.err
	}
	if n := len(b.stack) - 1; n > 0 {
		b.fail(fmt.Errorf("%d container(s) left open", n))
	}
	return b.err
}

// takeState hands old to w when both have the same concrete type.
func takeState(w, old ui.Displayable) {
	st, ok := w.(ui.StateTaker)
	if !ok || old == nil || reflect.TypeOf(w) != reflect.TypeOf(old) {
		return
	}
	st.TakeState(old)
}

// UseOption configures a nested screen evaluation.
type UseOption func(*useOptions)

type useOptions struct {
	args    []any
	kwargs  map[string]any
	scope   *Scope
	nesting any
}

// WithArgs passes positional arguments to a parameterized screen.
func WithArgs(args ...any) UseOption {
	return func(o *useOptions) { o.args = args }
}

// WithKwargs passes keyword arguments. For a screen without parameters they
// are merged over the base scope.
func WithKwargs(kwargs map[string]any) UseOption {
	return func(o *useOptions) { o.kwargs = kwargs }
}

// InScope sets the base scope copied for a screen without parameters.
// Without it the base scope is empty.
func InScope(scope *Scope) UseOption {
	return func(o *useOptions) { o.scope = scope }
}

// WithNesting sets the enclosing nesting marker recorded under KeyName.
func WithNesting(parent any) UseOption {
	return func(o *useOptions) { o.nesting = parent }
}

func (d *Directory) use(b *Builder, name []string, opts ...UseOption) error {
	def := d.registry.Resolve(name)
	if def == nil {
		return errors.UnknownScreen("screen.Use", name)
	}

	var o useOptions
	for _, opt := range opts {
		opt(&o)
	}

	inst := b.inst
	prev := inst.oldTransfers
	inst.oldTransfers = true
	defer func() { inst.oldTransfers = prev }()
	defer b.enterBody()()

	scope := callScope(def, o.scope, o.args, o.kwargs)
	scope.Set(KeyScope, scope)
	scope.Set(KeyName, Nesting{Parent: o.nesting, Name: name})

	err := errors.Guard("screen.Use", def.CacheLabel(), func() error {
		return def.Function(b, scope)
	})
	if err == nil {
		return b.err
	}
	if _, ok := errors.As(err); !ok {
		err = &errors.ScreenError{Op: "screen.Use", Kind: errors.KindCallback, Screen: def.CacheLabel(), Err: err}
	}
	return err
}

// callScope builds the scope a definition's callback is invoked with. A
// parameterized screen sees only its arguments; any other screen sees a
// copy of base with kwargs merged over it.
func callScope(def *Definition, base *Scope, args []any, kwargs map[string]any) *Scope {
	if def.Parameters {
		scope := NewScope()
		if kwargs == nil {
			kwargs = map[string]any{}
		}
		scope.Set(KeyKwargs, kwargs)
		scope.Set(KeyArgs, args)
		return scope
	}
	scope := base.Copy()
	scope.Merge(kwargs)
	return scope
}
