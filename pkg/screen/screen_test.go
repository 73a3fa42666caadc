package screen

import (
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/screens/pkg/cache"
	"github.com/go-drift/screens/pkg/config"
	"github.com/go-drift/screens/pkg/errors"
	"github.com/go-drift/screens/pkg/layers"
	"github.com/go-drift/screens/pkg/telemetry"
	"github.com/go-drift/screens/pkg/ui"
)

type fixture struct {
	dir     *Directory
	scene   *layers.Scene
	metrics *telemetry.Metrics
	resets  int
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	f := &fixture{
		scene:   layers.NewScene(cfg.DefaultLayer, "overlay"),
		metrics: telemetry.NewMetrics(prometheus.NewRegistry()),
	}
	f.dir = NewDirectory(Options{
		Config:     cfg,
		Compositor: f.scene,
		Metrics:    f.metrics,
		ResetUI:    func() { f.resets++ },
	})
	f.dir.BeginInteraction()
	silenceErrors(t)
	return f
}

func silenceErrors(t *testing.T) *[]*errors.ScreenError {
	t.Helper()
	var reported []*errors.ScreenError
	errors.SetHandler(&recordingHandler{errs: &reported})
	t.Cleanup(func() { errors.SetHandler(nil) })
	return &reported
}

type recordingHandler struct {
	errs *[]*errors.ScreenError
}

func (h *recordingHandler) HandleError(err *errors.ScreenError) { *h.errs = append(*h.errs, err) }
func (h *recordingHandler) HandlePanic(*errors.PanicError)     {}

func (f *fixture) define(t *testing.T, name string, fn Function, opts ...DefineOption) *Definition {
	t.Helper()
	def, err := f.dir.Define(name, fn, opts...)
	require.NoError(t, err)
	return def
}

func (f *fixture) show(t *testing.T, name string, opts ShowOptions) *Instance {
	t.Helper()
	inst, err := f.dir.Show(name, opts)
	require.NoError(t, err)
	return inst
}

type fakeCompiled struct {
	name     string
	log      *[]string
	copied   []cache.Persistent
	failWith error
	consts   []string
}

func (c *fakeCompiled) Prepare() error {
	if c.log != nil {
		*c.log = append(*c.log, "prepare "+c.name)
	}
	return c.failWith
}

func (c *fakeCompiled) Unprepare() {
	if c.log != nil {
		*c.log = append(*c.log, "unprepare "+c.name)
	}
}

func (c *fakeCompiled) CopyOnChange(root cache.Persistent) {
	c.copied = append(c.copied, root)
}

func (c *fakeCompiled) ConstNames() ([]string, []string) {
	return c.consts, []string{"score"}
}

func sameMap(a, b map[string]ui.Displayable) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func fadingTransforms(ids ...string) Function {
	return func(b *Builder, _ *Scope) error {
		for _, id := range ids {
			t := ui.NewTransform(id, &ui.Text{ID: id, Content: id})
			t.AnimatesHide = true
			t.HideDuration = time.Second
			b.Transform(id, t)
		}
		return nil
	}
}

func TestShowUnknownScreen(t *testing.T) {
	f := newFixture(t)
	_, err := f.dir.Show("missing", ShowOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindUnknownScreen))
	assert.ErrorIs(t, err, errors.ErrUnknownScreen)
}

func TestShowPlacesInstance(t *testing.T) {
	f := newFixture(t)
	f.define(t, "status bar", nop, WithZOrder("depth * 2"))

	inst := f.show(t, "status bar", ShowOptions{Kwargs: map[string]any{"depth": 3}})

	assert.Equal(t, PhaseShow, inst.Phase())
	assert.Equal(t, "status", inst.Tag())
	assert.Equal(t, "screens", inst.Layer())
	assert.Equal(t, 6, inst.ZOrder())
	assert.Equal(t, "Screen status bar", inst.String())
	assert.Same(t, inst, f.dir.Get("status", ""))
	assert.Same(t, inst, f.dir.Get("status bar", "screens"))
	assert.Nil(t, f.dir.Get("status", "overlay"))
	require.Len(t, f.scene.Entries("screens"), 1)
	assert.Equal(t, 6, f.scene.Entries("screens")[0].ZOrder)
}

func TestShowBadZOrderExpression(t *testing.T) {
	f := newFixture(t)
	f.define(t, "broken", nop, WithZOrder("'high'"))

	_, err := f.dir.Show("broken", ShowOptions{})
	assert.True(t, errors.Is(err, errors.KindEvaluate))
	assert.Empty(t, f.scene.Entries("screens"))
}

func TestUpdateIsIdempotentWithinInteraction(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.define(t, "counter", func(b *Builder, _ *Scope) error {
		calls++
		b.Widget("label", &ui.Text{Content: "count"})
		return nil
	})
	inst := f.show(t, "counter", ShowOptions{})

	first, err := inst.Update()
	require.NoError(t, err)
	second, err := inst.Update()
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, sameMap(first, second))
	assert.Equal(t, PhaseUpdate, inst.Phase())
	assert.True(t, inst.OldTransfers())

	f.dir.BeginInteraction()
	third, err := inst.Update()
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.False(t, sameMap(first, third))
}

func TestUpdateCarriesTransformState(t *testing.T) {
	f := newFixture(t)
	f.define(t, "fade", fadingTransforms("t"))
	inst := f.show(t, "fade", ShowOptions{})

	_, err := inst.Render(100, 100, 0, 5*time.Second)
	require.NoError(t, err)
	first := inst.Transforms()["t"]
	require.NotNil(t, first)
	assert.Equal(t, 5*time.Second, first.Started)

	f.dir.BeginInteraction()
	_, err = inst.Update()
	require.NoError(t, err)

	second := inst.Transforms()["t"]
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, 5*time.Second, second.Started)
	assert.Equal(t, 1, second.Generation)
}

func TestFailedUpdateKeepsPreviousGeneration(t *testing.T) {
	f := newFixture(t)
	fail := false
	boom := assert.AnError
	f.define(t, "flaky", func(b *Builder, _ *Scope) error {
		b.Widget("label", &ui.Text{Content: "ok"})
		if fail {
			return boom
		}
		return nil
	})
	inst := f.show(t, "flaky", ShowOptions{})
	widgets, err := inst.Update()
	require.NoError(t, err)
	child := inst.Child()

	fail = true
	f.dir.BeginInteraction()
	_, err = inst.Update()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, errors.Is(err, errors.KindCallback))

	assert.Same(t, child, inst.Child())
	assert.True(t, sameMap(widgets, inst.Widgets()))
	assert.Nil(t, f.dir.Current())
}

func TestUpdatePanicIsRecovered(t *testing.T) {
	f := newFixture(t)
	f.define(t, "explode", func(*Builder, *Scope) error { panic("kaboom") })
	inst := f.show(t, "explode", ShowOptions{})

	_, err := inst.Update()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindPanic))
	assert.Contains(t, err.Error(), "kaboom")
	assert.Nil(t, f.dir.Current())
}

func TestUpdateRecoversWidgetPanic(t *testing.T) {
	f := newFixture(t)
	f.define(t, "p", func(b *Builder, _ *Scope) error {
		b.Widget("bad", &faultyWidget{})
		return nil
	})
	inst := f.show(t, "p", ShowOptions{})

	var widgets map[string]ui.Displayable
	var err error
	require.NotPanics(t, func() { widgets, err = inst.Update() })
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindPanic))
	assert.Contains(t, widgets, "bad")
	assert.Nil(t, f.dir.Current())
}

func TestUpdateInjectsReservedKeys(t *testing.T) {
	f := newFixture(t)
	var seen *Scope
	f.define(t, "keys", func(_ *Builder, scope *Scope) error {
		seen = scope
		return nil
	})
	inst := f.show(t, "keys", ShowOptions{Kwargs: map[string]any{"who": "eileen"}})
	_, err := inst.Update()
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Same(t, seen, seen.Lookup(KeyScope))
	assert.Equal(t, 0, seen.Lookup(KeyName))
	assert.Equal(t, false, seen.Lookup(KeyDebug))
	assert.Equal(t, "eileen", seen.Lookup("who"))
}

func TestParameterizedScreenScope(t *testing.T) {
	f := newFixture(t)
	var seen *Scope
	f.define(t, "say", func(_ *Builder, scope *Scope) error {
		seen = scope
		return nil
	}, WithParameters())
	inst := f.show(t, "say", ShowOptions{Args: []any{"hello"}, Kwargs: map[string]any{"who": "eileen"}})
	_, err := inst.Update()
	require.NoError(t, err)

	assert.Equal(t, []any{"hello"}, seen.Lookup(KeyArgs))
	assert.Equal(t, map[string]any{"who": "eileen"}, seen.Lookup(KeyKwargs))
	assert.Nil(t, seen.Lookup("who"))
}

func TestParameterizedScreenExpressionsSeeArguments(t *testing.T) {
	f := newFixture(t)
	f.define(t, "dialog", nop, WithParameters(),
		WithZOrder("_kwargs.depth + 1"),
		WithModal(`_args[0] == "blocking"`))

	inst := f.show(t, "dialog", ShowOptions{Args: []any{"blocking"}, Kwargs: map[string]any{"depth": 4}})
	assert.Equal(t, 5, inst.ZOrder())
	assert.True(t, inst.Modal())

	inst = f.show(t, "dialog", ShowOptions{Args: []any{"passive"}, Kwargs: map[string]any{"depth": 0}})
	assert.Equal(t, 1, inst.ZOrder())
	assert.False(t, inst.Modal())
}

func TestWidgetPropertiesApplied(t *testing.T) {
	f := newFixture(t)
	f.define(t, "greeting", func(b *Builder, _ *Scope) error {
		b.Widget("label", &ui.Text{Content: "hello"})
		b.Widget("other", &ui.Text{Content: "unchanged"})
		return nil
	})
	f.show(t, "greeting", ShowOptions{
		WidgetProperties: map[string]map[string]any{"label": {"content": "bonjour"}},
	})

	w, err := f.dir.GetWidget("greeting", "label", "")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", w.(*ui.Text).Content)
	w, err = f.dir.GetWidget("greeting", "other", "")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", w.(*ui.Text).Content)
}

func TestGetWidgetAfterShow(t *testing.T) {
	f := newFixture(t)
	var label *ui.Text
	f.define(t, "greeting", func(b *Builder, _ *Scope) error {
		label = &ui.Text{ID: "label", Content: "hello"}
		b.Widget("label", label)
		return nil
	})
	inst := f.show(t, "greeting", ShowOptions{})

	w, err := f.dir.GetWidget(nil, "label", "")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Same(t, label, w)

	w, err = f.dir.GetWidget(inst, "label", "")
	require.NoError(t, err)
	assert.Same(t, label, w)

	w, err = f.dir.GetWidget([]string{"greeting"}, "missing", "")
	require.NoError(t, err)
	assert.Nil(t, w)

	w, err = f.dir.GetWidget("nobody", "label", "")
	require.NoError(t, err)
	assert.Nil(t, w)

	_, err = f.dir.GetWidget(42, "label", "")
	assert.Error(t, err)
}

func TestGetWidgetUsesActiveInstance(t *testing.T) {
	f := newFixture(t)
	var found ui.Displayable
	f.define(t, "outer", func(b *Builder, _ *Scope) error {
		b.Widget("mine", &ui.Text{Content: "outer"})
		return nil
	})
	f.define(t, "probe", func(b *Builder, _ *Scope) error {
		b.Widget("button", &ui.Button{Action: func() any {
			found, _ = f.dir.GetWidget(nil, "button", "")
			return true
		}})
		return nil
	}, WithTag("probe"))
	probe := f.show(t, "probe", ShowOptions{Layer: "overlay"})
	f.show(t, "outer", ShowOptions{})

	_, err := probe.Update()
	require.NoError(t, err)
	rv, err := probe.Event(ui.Event{Kind: "click"}, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, true, rv)
	assert.Same(t, probe.Widgets()["button"], found)
	assert.Nil(t, f.dir.Current())
}

func TestModalScreenStopsLowerLayers(t *testing.T) {
	f := newFixture(t)
	f.define(t, "game", func(b *Builder, _ *Scope) error {
		b.Widget("go", &ui.Button{Action: func() any { return "game" }})
		return nil
	})
	f.define(t, "dialog", func(b *Builder, _ *Scope) error {
		b.Widget("text", &ui.Text{Content: "are you sure?"})
		return nil
	}, WithModal("locked"))

	f.show(t, "game", ShowOptions{})
	dialog := f.show(t, "dialog", ShowOptions{Layer: "overlay", Kwargs: map[string]any{"locked": true}})
	assert.True(t, dialog.Modal())

	r, err := f.scene.Render(800, 600)
	require.NoError(t, err)
	require.Len(t, r.Blits, 2)
	assert.True(t, r.Blits[1].Child.Modal)

	rv, stopped, err := f.scene.Dispatch(ui.Event{Kind: "click"}, 0, 0)
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.Nil(t, rv)

	f.dir.Hide("dialog", "overlay")
	rv, stopped, err = f.scene.Dispatch(ui.Event{Kind: "click"}, 0, 0)
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.Equal(t, "game", rv)
}

func TestNonModalScreenPassesEventsDown(t *testing.T) {
	f := newFixture(t)
	f.define(t, "hud", nop)
	inst := f.show(t, "hud", ShowOptions{})
	_, err := inst.Update()
	require.NoError(t, err)

	rv, err := inst.Event(ui.Event{Kind: "click"}, 0, 0, 0)
	assert.NoError(t, err)
	assert.Nil(t, rv)
}

func TestHideSplitsChildren(t *testing.T) {
	f := newFixture(t)
	compiled := &fakeCompiled{name: "menu"}
	f.define(t, "menu", fadingTransforms("a", "b", "c"), WithCompiled(compiled))
	inst := f.show(t, "menu", ShowOptions{})
	_, err := inst.Update()
	require.NoError(t, err)

	hid := inst.Hide(0, 0, "hide")
	require.NotNil(t, hid)
	clone, ok := hid.(*Instance)
	require.True(t, ok)

	assert.NotSame(t, inst, clone)
	assert.NotEqual(t, inst.ID(), clone.ID())
	assert.True(t, clone.Hiding())
	assert.Equal(t, PhaseHide, clone.Phase())
	assert.False(t, inst.Hiding())
	assert.Equal(t, PhaseUpdate, inst.Phase())
	assert.Len(t, compiled.copied, 1)

	root, ok := clone.Child().(*ui.Fixed)
	require.True(t, ok)
	assert.Same(t, root, inst.Child())
	require.Len(t, root.Children(), 3)
	for _, c := range root.Children() {
		tr, ok := c.(*ui.Transform)
		require.True(t, ok)
		assert.True(t, tr.Hiding)
		assert.Equal(t, "hide", tr.LastEvent)
	}

	redraws := f.dir.Interaction().Redraws()
	assert.True(t, redraws.Pending(clone))

	r, err := clone.Render(100, 100, 0, 0)
	require.NoError(t, err)
	require.Len(t, r.Blits, 1)
	assert.False(t, r.Blits[0].Focus)
	assert.False(t, r.Modal)

	rv, err := clone.Event(ui.Event{Kind: "click"}, 0, 0, 0)
	assert.NoError(t, err)
	assert.Nil(t, rv)

	again := clone.Hide(0, 0, "replace")
	assert.Same(t, clone, again)
}

func TestHideWithoutAnimationsIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.define(t, "plain", func(b *Builder, _ *Scope) error {
		b.Widget("label", &ui.Text{Content: "x"})
		return nil
	})
	inst := f.show(t, "plain", ShowOptions{})

	assert.Nil(t, inst.Hide(0, 0, "hide"))

	_, err := inst.Update()
	require.NoError(t, err)
	assert.Nil(t, inst.Hide(0, 0, "hide"))
}

func TestDirectoryHideUsesCompositor(t *testing.T) {
	f := newFixture(t)
	f.define(t, "menu", fadingTransforms("a", "b"))
	f.define(t, "plain", nop)
	f.show(t, "menu", ShowOptions{})
	f.show(t, "plain", ShowOptions{})
	_, err := f.scene.Render(100, 100)
	require.NoError(t, err)

	assert.True(t, f.dir.Hide("menu", ""))
	assert.True(t, f.dir.Hide("plain", ""))
	assert.False(t, f.dir.Hide("menu", ""))

	assert.Nil(t, f.dir.Get("menu", ""))
	hiding := f.scene.Hiding("screens")
	require.Len(t, hiding, 1)
	assert.True(t, hiding[0].(*Instance).Hiding())
}

func TestMarkRestartingFreezesInstances(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.define(t, "counter", func(b *Builder, _ *Scope) error {
		calls++
		b.Widget("label", &ui.Text{Content: "count"})
		return nil
	})
	f.define(t, "fresh", func(*Builder, *Scope) error {
		calls += 100
		return nil
	})
	inst := f.show(t, "counter", ShowOptions{})
	fresh := f.show(t, "fresh", ShowOptions{})
	before, err := inst.Update()
	require.NoError(t, err)

	f.dir.MarkRestarting()
	f.dir.BeginInteraction()

	after, err := inst.Update()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, sameMap(before, after))
	assert.True(t, inst.Restarting())

	widgets, err := fresh.Update()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, widgets)
	assert.IsType(t, &ui.Null{}, fresh.Child())
}

func TestNewInstanceSeedsFromSameTag(t *testing.T) {
	f := newFixture(t)
	f.define(t, "menu", fadingTransforms("t"))
	f.define(t, "other", fadingTransforms("t"))
	first := f.show(t, "menu", ShowOptions{})
	_, err := first.Update()
	require.NoError(t, err)

	again := f.show(t, "menu", ShowOptions{})
	assert.True(t, again.OldTransfers())
	assert.Same(t, first.Transforms()["t"], again.Transforms()["t"])

	replaced := f.show(t, "other", ShowOptions{Tag: "menu"})
	assert.False(t, replaced.OldTransfers())
	assert.Len(t, f.scene.Entries("screens"), 1)
}

func TestTransientScreensEndWithInteraction(t *testing.T) {
	f := newFixture(t)
	f.define(t, "notify", nop)
	f.show(t, "notify", ShowOptions{Transient: true})
	require.NotNil(t, f.dir.Get("notify", ""))

	f.dir.EndInteraction()
	assert.Nil(t, f.dir.Get("notify", ""))
}

func TestInOldScene(t *testing.T) {
	f := newFixture(t)
	compiled := &fakeCompiled{name: "menu"}
	f.define(t, "menu", nop, WithCompiled(compiled))
	inst := f.show(t, "menu", ShowOptions{})

	assert.Same(t, inst, f.dir.InOldScene(inst))
	assert.Empty(t, compiled.copied)

	_, err := inst.Update()
	require.NoError(t, err)
	assert.Same(t, inst.Child(), f.dir.InOldScene(inst))
	assert.Len(t, compiled.copied, 1)
}

func TestPlacementAndFocusable(t *testing.T) {
	f := newFixture(t)
	f.define(t, "menu", func(b *Builder, _ *Scope) error {
		b.Widget("a", &ui.Text{Content: "a"})
		b.Widget("b", &ui.Text{Content: "b"})
		return nil
	})
	inst := f.show(t, "menu", ShowOptions{})

	p, err := inst.Placement()
	require.NoError(t, err)
	assert.Equal(t, ui.Placement{}, p)
	require.NotNil(t, inst.Child())

	var seen int
	inst.FindFocusable(func(ui.Displayable) { seen++ })
	assert.Equal(t, 3, seen)
}

func TestEventSetsActiveInstance(t *testing.T) {
	f := newFixture(t)
	var active *Instance
	f.define(t, "menu", func(b *Builder, _ *Scope) error {
		b.Widget("go", &ui.Button{Action: func() any {
			active = f.dir.Current()
			return "clicked"
		}})
		return nil
	})
	inst := f.show(t, "menu", ShowOptions{})
	_, err := inst.Update()
	require.NoError(t, err)

	rv, err := inst.Event(ui.Event{Kind: "click"}, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "clicked", rv)
	assert.Same(t, inst, active)
	assert.Nil(t, f.dir.Current())
}
