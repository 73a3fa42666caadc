package screen

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/go-drift/screens/pkg/cache"
	"github.com/go-drift/screens/pkg/config"
	"github.com/go-drift/screens/pkg/errors"
	"github.com/go-drift/screens/pkg/expr"
	"github.com/go-drift/screens/pkg/layers"
	"github.com/go-drift/screens/pkg/profile"
	"github.com/go-drift/screens/pkg/telemetry"
	"github.com/go-drift/screens/pkg/ui"
)

// Compositor is the layer system live instances are placed into.
// layers.Scene implements it.
type Compositor interface {
	Place(layer, tag string, name []string, d ui.Displayable, zorder int, transient bool)
	Remove(layer, tag string) bool
	ByTag(layer, tag string) ui.Displayable
	ByName(layer string, name []string) ui.Displayable
	Each(fn func(layer string, d ui.Displayable))
}

// Evaluator evaluates modal and zorder expressions against scope variables.
type Evaluator interface {
	Evaluate(expression string, vars map[string]any) (any, error)
}

// Options configures a Directory. Zero fields take defaults.
type Options struct {
	// Config supplies cache size, variants and prediction defaults.
	Config *config.Config
	// Compositor defaults to a layers.Scene holding Config.DefaultLayer.
	Compositor Compositor
	// Evaluator defaults to the goja-backed expr.Evaluator.
	Evaluator Evaluator
	// Profiles defaults to the policies in Config.Profiles.
	Profiles *profile.Registry
	// ProfileLog receives profiling output. Nil discards it.
	ProfileLog *profile.Log
	// Metrics receives cache and update counters. Nil records nothing.
	Metrics *telemetry.Metrics
	// Logger receives prediction diagnostics.
	Logger *zap.Logger
	// Clock times updates for profiling.
	Clock profile.Clock
	// ResetUI is called after every prediction attempt.
	ResetUI func()
	// Predictor receives each successfully predicted instance.
	Predictor func(ui.Displayable)
}

// Directory is the process-wide entry point for showing, predicting and
// hiding screens. It owns the definition registry, the cache store and the
// interaction context, and is confined to the UI thread.
type Directory struct {
	cfg         *config.Config
	registry    *Registry
	store       *cache.Store
	compositor  Compositor
	evaluator   Evaluator
	profiles    *profile.Registry
	profileLog  *profile.Log
	metrics     *telemetry.Metrics
	logger      *zap.Logger
	clock       profile.Clock
	resetUI     func()
	predictor   func(ui.Displayable)
	interaction *Interaction

	lastShown *Instance
}

// NewDirectory creates a directory.
func NewDirectory(opts Options) *Directory {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	d := &Directory{
		cfg:         cfg,
		registry:    NewRegistry(cfg.Variants, cfg.PredictScreens),
		store:       cache.NewStore(cfg.ScreenCacheSize, opts.Metrics),
		compositor:  opts.Compositor,
		evaluator:   opts.Evaluator,
		profiles:    opts.Profiles,
		profileLog:  opts.ProfileLog,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		clock:       opts.Clock,
		resetUI:     opts.ResetUI,
		predictor:   opts.Predictor,
		interaction: newInteraction(),
	}
	if d.compositor == nil {
		d.compositor = layers.NewScene(cfg.DefaultLayer)
	}
	if d.evaluator == nil {
		d.evaluator = expr.New()
	}
	if d.profiles == nil {
		d.profiles = profile.NewRegistryFromConfig(cfg)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.clock == nil {
		d.clock = profile.SystemClock
	}
	return d
}

// Registry returns the definition registry.
func (d *Directory) Registry() *Registry { return d.registry }

// Cache returns the persistent cache store.
func (d *Directory) Cache() *cache.Store { return d.store }

// Compositor returns the layer system.
func (d *Directory) Compositor() Compositor { return d.compositor }

// Interaction returns the current interaction context.
func (d *Directory) Interaction() *Interaction { return d.interaction }

// Config returns the configuration the directory was built with.
func (d *Directory) Config() *config.Config { return d.cfg }

// DefineOption adjusts a definition created by Define.
type DefineOption func(*Definition)

// WithModal sets the modal expression.
func WithModal(expression string) DefineOption {
	return func(def *Definition) { def.Modal = expression }
}

// WithZOrder sets the zorder expression.
func WithZOrder(expression string) DefineOption {
	return func(def *Definition) { def.ZOrder = expression }
}

// WithTag sets the replacement tag.
func WithTag(tag string) DefineOption {
	return func(def *Definition) { def.Tag = tag }
}

// WithVariant sets the variant.
func WithVariant(variant string) DefineOption {
	return func(def *Definition) { def.Variant = variant }
}

// WithPredict overrides the configured prediction default.
func WithPredict(predict bool) DefineOption {
	return func(def *Definition) {
		if predict {
			def.Predict = PredictAlways
		} else {
			def.Predict = PredictNever
		}
	}
}

// WithParameters marks the screen as taking positional and keyword arguments.
func WithParameters() DefineOption {
	return func(def *Definition) { def.Parameters = true }
}

// WithCompiled attaches a precompiled representation.
func WithCompiled(c Compiled) DefineOption {
	return func(def *Definition) { def.Compiled = c }
}

// Define registers a screen called name built by fn.
func (d *Directory) Define(name string, fn Function, opts ...DefineOption) (*Definition, error) {
	def := Definition{Name: profile.ParseName(name), Function: fn}
	for _, opt := range opts {
		opt(&def)
	}
	return d.registry.Register(def)
}

// ShowOptions are the optional arguments of Show and Predict.
type ShowOptions struct {
	// Layer defaults to the configured default layer.
	Layer string
	// Tag defaults to the definition's tag.
	Tag string
	// Args are positional arguments for parameterized screens.
	Args []any
	// Kwargs initialize the scope, or become _kwargs for parameterized screens.
	Kwargs map[string]any
	// WidgetProperties maps a widget id to properties applied to that widget.
	WidgetProperties map[string]map[string]any
	// Properties are construction properties kept with the instance.
	Properties map[string]any
	// Transient screens are removed at the end of the interaction.
	Transient bool
}

// Show creates an instance of the screen called name and places it on the
// compositor, replacing any screen with the same tag on the layer.
func (d *Directory) Show(name string, opts ShowOptions) (*Instance, error) {
	tokens := profile.ParseName(name)
	def := d.registry.Resolve(tokens)
	if def == nil {
		return nil, errors.UnknownScreen("screen.Show", tokens)
	}
	layer := opts.Layer
	if layer == "" {
		layer = d.cfg.DefaultLayer
	}
	tag := opts.Tag
	if tag == "" {
		tag = def.Tag
	}

	inst, err := d.newInstance(def, instanceOptions{
		tag:              tag,
		layer:            layer,
		scope:            callScope(def, nil, opts.Args, opts.Kwargs),
		widgetProperties: opts.WidgetProperties,
		properties:       opts.Properties,
	})
	if err != nil {
		return nil, err
	}
	inst.cache = d.store.Get(def, opts.Args, opts.Kwargs)
	inst.phase = PhaseShow

	d.compositor.Place(layer, tag, tokens, inst, inst.zorder, opts.Transient)
	d.lastShown = inst
	return inst, nil
}

// Predict evaluates the screen called name once, off-screen, so its
// resources can be loaded ahead of display. Failures, including panics
// anywhere in the update, are reported and counted but never returned.
// The UI construction context is reset afterwards in every case.
func (d *Directory) Predict(name string, opts ShowOptions) {
	defer func() {
		if d.resetUI != nil {
			d.resetUI()
		}
	}()

	if d.cfg.DebugImageCache {
		d.logger.Debug("predict screen", zap.String("screen", name))
	}

	err := errors.Guard("screen.Predict", name, func() error {
		return d.predict(name, opts)
	})
	if err != nil {
		d.metrics.PredictFailure(name)
		se, ok := errors.As(err)
		if !ok {
			se = &errors.ScreenError{Op: "screen.Predict", Kind: errors.KindCallback, Screen: name, Err: err}
		}
		if d.cfg.DebugImageCache {
			d.logger.Debug("while predicting screen", zap.String("screen", name), zap.Error(err))
		}
		errors.Report(se)
	}
}

func (d *Directory) predict(name string, opts ShowOptions) error {
	tokens := profile.ParseName(name)
	def := d.registry.Resolve(tokens)
	if def == nil {
		return errors.UnknownScreen("screen.Predict", tokens)
	}
	if !def.Predictable() {
		return nil
	}

	inst, err := d.newInstance(def, instanceOptions{
		scope:            callScope(def, nil, opts.Args, opts.Kwargs),
		widgetProperties: opts.WidgetProperties,
		properties:       opts.Properties,
	})
	if err != nil {
		return err
	}
	inst.cache = d.store.Get(def, opts.Args, opts.Kwargs)
	if _, err := inst.Update(); err != nil {
		return err
	}
	d.store.Put(def, opts.Args, opts.Kwargs, inst.cache)

	if d.predictor != nil {
		d.predictor(inst)
	}
	return nil
}

// Hide removes the screen with tag from layer, falling back to a screen
// shown under that name. It reports whether a screen was found.
func (d *Directory) Hide(tag, layer string) bool {
	if layer == "" {
		layer = d.cfg.DefaultLayer
	}
	inst := d.Get(tag, layer)
	if inst == nil {
		return false
	}
	return d.compositor.Remove(layer, inst.tag)
}

// Get returns the live instance on layer whose tag is the first token of
// name, or else the one shown under name. It returns nil if neither exists.
func (d *Directory) Get(name, layer string) *Instance {
	if layer == "" {
		layer = d.cfg.DefaultLayer
	}
	return d.lookup(profile.ParseName(name), layer)
}

func (d *Directory) lookup(name []string, layer string) *Instance {
	if len(name) == 0 {
		return nil
	}
	if s, ok := d.compositor.ByTag(layer, name[0]).(*Instance); ok {
		return s
	}
	if s, ok := d.compositor.ByName(layer, name).(*Instance); ok {
		return s
	}
	return nil
}

// Current returns the instance whose callback or event handler is running,
// or nil outside of one.
func (d *Directory) Current() *Instance {
	return d.interaction.active
}

// GetWidget returns the widget registered under id by a live screen.
//
// target selects the screen: nil means the current instance, or the most
// recently shown screen when no callback is running; a string or []string
// is a name looked up on layer; an *Instance is looked up on layer by name
// and used directly if it is no longer live. The screen is updated first if
// it has never been. A missing screen or widget gives nil.
func (d *Directory) GetWidget(target any, id, layer string) (ui.Displayable, error) {
	if layer == "" {
		layer = d.cfg.DefaultLayer
	}
	var inst *Instance
	switch t := target.(type) {
	case nil:
		inst = d.Current()
		if inst == nil {
			inst = d.liveLastShown()
		}
	case *Instance:
		inst = d.lookup(t.name, layer)
		if inst == nil {
			inst = t
		}
	case string:
		inst = d.lookup(profile.ParseName(t), layer)
	case []string:
		inst = d.lookup(t, layer)
	default:
		return nil, fmt.Errorf("screen.GetWidget: unsupported target %T", target)
	}
	if inst == nil {
		return nil, nil
	}
	if inst.child == nil {
		if _, err := inst.Update(); err != nil {
			return nil, err
		}
	}
	return inst.widgets[id], nil
}

func (d *Directory) liveLastShown() *Instance {
	s := d.lastShown
	if s == nil {
		return nil
	}
	if live, ok := d.compositor.ByTag(s.layer, s.tag).(*Instance); ok && live == s {
		return s
	}
	return nil
}

// MarkRestarting flags every live instance so that later updates do not run
// callbacks whose captured state is about to be discarded.
func (d *Directory) MarkRestarting() {
	d.compositor.Each(func(_ string, disp ui.Displayable) {
		if s, ok := disp.(*Instance); ok {
			s.restarting = true
		}
	})
}

// PrepareAll clears the cache store and rebuilds every compiled definition.
// Every definition is unprepared before any is prepared, since preparing one
// may read the compiled state of another. The first Prepare error is
// returned after all definitions have been tried.
func (d *Directory) PrepareAll() error {
	d.store.Clear()

	defs := d.registry.All()
	for _, def := range defs {
		if def.Compiled != nil {
			def.Compiled.Unprepare()
		}
	}

	var first error
	for _, def := range defs {
		if def.Compiled == nil {
			continue
		}
		if err := def.Compiled.Prepare(); err != nil {
			if first == nil {
				first = &errors.ScreenError{Op: "screen.PrepareAll", Kind: errors.KindCallback, Screen: def.CacheLabel(), Err: err}
			}
			continue
		}
		if cr, ok := def.Compiled.(ConstReporter); ok && d.profiles.Get(def.Name).Const {
			consts, nonConsts := cr.ConstNames()
			d.profileLog.Consts(strings.Join(def.Name, " "), consts, nonConsts)
		}
	}
	return first
}

// InOldScene is called when the scene holding s is frozen for a transition.
// It warns the definition that cached state may change and returns what
// should stand in for s in the frozen scene.
func (d *Directory) InOldScene(s *Instance) ui.Displayable {
	if s.def == nil || s.child == nil {
		return s
	}
	if s.def.Compiled != nil {
		s.def.Compiled.CopyOnChange(s.cache.Root())
	}
	return s.child
}

// BeginInteraction starts a new interaction: the per-interaction set of
// updated instances is cleared, and so are the one-shot profile request
// and the redraw queue.
func (d *Directory) BeginInteraction() {
	d.interaction.reset()
	d.interaction.redraws.Flush()
}

// EndInteraction lets the compositor drop transient screens.
func (d *Directory) EndInteraction() {
	if c, ok := d.compositor.(interface{ EndInteraction() }); ok {
		c.EndInteraction()
	}
}

// RequestProfile profiles every screen whose policy allows requests during
// the current interaction.
func (d *Directory) RequestProfile() {
	d.interaction.profileOnce = true
}
