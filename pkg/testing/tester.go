package testing

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/go-drift/screens/pkg/config"
	screenerrors "github.com/go-drift/screens/pkg/errors"
	"github.com/go-drift/screens/pkg/layers"
	"github.com/go-drift/screens/pkg/profile"
	"github.com/go-drift/screens/pkg/screen"
	"github.com/go-drift/screens/pkg/telemetry"
	"github.com/go-drift/screens/pkg/ui"
)

const (
	// DefaultTestWidth is the default logical width for the test surface.
	DefaultTestWidth = 800
	// DefaultTestHeight is the default logical height for the test surface.
	DefaultTestHeight = 600
)

// ErrSettleTimeout is returned when PumpAndSettle exceeds its timeout.
var ErrSettleTimeout = errors.New("PumpAndSettle timed out: hide transitions did not finish")

// ScreenTester drives a screen Directory the way a frame loop would, with
// a fake clock, an in-memory log and a private metrics registry.
type ScreenTester struct {
	dir      *screen.Directory
	scene    *layers.Scene
	clock    *FakeClock
	logs     *observer.ObservedLogs
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	width    float64
	height   float64
	last     *ui.Render
}

// NewScreenTester creates a tester. The configuration starts from
// config.Default and is passed through each mutate function.
// Call Cleanup() when done, or use NewScreenTesterWithT() instead.
func NewScreenTester(mutate ...func(*config.Config)) *ScreenTester {
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	clk := NewFakeClock()
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	scene := layers.NewScene(cfg.DefaultLayer).SetNow(clk.Now)

	t := &ScreenTester{
		scene:    scene,
		clock:    clk,
		logs:     logs,
		registry: registry,
		metrics:  metrics,
		width:    DefaultTestWidth,
		height:   DefaultTestHeight,
	}
	t.dir = screen.NewDirectory(screen.Options{
		Config:     cfg,
		Compositor: scene,
		ProfileLog: profile.NewLog(logger.Named("profile")),
		Metrics:    metrics,
		Logger:     logger,
		Clock:      clk,
	})
	screenerrors.SetHandler(screenerrors.NewLogHandler(logger.Named("errors"), true))
	t.dir.BeginInteraction()
	return t
}

// NewScreenTesterWithT creates a tester that auto-cleans up via t.Cleanup().
// This is the recommended constructor for tests.
func NewScreenTesterWithT(t *testing.T, mutate ...func(*config.Config)) *ScreenTester {
	tester := NewScreenTester(mutate...)
	t.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup restores the global error handler.
func (t *ScreenTester) Cleanup() {
	screenerrors.SetHandler(nil)
}

// SetSize sets the logical surface size used by Pump.
func (t *ScreenTester) SetSize(width, height float64) {
	t.width, t.height = width, height
}

// Directory returns the directory under test.
func (t *ScreenTester) Directory() *screen.Directory { return t.dir }

// Scene returns the layer compositor.
func (t *ScreenTester) Scene() *layers.Scene { return t.scene }

// Clock returns the fake clock for advancing time in tests.
func (t *ScreenTester) Clock() *FakeClock { return t.clock }

// Logs returns everything logged by the directory, the profiler and the
// error handler.
func (t *ScreenTester) Logs() *observer.ObservedLogs { return t.logs }

// Metrics returns the collectors the directory records into.
func (t *ScreenTester) Metrics() *telemetry.Metrics { return t.metrics }

// Registry returns the private metrics registry.
func (t *ScreenTester) Registry() *prometheus.Registry { return t.registry }

// LastRender returns the result of the most recent Pump.
func (t *ScreenTester) LastRender() *ui.Render { return t.last }

// Define registers a screen.
func (t *ScreenTester) Define(name string, fn screen.Function, opts ...screen.DefineOption) (*screen.Definition, error) {
	return t.dir.Define(name, fn, opts...)
}

// Show shows the screen called name.
func (t *ScreenTester) Show(name string, opts screen.ShowOptions) (*screen.Instance, error) {
	return t.dir.Show(name, opts)
}

// Hide hides the screen with tag on the default layer.
func (t *ScreenTester) Hide(tag string) bool {
	return t.dir.Hide(tag, "")
}

// Widget returns the widget registered under id by the screen called name
// on the default layer, or nil.
func (t *ScreenTester) Widget(name, id string) ui.Displayable {
	w, err := t.dir.GetWidget(name, id, "")
	if err != nil {
		return nil
	}
	return w
}

// BeginFrame ends the current interaction and starts the next one, moving
// the clock forward by FrameDuration.
func (t *ScreenTester) BeginFrame() {
	t.dir.EndInteraction()
	t.clock.Advance(FrameDuration)
	t.dir.BeginInteraction()
}

// Pump renders the scene once, which updates every screen that has not yet
// been updated this interaction, then drops finished hide transitions.
func (t *ScreenTester) Pump() error {
	var updateErr error
	t.scene.Each(func(_ string, d ui.Displayable) {
		if s, ok := d.(*screen.Instance); ok && updateErr == nil {
			_, updateErr = s.Update()
		}
	})
	if updateErr != nil {
		return updateErr
	}
	r, err := t.scene.Render(t.width, t.height)
	if err != nil {
		return err
	}
	t.last = r
	t.scene.Prune(hideFinished)
	return nil
}

// PumpAndSettle runs frames until no hide transition is running or the
// timeout is reached. Each frame advances the fake clock by FrameDuration.
// Returns ErrSettleTimeout if hides are still running after timeout.
func (t *ScreenTester) PumpAndSettle(timeout time.Duration) error {
	var elapsed time.Duration
	for elapsed < timeout {
		if err := t.Pump(); err != nil {
			return err
		}
		if !t.hiding() {
			return nil
		}
		t.BeginFrame()
		elapsed += FrameDuration
	}
	return ErrSettleTimeout
}

func (t *ScreenTester) hiding() bool {
	for _, layer := range t.scene.Layers() {
		if len(t.scene.Hiding(layer)) > 0 {
			return true
		}
	}
	return false
}

// Click dispatches a click through the scene, top layer first.
func (t *ScreenTester) Click(x, y float64) (result any, stopped bool, err error) {
	return t.scene.Dispatch(ui.Event{Kind: "click"}, x, y)
}

// Find evaluates a finder against every live screen, bottom layer first.
func (t *ScreenTester) Find(finder Finder) FinderResult {
	var matches []ui.Displayable
	t.scene.Each(func(_ string, d ui.Displayable) {
		matches = append(matches, finder.Evaluate(d)...)
	})
	return FinderResult{matches: matches, finder: finder}
}

// hideFinished reports whether every hiding transform under d has finished.
func hideFinished(d ui.Displayable, st time.Duration) bool {
	done := true
	ui.VisitAll(d, func(n ui.Displayable) {
		if tr, ok := n.(*ui.Transform); ok && tr.Hiding && !tr.Done(st) {
			done = false
		}
	})
	return done
}
