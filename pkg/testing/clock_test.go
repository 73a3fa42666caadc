package testing

import (
	"testing"
	"time"

	"github.com/go-drift/screens/pkg/profile"
)

var _ profile.Clock = (*FakeClock)(nil)

func TestFakeClock_Advance(t *testing.T) {
	clk := NewFakeClock()
	start := clk.Now()

	clk.Advance(100 * time.Millisecond)
	elapsed := clk.Now().Sub(start)

	if elapsed != 100*time.Millisecond {
		t.Errorf("expected 100ms elapsed, got %v", elapsed)
	}
	if clk.Elapsed() != 100*time.Millisecond {
		t.Errorf("expected Elapsed 100ms, got %v", clk.Elapsed())
	}
}

func TestFakeClock_Set(t *testing.T) {
	clk := NewFakeClock()
	target := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	clk.Set(target)
	if !clk.Now().Equal(target) {
		t.Errorf("expected %v, got %v", target, clk.Now())
	}
}

func TestScreenTester_BeginFrameAdvancesClock(t *testing.T) {
	tester := NewScreenTesterWithT(t)
	start := tester.Clock().Now()

	tester.BeginFrame()
	tester.BeginFrame()

	if got := tester.Clock().Now().Sub(start); got != 2*FrameDuration {
		t.Errorf("expected %v after two frames, got %v", 2*FrameDuration, got)
	}
}
