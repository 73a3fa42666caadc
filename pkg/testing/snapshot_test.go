package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-drift/screens/pkg/screen"
	"github.com/go-drift/screens/pkg/ui"
)

// recordingT captures failures instead of stopping the test.
type recordingT struct {
	fatals []string
	errs   []string
}

func (r *recordingT) Helper() {}
func (r *recordingT) Name() string { return "TestRecording" }
func (r *recordingT) Fatalf(format string, args ...any) {
	r.fatals = append(r.fatals, fmt.Sprintf(format, args...))
}
func (r *recordingT) Errorf(format string, args ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}

func TestCaptureSnapshot_Structure(t *testing.T) {
	tester := pumpCounter(t, 3)

	snap := tester.CaptureSnapshot()
	if len(snap.Layers) != 1 || snap.Layers[0].Name != "screens" {
		t.Fatalf("expected the screens layer, got %+v", snap.Layers)
	}
	entries := snap.Layers[0].Entries
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	root := entries[0]
	if root.Type != "Instance" || root.ID != "Instance#0" {
		t.Errorf("expected Instance#0, got %s (%s)", root.ID, root.Type)
	}
	if root.Properties["name"] != "counter" {
		t.Errorf("expected name 'counter', got %v", root.Properties["name"])
	}
	if root.Properties["phase"] != screen.PhaseUpdate.String() {
		t.Errorf("expected phase %q after an update, got %v", screen.PhaseUpdate.String(), root.Properties["phase"])
	}
	ids, _ := root.Properties["widgets"].([]string)
	if strings.Join(ids, ",") != "body,increment,value" {
		t.Errorf("expected sorted widget ids, got %v", root.Properties["widgets"])
	}

	if len(root.Children) != 1 || root.Children[0].ID != "Fixed#0" {
		t.Fatalf("expected the root Fixed, got %+v", root.Children)
	}
	body := root.Children[0].Children
	if len(body) != 1 || body[0].ID != "Fixed#1" {
		t.Fatalf("expected the body Fixed, got %+v", body)
	}
	leaves := body[0].Children
	if len(leaves) != 2 || leaves[0].ID != "Text#0" || leaves[1].ID != "Button#0" {
		t.Fatalf("expected Text#0 and Button#0, got %+v", leaves)
	}
	if leaves[0].Properties["content"] != "3" {
		t.Errorf("expected content '3', got %v", leaves[0].Properties["content"])
	}
}

func TestCaptureSnapshot_Hiding(t *testing.T) {
	tester := NewScreenTesterWithT(t)
	tester.Define("toast", fadingScreen(time.Second))
	mustShow(t, tester, "toast", screen.ShowOptions{})
	tester.Pump()
	tester.Hide("toast")

	layer := tester.CaptureSnapshot().Layers[0]
	if len(layer.Entries) != 0 {
		t.Errorf("expected no live entries, got %d", len(layer.Entries))
	}
	if len(layer.Hiding) != 1 {
		t.Fatalf("expected 1 hiding entry, got %d", len(layer.Hiding))
	}
	if layer.Hiding[0].Properties["hiding"] != true {
		t.Error("expected the hiding entry to be marked")
	}
}

func TestSnapshot_Diff_Equal(t *testing.T) {
	tester := pumpCounter(t, 0)

	a := tester.CaptureSnapshot()
	b := tester.CaptureSnapshot()
	if diff := a.Diff(b); diff != "" {
		t.Errorf("expected identical snapshots, got diff:\n%s", diff)
	}
}

func TestSnapshot_Diff_Changed(t *testing.T) {
	tester := pumpCounter(t, 0)
	before := tester.CaptureSnapshot()

	tester.Widget("counter", "value").(*ui.Text).Content = "1"
	after := tester.CaptureSnapshot()

	diff := after.Diff(before)
	if diff == "" {
		t.Fatal("expected a diff after the text changed")
	}
	if !strings.Contains(diff, "content") {
		t.Errorf("expected the new content in the diff, got:\n%s", diff)
	}
}

func TestSnapshot_UpdateAndMatchFile(t *testing.T) {
	t.Setenv(UpdateSnapshotsEnv, "")
	tester := pumpCounter(t, 5)
	path := filepath.Join(t.TempDir(), "nested", "counter.snapshot.json")

	snap := tester.CaptureSnapshot()
	if err := snap.UpdateFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("expected a trailing newline")
	}

	rec := &recordingT{}
	snap.MatchesFile(rec, path)
	if len(rec.fatals)+len(rec.errs) != 0 {
		t.Errorf("expected a match, got fatals=%v errs=%v", rec.fatals, rec.errs)
	}

	tester.Widget("counter", "value").(*ui.Text).Content = "6"
	rec = &recordingT{}
	tester.CaptureSnapshot().MatchesFile(rec, path)
	if len(rec.errs) != 1 || !strings.Contains(rec.errs[0], "snapshot mismatch") {
		t.Errorf("expected one mismatch error, got %v", rec.errs)
	}
}

func TestSnapshot_MissingFile(t *testing.T) {
	t.Setenv(UpdateSnapshotsEnv, "")
	tester := pumpCounter(t, 0)

	rec := &recordingT{}
	tester.CaptureSnapshot().MatchesFile(rec, filepath.Join(t.TempDir(), "absent.json"))
	if len(rec.fatals) != 1 || !strings.Contains(rec.fatals[0], UpdateSnapshotsEnv+"=1") {
		t.Errorf("expected a missing-file failure with update instructions, got %v", rec.fatals)
	}
}

func TestSnapshot_UpdateEnvWritesFile(t *testing.T) {
	t.Setenv(UpdateSnapshotsEnv, "1")
	tester := pumpCounter(t, 0)
	path := filepath.Join(t.TempDir(), "written.json")

	rec := &recordingT{}
	tester.CaptureSnapshot().MatchesFile(rec, path)
	if len(rec.fatals) != 0 {
		t.Fatalf("unexpected failures: %v", rec.fatals)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected the snapshot to be written: %v", err)
	}
}
