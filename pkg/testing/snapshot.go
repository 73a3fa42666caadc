package testing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/screens/pkg/screen"
	"github.com/go-drift/screens/pkg/ui"
)

// UpdateSnapshotsEnv names the environment variable that makes MatchesFile
// rewrite golden files instead of comparing against them.
const UpdateSnapshotsEnv = "SCREENS_UPDATE_SNAPSHOTS"

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures the layer stack and the widget tree of every screen.
type Snapshot struct {
	Layers []LayerNode `json:"layers"`
}

// LayerNode is one layer of the scene.
type LayerNode struct {
	Name    string  `json:"name"`
	Entries []*Node `json:"entries,omitempty"`
	Hiding  []*Node `json:"hiding,omitempty"`
}

// Node is a displayable in the serialized tree.
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"props,omitempty"`
	Children   []*Node        `json:"children,omitempty"`
}

// CaptureSnapshot captures the current scene. Screens that have never been
// updated appear without children.
func (t *ScreenTester) CaptureSnapshot() *Snapshot {
	snap := &Snapshot{}
	for _, layer := range t.scene.Layers() {
		ln := LayerNode{Name: layer}
		counter := &typeCounter{}
		for _, e := range t.scene.Entries(layer) {
			ln.Entries = append(ln.Entries, captureNode(e.Displayable, counter))
		}
		for _, d := range t.scene.Hiding(layer) {
			ln.Hiding = append(ln.Hiding, captureNode(d, counter))
		}
		snap.Layers = append(snap.Layers, ln)
	}
	return snap
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When SCREENS_UPDATE_SNAPSHOTS=1
// is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv(UpdateSnapshotsEnv) == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: %s=1 go test -run %s", path, UpdateSnapshotsEnv, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: %s=1 go test -run %s", path, diff, UpdateSnapshotsEnv, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a diff from other to this snapshot, or the empty string if
// they serialize identically.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return cmp.Diff(strings.Split(string(b), "\n"), strings.Split(string(a), "\n"))
}

// --- Internal ---

// typeCounter assigns stable IDs like "Text#0", "Text#1".
type typeCounter struct {
	counts map[string]int
}

func (c *typeCounter) next(typeName string) string {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	n := c.counts[typeName]
	c.counts[typeName] = n + 1
	return fmt.Sprintf("%s#%d", typeName, n)
}

func captureNode(d ui.Displayable, counter *typeCounter) *Node {
	typeName := typeNameOf(d)
	node := &Node{
		ID:   counter.next(typeName),
		Type: typeName,
	}
	if props := captureProperties(d); len(props) > 0 {
		node.Properties = props
	}
	for _, child := range d.Visit() {
		node.Children = append(node.Children, captureNode(child, counter))
	}
	return node
}

func typeNameOf(d ui.Displayable) string {
	t := reflect.TypeOf(d)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func captureProperties(d ui.Displayable) map[string]any {
	switch v := d.(type) {
	case *screen.Instance:
		props := map[string]any{
			"name":   strings.Join(v.Name(), " "),
			"tag":    v.Tag(),
			"phase":  v.Phase().String(),
			"zorder": v.ZOrder(),
		}
		if v.Modal() {
			props["modal"] = true
		}
		if v.Hiding() {
			props["hiding"] = true
		}
		ids := make([]string, 0, len(v.Widgets()))
		for id := range v.Widgets() {
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			slices.Sort(ids)
			props["widgets"] = ids
		}
		return props
	case *ui.Text:
		return map[string]any{"content": v.Content}
	case *ui.Button:
		props := map[string]any{"label": v.Label}
		if v.Insensitive {
			props["insensitive"] = true
		}
		return props
	case *ui.Transform:
		props := map[string]any{"id": v.ID}
		if v.Hiding {
			props["hiding"] = true
		}
		return props
	case *ui.Fixed:
		return map[string]any{"focus": v.Focus}
	}
	return nil
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	data, err := sonic.ConfigStd.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
