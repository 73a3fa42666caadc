// Package testing provides a harness for driving screens through the
// interaction loop in tests.
//
// # Quick Start
//
// Create a tester, define and show a screen, then pump a frame:
//
//	func TestInventory(t *testing.T) {
//	    tester := screentest.NewScreenTesterWithT(t)
//	    tester.Define("inventory", func(b *screen.Builder, scope *screen.Scope) error {
//	        b.Widget("title", &ui.Text{Content: "Bag"})
//	        return nil
//	    })
//	    tester.Show("inventory", screen.ShowOptions{})
//	    tester.Pump()
//
//	    if !tester.Find(screentest.ByText("Bag")).Exists() {
//	        t.Error("expected title text")
//	    }
//	}
//
// # Frames
//
// Screens update at most once per interaction. BeginFrame ends the current
// interaction, advances the fake clock by FrameDuration and starts the next
// one. PumpAndSettle repeats frames until every hide transition has
// finished.
//
// # Snapshot Testing
//
// Capture and compare the layer stack:
//
//	snapshot := tester.CaptureSnapshot()
//	snapshot.MatchesFile(t, "testdata/inventory.snapshot.json")
//
// Update snapshots with:
//
//	SCREENS_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import screentest "github.com/go-drift/screens/pkg/testing"
package testing
