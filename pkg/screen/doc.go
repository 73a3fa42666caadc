// Package screen manages retained-mode screens: named, reusable units of UI
// that are re-evaluated every interaction while keeping widget state stable
// across generations.
//
// # Core Types
//
// Definition is the static description of a screen: its callback, modal and
// zorder expressions, tag and predictability. A Registry resolves a name to
// a definition through an ordered list of variants.
//
// Instance is a live screen. Each Update runs the callback through a Builder,
// which registers widgets by id so the next generation can take their state.
// Update runs at most once per interaction.
//
// Directory is the entry point: Show, Predict, Hide, GetWidget, MarkRestarting
// and PrepareAll. It owns the Interaction context, which tracks the active
// instance and the instances updated this interaction.
//
// # Example
//
//	dir := screen.NewDirectory(screen.Options{})
//	dir.Define("greeting", func(b *screen.Builder, scope *screen.Scope) error {
//		b.Widget("label", &ui.Text{Content: "hello"})
//		return nil
//	})
//	dir.BeginInteraction()
//	if _, err := dir.Show("greeting", screen.ShowOptions{}); err != nil {
//		return err
//	}
//	label, _ := dir.GetWidget(nil, "label", "")
//
// # Hiding
//
// Hiding an instance clones it, freezes the clone, and asks each child of
// the screen's root for its own hide transition, so individual widgets can
// animate out independently. A nil result means the screen disappears at
// once.
package screen
