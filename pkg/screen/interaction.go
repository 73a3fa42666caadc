package screen

import (
	"github.com/go-drift/screens/pkg/ui"
)

// Interaction is the state scoped to one interaction (frame): the instance
// whose callback is currently running, the instances already updated, and
// pending redraws. A Directory owns one and resets it in BeginInteraction.
type Interaction struct {
	active      *Instance
	updated     map[*Instance]struct{}
	profileOnce bool
	redraws     *ui.RedrawQueue
}

func newInteraction() *Interaction {
	return &Interaction{
		updated: make(map[*Instance]struct{}),
		redraws: ui.NewRedrawQueue(),
	}
}

// Active returns the instance whose callback or event handler is running.
func (ic *Interaction) Active() *Instance {
	return ic.active
}

// Redraws returns the redraw queue for this interaction.
func (ic *Interaction) Redraws() *ui.RedrawQueue {
	return ic.redraws
}

// ProfileRequested reports whether a one-shot profile was requested.
func (ic *Interaction) ProfileRequested() bool {
	return ic.profileOnce
}

// Updated reports whether s has already been updated this interaction.
func (ic *Interaction) Updated(s *Instance) bool {
	_, ok := ic.updated[s]
	return ok
}

func (ic *Interaction) markUpdated(s *Instance) {
	ic.updated[s] = struct{}{}
}

// enter makes s the active instance and returns the one it replaced.
func (ic *Interaction) enter(s *Instance) *Instance {
	prev := ic.active
	ic.active = s
	return prev
}

func (ic *Interaction) leave(prev *Instance) {
	ic.active = prev
}

func (ic *Interaction) reset() {
	clear(ic.updated)
	ic.profileOnce = false
	ic.active = nil
}
