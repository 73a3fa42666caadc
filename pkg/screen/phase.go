package screen

// Phase is a screen instance's lifecycle phase. Phases only move forward
// from PhasePredict to PhaseUpdate, or sideways into PhaseHide.
type Phase int

const (
	// PhasePredict is the phase of instances built for prediction.
	PhasePredict Phase = iota
	// PhaseShow is the phase of a newly shown instance before its first update.
	PhaseShow
	// PhaseUpdate is the steady state.
	PhaseUpdate
	// PhaseHide is terminal; hidden instances are never revived.
	PhaseHide
)

func (p Phase) String() string {
	switch p {
	case PhasePredict:
		return "PREDICT"
	case PhaseShow:
		return "SHOW"
	case PhaseUpdate:
		return "UPDATE"
	case PhaseHide:
		return "HIDE"
	default:
		return "UNKNOWN"
	}
}
