package session

// Phase is the selection policy that produced a question.
type Phase int

const (
	PhaseAdaptive    Phase = iota // Steady-state difficulty-banded selection
	PhaseRepetition               // Re-serving a previously missed question
	PhaseRemediation              // Serving a weak-topic question
)

const (
	// repetitionStart is the fraction of the budget after which missed
	// questions may be re-served.
	repetitionStart = 0.7

	// remediationEnd is the fraction of the budget before which weak-topic
	// questions are prioritized.
	remediationEnd = 0.3

	// bandWidth is the half-width of the difficulty band around the target.
	bandWidth = 0.3
)

// String returns the display name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseRepetition:
		return "repetition"
	case PhaseRemediation:
		return "remediation"
	default:
		return "adaptive"
	}
}
