package engine

// Phase is a globally-ordered execution stage. Every pipeline advances
// through the phases in the same order; a phase with no modules for a
// pipeline passes its input documents through unchanged.
type Phase int

const (
	PhaseInput Phase = iota
	PhaseProcess
	PhasePostProcess
	PhaseOutput
	PhaseValidation
)

// Phases lists all phases in global execution order.
var Phases = []Phase{PhaseInput, PhaseProcess, PhasePostProcess, PhaseOutput, PhaseValidation}

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseProcess:
		return "process"
	case PhasePostProcess:
		return "postprocess"
	case PhaseOutput:
		return "output"
	case PhaseValidation:
		return "validation"
	default:
		return "unknown"
	}
}
