package model

// Outcome tags the result of a registration operation for the request layer.
type Outcome string

const (
	OutcomeRegistered        Outcome = "registered"
	OutcomeCancelled         Outcome = "cancelled"
	OutcomeAlreadyRegistered Outcome = "already_registered"
	OutcomeRunFull           Outcome = "run_full"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeNotRegistered     Outcome = "not_registered"
	OutcomeError             Outcome = "error"
)

// Informational reports whether the outcome is a normal business answer
// rather than a failure of the system.
func (o Outcome) Informational() bool {
	switch o {
	case OutcomeRegistered, OutcomeCancelled, OutcomeAlreadyRegistered,
		OutcomeRunFull, OutcomeNotRegistered:
		return true
	}
	return false
}
