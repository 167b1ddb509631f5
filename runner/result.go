// Package runner drives a workflow over its records: strictly
// sequential, one outcome per record, a failure never stops the run.
// Progress goes through an Emitter so the same workflows serve both
// human terminals and machine consumers.
package runner

// Status classifies what happened to one record.
type Status int

const (
	// StatusSucceeded means every write the record needed landed.
	StatusSucceeded Status = iota
	// StatusFailed means the record was eligible but a write or a
	// required read failed. Torn two-phase writes land here too.
	StatusFailed
	// StatusIneligible means the record matched the search but no
	// operation applies. Counted, never silent.
	StatusIneligible
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusIneligible:
		return "ineligible"
	}
	return "unknown"
}

// Result is the outcome of processing one record.
type Result struct {
	ID     string
	Status Status
	Detail string
	Err    error
}

// Succeeded builds a success result.
func Succeeded(id, detail string) Result {
	return Result{ID: id, Status: StatusSucceeded, Detail: detail}
}

// Failed builds a failure result.
func Failed(id string, err error) Result {
	return Result{ID: id, Status: StatusFailed, Err: err}
}

// Ineligible builds a skip result with the reason shown to the operator.
func Ineligible(id, reason string) Result {
	return Result{ID: id, Status: StatusIneligible, Detail: reason}
}

// Stats tallies a run. Attempted counts every record the run touched,
// whatever its outcome.
type Stats struct {
	Attempted  int
	Succeeded  int
	Failed     int
	Ineligible int

	// Partial counts the subset of Failed whose two-phase write tore:
	// the child advanced but the parent did not. Operators reconcile
	// these by hand.
	Partial int
}
