package tsar

// State is a step of the trust pipeline.
//
// An archive moves through Loaded, Decoded and Verified before any of its
// payload is used. Run continues through Extracted and Executing and ends
// in Completed or Failed. An archive that fails decoding, verification or
// the role grant ends in Rejected.
type State int

const (
	StateLoaded State = iota
	StateDecoded
	StateVerified
	StateExtracted
	StateExecuting
	StateCompleted
	StateFailed
	StateRejected
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateDecoded:
		return "decoded"
	case StateVerified:
		return "verified"
	case StateExtracted:
		return "extracted"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateRejected
}
