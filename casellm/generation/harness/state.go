package harness

// State is the harness lifecycle position. CLOSED and FAILED are terminal.
type State int

const (
	StateStart State = iota
	StateLoading
	StatePriming
	StateInteractive
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateLoading:
		return "LOADING"
	case StatePriming:
		return "PRIMING"
	case StateInteractive:
		return "INTERACTIVE"
	case StateClosed:
		return "CLOSED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}
