package executor

// State tracks how far an execution got. Rejected is terminal and reachable
// from rules fetch or submission; everything else advances in order.
type State int

const (
	StateRequested State = iota
	StateRulesFetched
	StateSized
	StateSubmitted
	StateFilled
	StateRecorded
	StateReconciled
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "REQUESTED"
	case StateRulesFetched:
		return "RULES_FETCHED"
	case StateSized:
		return "SIZED"
	case StateSubmitted:
		return "SUBMITTED"
	case StateFilled:
		return "FILLED"
	case StateRecorded:
		return "RECORDED"
	case StateReconciled:
		return "RECONCILED"
	case StateRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}
