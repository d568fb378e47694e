package supervise

// Verdict is the outcome of one liveness check.
type Verdict int

const (
	// Continue keeps the current child running or draining
	Continue Verdict = iota

	// Restart means the child terminated abnormally and a new one was
	// spawned (or the spawn attempt failed and will be accounted next tick)
	Restart

	// Exited means the child exited with status 0; supervision ends
	Exited

	// AbendLimit means the abend budget is exhausted; supervision ends
	AbendLimit
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Restart:
		return "restart"
	case Exited:
		return "exited"
	case AbendLimit:
		return "abend-limit"
	default:
		return "unknown"
	}
}

// Done reports whether the verdict ends supervision.
func (v Verdict) Done() bool {
	return v == Exited || v == AbendLimit
}
