package discovery

// EventType ...
type EventType int

const (
	// StepCommitted is emitted after a candidate was accepted.
	StepCommitted EventType = iota
	// StepRolledBack is emitted after the walk stepped back.
	StepRolledBack
)

// String ...
func (t EventType) String() string {
	switch t {
	case StepCommitted:
		return "StepCommitted"
	case StepRolledBack:
		return "StepRolledBack"
	default:
		return "Unknown"
	}
}

// LifecycleEvent reports a change of the accepted step. Step is a copy of the
// new accepted step.
type LifecycleEvent struct {
	Type EventType
	Step *Step
}
