package store

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further notifications can be recorded.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Kind is the notification kind.
type Kind string

const (
	KindNext      Kind = "next"
	KindError     Kind = "error"
	KindCompleted Kind = "completed"
)

// Run is one execution of a compiled fragment.
type Run struct {
	ID            string
	Workflow      string // document path or name the fragment was compiled from
	FragmentHash  string // ir.Hash of the compiled fragment
	Status        Status
	Error         string
	LastSeq       int64
	EngineVersion string
}

// Notification is one observed event of a run, stamped with a logical seq.
type Notification struct {
	RunID string
	Seq   int64
	Kind  Kind
	Value string // canonical JSON; "null" for error and completed
	Error string
}
