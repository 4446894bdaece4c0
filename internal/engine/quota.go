package engine

import "fmt"

// DefaultMaxValues is the default limit on values recorded by one run.
// It bounds runs over infinite sources such as interval timers.
const DefaultMaxValues = 10000

// QuotaEnforcer counts the values a run has recorded and enforces a limit.
// Zero or negative limits disable the check.
type QuotaEnforcer struct {
	maxValues int
	current   int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxValues int) *QuotaEnforcer {
	return &QuotaEnforcer{maxValues: maxValues}
}

// Check increments the value counter and validates against the limit.
// Returns ValuesExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(runID string) error {
	q.current++
	if q.maxValues > 0 && q.current > q.maxValues {
		return &ValuesExceededError{RunID: runID, Values: q.current, Limit: q.maxValues}
	}
	return nil
}

// Current returns the current value count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxValues returns the limit.
func (q *QuotaEnforcer) MaxValues() int {
	return q.maxValues
}

// ValuesExceededError is returned when a run exceeds its value limit. The
// run's subscription is disposed; the pipeline itself sees no error.
type ValuesExceededError struct {
	RunID  string
	Values int
	Limit  int
}

// Error implements the error interface.
func (e *ValuesExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max values quota: %d values > %d limit",
		e.RunID, e.Values, e.Limit)
}
