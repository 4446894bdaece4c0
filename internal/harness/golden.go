package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/store"
)

// Snapshot renders a result as golden-file text:
//
//	scenario: sum
//	run: test-run-default
//	status: completed
//	1 next 6
//	2 completed
//
// Build failures render the error code instead of a run.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	if result.RunID != "" {
		fmt.Fprintf(&b, "run: %s\n", result.RunID)
		fmt.Fprintf(&b, "status: %s\n", result.Status)
	}
	if result.ErrorCode != "" {
		fmt.Fprintf(&b, "error: %s\n", result.ErrorCode)
	}
	b.WriteString(engine.FormatNotifications(toNotifications(result.RunID, result.Trace)))
	return []byte(b.String())
}

func toNotifications(runID string, trace []TraceEvent) []store.Notification {
	ns := make([]store.Notification, len(trace))
	for i, ev := range trace {
		ns[i] = store.Notification{
			RunID: runID,
			Seq:   ev.Seq,
			Kind:  store.Kind(ev.Kind),
			Value: ev.Value,
			Error: ev.Error,
		}
	}
	return ns
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be executed; a snapshot
// mismatch fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
