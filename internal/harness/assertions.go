package harness

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/store"
)

// sqlIdentifier is the accepted shape of final_state table and column
// names, which are spliced into the query text.
var sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is a failed assertion. Its message ends with the run's
// trace.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s\n", e.Type, e.Expected, e.Actual)
	if len(e.Trace) == 0 {
		return msg
	}
	return msg + "\nFull trace:\n" + indent(engine.FormatNotifications(toNotifications("", e.Trace)))
}

func indent(text string) string {
	lines := strings.SplitAfter(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Join(lines, "")
}

// AssertionContext gives assertions access to the run's store.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions checks every assertion against result and returns
// one message per failure, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			var ae *AssertionError
			if !errors.As(err, &ae) {
				err = fmt.Errorf("assertion[%d]: %w", i, err)
			}
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		if actx == nil || actx.Store == nil {
			return fmt.Errorf("final_state requires database context")
		}
		return assertFinalState(actx.Ctx, actx.Store, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// emitted returns the encoded values of the trace's next notifications.
func emitted(trace []TraceEvent) []string {
	var values []string
	for _, ev := range trace {
		if ev.Kind == string(store.KindNext) {
			values = append(values, ev.Value)
		}
	}
	return values
}

// assertTraceContains passes when some emitted value equals Value.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want := store.EncodeValue(a.Value)
	if slices.Contains(emitted(trace), want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: "value " + want,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder passes when Values is a subsequence of the emitted
// values. Other values may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	want := encodeAll(a.Values)
	matched := 0
	for _, v := range emitted(trace) {
		if matched == len(want) {
			break
		}
		if v == want[matched] {
			matched++
		}
	}
	if matched == len(want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("values in order: %v", want),
		Actual:   fmt.Sprintf("missing %s after %v", want[matched], want[:matched]),
		Trace:    trace,
	}
}

// assertTraceCount passes when exactly Count notifications have Kind
// (default next). With a Value, only next notifications carrying it count.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	kind, what := a.Kind, a.Kind
	if kind == "" {
		kind, what = string(store.KindNext), string(store.KindNext)
	}
	match := func(ev TraceEvent) bool { return ev.Kind == kind }
	if a.Value != nil {
		want := store.EncodeValue(a.Value)
		what = kind + " " + want
		match = func(ev TraceEvent) bool { return ev.Kind == kind && ev.Value == want }
	}

	count := 0
	for _, ev := range trace {
		if match(ev) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
		Actual:   fmt.Sprintf("%d occurrences", count),
		Trace:    trace,
	}
}

// assertFinalState passes when exactly one row of Table matches Where and
// that row holds every column in Expect. Other columns are ignored.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	row, columns, err := selectOne(ctx, st, a)
	if err != nil {
		return err
	}
	for _, col := range slices.Sorted(maps.Keys(a.Expect)) {
		want := a.Expect[col]
		got, ok := row[col]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", col),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", col, columns),
			}
		}
		if !stateValuesEqual(want, got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", col, want, want),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", col, got, got),
			}
		}
	}
	return nil
}

// selectOne reads the single row of a.Table matching a.Where.
func selectOne(ctx context.Context, st *store.Store, a Assertion) (map[string]any, []string, error) {
	if a.Table == "" {
		return nil, nil, fmt.Errorf("final_state assertion requires table name")
	}
	if !sqlIdentifier.MatchString(a.Table) {
		return nil, nil, fmt.Errorf("invalid table name %q: must match pattern %s", a.Table, sqlIdentifier)
	}
	where, args, err := buildWhereClause(a.Where)
	if err != nil {
		return nil, nil, err
	}

	query := "SELECT * FROM " + a.Table
	if where != "" {
		query += " WHERE " + where
	}
	rows, err := st.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, &AssertionError{
			Type:     AssertFinalState,
			Expected: "query table " + a.Table,
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}
	if !rows.Next() {
		return nil, nil, &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", a.Table, describeWhere(a.Where)),
			Actual:   "row not found",
		}
	}
	cells := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, nil, fmt.Errorf("scan row: %w", err)
	}
	if rows.Next() {
		return nil, nil, &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", a.Table, describeWhere(a.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		row[col] = cells[i]
	}
	return row, columns, nil
}

// buildWhereClause returns a parameterised conjunction over where, with
// columns in sorted order.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	var b strings.Builder
	args := make([]any, 0, len(where))
	for i, col := range slices.Sorted(maps.Keys(where)) {
		if !sqlIdentifier.MatchString(col) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", col, sqlIdentifier)
		}
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(col + " = ?")
		args = append(args, sqlValue(where[col]))
	}
	return b.String(), args, nil
}

// sqlValue binds lists and maps as the canonical JSON the store writes.
func sqlValue(v any) any {
	switch v.(type) {
	case nil, string, int, int64, bool, float64:
		return v
	}
	return store.EncodeValue(v)
}

func describeWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, col := range slices.Sorted(maps.Keys(where)) {
		parts = append(parts, fmt.Sprintf("%s=%v", col, where[col]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares a YAML expectation with a SQLite cell. SQLite
// yields integers as int64, text as string or []byte and booleans as
// integers; lists and maps compare as canonical JSON.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case int:
		return actual == int64(exp)
	case float64:
		if n, ok := actual.(int64); ok {
			return exp == float64(n)
		}
		return actual == exp
	case bool:
		if n, ok := actual.(int64); ok {
			return exp == (n != 0)
		}
		return actual == exp
	case []any, map[string]any:
		return actual == store.EncodeValue(exp)
	case string, int64:
		return actual == expected
	}
	return reflect.DeepEqual(expected, actual)
}
