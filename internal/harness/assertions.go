package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/beaconq/internal/querysql"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		if event.Error != "" {
			fmt.Fprintf(&buf, "  [%d] %s: error %s\n", i+1, event.Step, event.Error)
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s: %s %q\n", i+1, event.Step, event.Predicate, event.Params)
	}

	return buf.String()
}

// AssertionContext carries what assertions need beyond the trace.
type AssertionContext struct {
	Ctx      context.Context
	Scenario *Scenario

	// Recompile compiles a step again (idempotent).
	Recompile func(ctx context.Context, step Step) (querysql.Predicate, error)
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertParamsBalanced:
			err = assertParamsBalanced(result.Trace)
		case AssertPredicateContains:
			err = assertPredicateContains(result, a)
		case AssertMembershipCount:
			err = assertMembershipCount(result, a)
		case AssertIdempotent:
			err = assertIdempotent(result, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

// assertParamsBalanced checks that every successful step binds one parameter
// per placeholder.
func assertParamsBalanced(trace []TraceEvent) error {
	for _, event := range trace {
		if event.Error != "" {
			continue
		}
		placeholders := strings.Count(event.Predicate, "?")
		if placeholders != len(event.Params) {
			return &AssertionError{
				Type:     AssertParamsBalanced,
				Expected: fmt.Sprintf("step %s: %d params", event.Step, placeholders),
				Actual:   fmt.Sprintf("%d params", len(event.Params)),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertPredicateContains(result *Result, a Assertion) error {
	event, ok := result.Event(a.Step)
	if !ok {
		return &AssertionError{
			Type:     AssertPredicateContains,
			Expected: fmt.Sprintf("step %s in trace", a.Step),
			Actual:   "not found in trace",
			Trace:    result.Trace,
		}
	}
	if !strings.Contains(event.Predicate, a.Text) {
		return &AssertionError{
			Type:     AssertPredicateContains,
			Expected: fmt.Sprintf("step %s predicate containing %q", a.Step, a.Text),
			Actual:   event.Predicate,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertMembershipCount counts "IN ( " sub-query clauses; term lists
// ("IN (?") are not counted.
func assertMembershipCount(result *Result, a Assertion) error {
	event, ok := result.Event(a.Step)
	if !ok {
		return &AssertionError{
			Type:     AssertMembershipCount,
			Expected: fmt.Sprintf("step %s in trace", a.Step),
			Actual:   "not found in trace",
			Trace:    result.Trace,
		}
	}
	count := strings.Count(event.Predicate, " IN ( ")
	if count != a.Count {
		return &AssertionError{
			Type:     AssertMembershipCount,
			Expected: fmt.Sprintf("step %s with %d membership clauses", a.Step, a.Count),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertIdempotent recompiles every step and compares with the trace.
func assertIdempotent(result *Result, actx *AssertionContext) error {
	if actx == nil || actx.Recompile == nil || actx.Scenario == nil {
		return fmt.Errorf("idempotent: no compiler available")
	}
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	for i, step := range actx.Scenario.Steps {
		if i >= len(result.Trace) {
			break
		}
		first := result.Trace[i]
		again, err := actx.Recompile(ctx, step)
		if (err != nil) != (first.Error != "") {
			return &AssertionError{
				Type:     AssertIdempotent,
				Expected: fmt.Sprintf("step %s to fail the same way twice", step.Name),
				Actual:   fmt.Sprintf("first error %q, second error %v", first.Error, err),
				Trace:    result.Trace,
			}
		}
		if again.Text != first.Predicate || !slices.Equal(again.Params, first.Params) {
			return &AssertionError{
				Type:     AssertIdempotent,
				Expected: fmt.Sprintf("step %s: %s %q", step.Name, first.Predicate, first.Params),
				Actual:   fmt.Sprintf("%s %q", again.Text, again.Params),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}
