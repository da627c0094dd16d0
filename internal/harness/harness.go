package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/beaconq/internal/entity"
	"github.com/roach88/beaconq/internal/filter"
	"github.com/roach88/beaconq/internal/ontology"
	"github.com/roach88/beaconq/internal/querysql"
)

// Harness compiles the steps of one scenario.
type Harness struct {
	registry *entity.Registry
	ontology ontology.Service
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build the registry (default layout or the scenario's CUE file)
//  2. Build the in-memory ontology from the fixture file and inline terms
//  3. Compile each step, checking its expect clause
//  4. Evaluate the scenario assertions
//
// A step that fails to compile is recorded in the trace with its error code;
// it only fails the scenario if the step did not expect that error. Run
// returns an error only when the scenario itself cannot be set up.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for _, step := range scenario.Steps {
		pred, err := h.compile(ctx, step)
		event := TraceEvent{
			Step:      step.Name,
			Target:    step.Target,
			Predicate: pred.Text,
			Params:    pred.Params,
		}
		if err != nil {
			event.Error = errorCode(err)
			h.logger.Debug("step failed", "step", step.Name, "error", err)
		}
		result.AddTrace(event)

		if step.Expect != nil {
			for _, msg := range checkExpect(step, event, err) {
				result.AddError(msg)
			}
		} else if err != nil {
			result.AddError(fmt.Sprintf("step %q: %v", step.Name, err))
		}
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Scenario: scenario,
		Recompile: func(ctx context.Context, step Step) (querysql.Predicate, error) {
			return h.compile(ctx, step)
		},
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(s *Scenario) (*Harness, error) {
	cfg := entity.DefaultConfig()
	if s.Registry != "" {
		loaded, err := entity.LoadConfig(s.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to load registry: %w", err)
		}
		cfg = loaded
	}
	reg, err := entity.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	mem := ontology.NewMemory()
	if s.OntologyFile != "" {
		mem, err = ontology.LoadFixture(s.OntologyFile)
		if err != nil {
			return nil, err
		}
	}
	if s.Ontology != nil {
		for term, sets := range s.Ontology.Terms {
			if len(sets.Ancestors) > 0 {
				mem.SetAncestors(term, sets.Ancestors...)
			}
			if len(sets.Descendants) > 0 {
				mem.SetDescendants(term, sets.Descendants...)
			}
		}
	}

	return &Harness{
		registry: reg,
		ontology: mem,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}, nil
}

func (h *Harness) compile(ctx context.Context, step Step) (querysql.Predicate, error) {
	filters, err := filter.BuildAll(step.Filters)
	if err != nil {
		return querysql.Predicate{}, err
	}
	target, err := entity.ParseType(step.Target)
	if err != nil {
		return querysql.Predicate{}, err
	}
	var scope entity.Type
	if step.Scope != "" {
		scope, err = entity.ParseType(step.Scope)
		if err != nil {
			return querysql.Predicate{}, err
		}
	}

	compiler := querysql.NewCompiler(h.registry, h.ontology,
		querysql.WithLogger(h.logger),
		querysql.WithStrict(step.Strict))
	return compiler.Compile(ctx, querysql.Request{
		Filters:      filters,
		Target:       target,
		DefaultScope: scope,
		IDColumn:     step.IDColumn,
		OmitWhere:    step.OmitWhere,
	})
}

// errorCode returns the code of err. Filters rejected while decoding report
// the cause's code when it has one, so a scenario can expect e.g.
// UNKNOWN_ENTITY_TYPE for a bad scope. Errors without a code report their
// message.
func errorCode(err error) string {
	var invalid *filter.InvalidFilterError
	if errors.As(err, &invalid) {
		if code := filter.ErrorCode(invalid.Err); code != "" {
			return code
		}
	}
	if code := filter.ErrorCode(err); code != "" {
		return code
	}
	return err.Error()
}

func checkExpect(step Step, event TraceEvent, err error) []string {
	var msgs []string
	e := step.Expect

	if e.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("step %q: expected error %s, compiled %q", step.Name, e.Error, event.Predicate)}
		}
		if event.Error != e.Error {
			msgs = append(msgs, fmt.Sprintf("step %q: expected error %s, got %s", step.Name, e.Error, event.Error))
		}
		return msgs
	}

	if err != nil {
		return []string{fmt.Sprintf("step %q: unexpected error: %v", step.Name, err)}
	}
	if e.Predicate != nil && *e.Predicate != event.Predicate {
		msgs = append(msgs, fmt.Sprintf("step %q: predicate mismatch\n  Expected: %s\n  Actual:   %s",
			step.Name, *e.Predicate, event.Predicate))
	}
	if e.Predicate != nil && !slices.Equal(e.Params, event.Params) {
		msgs = append(msgs, fmt.Sprintf("step %q: params mismatch\n  Expected: %q\n  Actual:   %q",
			step.Name, e.Params, event.Params))
	}
	return msgs
}
