// Package harness runs compiler conformance scenarios.
//
// A scenario fixes a registry layout and an ontology, compiles a sequence of
// filter requests, and checks each compiled predicate against expectations
// and scenario-wide assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	registry: registry.cue          # optional, relative to the scenario file
//	ontology_file: ontology.yaml    # optional, relative to the scenario file
//	ontology:                       # optional inline fixture
//	  terms:
//	    "NCIT:C3262":
//	      descendants: ["NCIT:C3262", "NCIT:C4910"]
//	steps:
//	  - name: tissue
//	    target: individuals
//	    scope: individuals
//	    filters:
//	      - id: Biosample.tissue
//	        operator: "="
//	        value: blood
//	    expect:
//	      predicate: "WHERE id IN ( ... )"
//	      params: ["blood"]
//	assertions:
//	  - type: params_balanced
//	  - type: predicate_contains
//	    step: tissue
//	    text: "INTERSECT"
//
// An expect clause may name an error code instead of a predicate:
//
//	expect:
//	  error: UNSUPPORTED_OPERATOR
//
// # Assertion Types
//
//   - params_balanced: every step binds one parameter per placeholder
//   - predicate_contains: a step's predicate contains the given text
//   - membership_count: a step's predicate has exactly N membership clauses
//   - idempotent: recompiling every step yields identical predicates
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/tissue.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
