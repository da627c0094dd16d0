package harness

// TraceEvent records one compiled step.
type TraceEvent struct {
	Step      string   `json:"step"`
	Target    string   `json:"target"`
	Predicate string   `json:"predicate"`
	Params    []string `json:"params"`
	Error     string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a compiled step to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}

// Event returns the trace event of the named step.
func (r *Result) Event(step string) (TraceEvent, bool) {
	for _, e := range r.Trace {
		if e.Step == step {
			return e, true
		}
	}
	return TraceEvent{}, false
}
