package harness

// TraceEvent records one executed step: the operation, what came of
// it, and the pipeline state afterwards. Identifiers and generated
// credentials are deliberately absent so traces stay byte-stable.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Op      string `json:"op"`
	Outcome string `json:"outcome"`
	State   string `json:"state"`
	Role    string `json:"role,omitempty"`
}

// Step outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeRejectedFormat = "rejected:format"
	OutcomeRejectedLookup = "rejected:not-found"
	OutcomeSkipped        = "skipped:no-account"
	OutcomeUndone         = "undone"
	OutcomeNoop           = "noop"
	OutcomeConflict       = "conflict"
	OutcomeMismatch       = "mismatch"
	OutcomeExpired        = "expired"
	OutcomeError          = "error"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists expect and assertion failures. Empty when Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}}
}

// AddError records a failure and flips Pass.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddEvent appends a trace event with the next sequence number.
func (r *Result) AddEvent(op, outcome, state, role string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     len(r.Trace),
		Op:      op,
		Outcome: outcome,
		State:   state,
		Role:    role,
	})
}
