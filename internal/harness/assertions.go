package harness

import (
	"context"
	"fmt"
)

// EvaluateAssertions checks every assertion against the final state
// and returns one message per failure. All assertions run; nothing
// fails fast.
func EvaluateAssertions(ctx context.Context, h *Harness, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if msg := evaluateAssertion(ctx, h, &a); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

func evaluateAssertion(ctx context.Context, h *Harness, a *Assertion) string {
	switch a.Type {
	case AssertAttendanceCount:
		n, err := h.st.CountAttendance(ctx)
		if err != nil {
			return fmt.Sprintf("counting attendance: %v", err)
		}
		if n != a.Count {
			return fmt.Sprintf("expected %d attendance records, found %d", a.Count, n)
		}

	case AssertLastMethod:
		records, err := h.st.ListAttendance(ctx, 1)
		if err != nil {
			return fmt.Sprintf("listing attendance: %v", err)
		}
		if len(records) == 0 {
			return "expected at least one attendance record"
		}
		if string(records[0].Method) != a.Method {
			return fmt.Sprintf("expected last method %q, got %q", a.Method, records[0].Method)
		}

	case AssertRole:
		acct, err := h.st.AccountByEmail(ctx, a.Email)
		if err != nil {
			return fmt.Sprintf("loading account: %v", err)
		}
		if acct == nil {
			return fmt.Sprintf("no account for %q", a.Email)
		}
		if string(acct.Role) != a.Role {
			return fmt.Sprintf("expected role %q for %s, got %q", a.Role, a.Email, acct.Role)
		}

	case AssertAssignmentStatus:
		memberID, ok := h.memberIDs[a.Member]
		if !ok {
			return fmt.Sprintf("unknown member %q", a.Member)
		}
		assignment, err := h.st.LatestAssignmentByMember(ctx, memberID)
		if err != nil {
			return fmt.Sprintf("loading assignment: %v", err)
		}
		if assignment == nil {
			return fmt.Sprintf("no assignment for member %q", a.Member)
		}
		if string(assignment.Status) != a.Status {
			return fmt.Sprintf("expected assignment status %q, got %q", a.Status, assignment.Status)
		}

	case AssertPipelineState:
		if got := h.pipeline.State().String(); got != a.State {
			return fmt.Sprintf("expected pipeline state %q, got %q", a.State, got)
		}
	}
	return ""
}
