package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario: seeded people, a sequence of
// operations against the pipeline and the grant engine, and
// assertions over the final state.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the
	// golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed establishes members and accounts before the first step.
	Seed Seed `yaml:"seed"`

	// Steps is the operation sequence. Each step appends one trace
	// event.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store and session state.
	Assertions []Assertion `yaml:"assertions"`
}

// Seed declares the people present before the scenario starts.
type Seed struct {
	Members []SeedMember `yaml:"members"`
}

// SeedMember is one seeded member. When Email is set a matching
// account is created too; Role defaults to teen.
type SeedMember struct {
	Name  string `yaml:"name"`
	Code  string `yaml:"code"`
	Email string `yaml:"email,omitempty"`
	Role  string `yaml:"role,omitempty"`
}

// Step operation names.
const (
	OpScan     = "scan"
	OpConfirm  = "confirm"
	OpCancel   = "cancel"
	OpAck      = "ack"
	OpUndo     = "undo"
	OpAdvance  = "advance"
	OpGrant    = "grant"
	OpActivate = "activate"
	OpRevoke   = "revoke"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpEvaluate = "evaluate"
)

// Step is one scenario operation.
//
// Which fields apply depends on Op: scan takes Code and Method,
// advance takes Seconds, grant/revoke take Member and By,
// login/activate take Email. Activate reuses the credentials the
// scenario's own grant step produced, so none appear in YAML.
type Step struct {
	Op string `yaml:"op"`

	Code    string `yaml:"code,omitempty"`
	Method  string `yaml:"method,omitempty"`
	Seconds int    `yaml:"seconds,omitempty"`
	Member  string `yaml:"member,omitempty"`
	Email   string `yaml:"email,omitempty"`
	By      string `yaml:"by,omitempty"`

	// Expect is the required outcome for this step. Empty means any
	// outcome is accepted; the trace still records what happened.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type selects the check:
	// - "attendance_count": total records equals Count
	// - "last_method": newest record's method equals Method
	// - "role": the account's persisted role equals Role
	// - "assignment_status": the member's newest assignment has Status
	// - "pipeline_state": the pipeline rests in State
	Type string `yaml:"type"`

	Count  int    `yaml:"count,omitempty"`
	Method string `yaml:"method,omitempty"`
	Email  string `yaml:"email,omitempty"`
	Role   string `yaml:"role,omitempty"`
	Member string `yaml:"member,omitempty"`
	Status string `yaml:"status,omitempty"`
	State  string `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertAttendanceCount  = "attendance_count"
	AssertLastMethod       = "last_method"
	AssertRole             = "role"
	AssertAssignmentStatus = "assignment_status"
	AssertPipelineState    = "pipeline_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var knownOps = map[string]bool{
	OpScan: true, OpConfirm: true, OpCancel: true, OpAck: true,
	OpUndo: true, OpAdvance: true, OpGrant: true, OpActivate: true,
	OpRevoke: true, OpLogin: true, OpLogout: true, OpEvaluate: true,
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	codes := map[string]bool{}
	for i, m := range s.Seed.Members {
		if m.Name == "" {
			return fmt.Errorf("seed.members[%d]: name is required", i)
		}
		if m.Code == "" {
			return fmt.Errorf("seed.members[%d]: code is required", i)
		}
		if codes[m.Code] {
			return fmt.Errorf("seed.members[%d]: duplicate code %q", i, m.Code)
		}
		codes[m.Code] = true
	}

	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		switch step.Op {
		case OpScan:
			if step.Code == "" {
				return fmt.Errorf("steps[%d]: scan requires code", i)
			}
		case OpAdvance:
			if step.Seconds <= 0 {
				return fmt.Errorf("steps[%d]: advance requires positive seconds", i)
			}
		case OpGrant, OpRevoke:
			if step.Member == "" {
				return fmt.Errorf("steps[%d]: %s requires member", i, step.Op)
			}
		case OpLogin, OpActivate:
			if step.Email == "" {
				return fmt.Errorf("steps[%d]: %s requires email", i, step.Op)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertAttendanceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertLastMethod:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for last_method", index)
		}
	case AssertRole:
		if a.Email == "" || a.Role == "" {
			return fmt.Errorf("assertions[%d]: email and role are required for role", index)
		}
	case AssertAssignmentStatus:
		if a.Member == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: member and status are required for assignment_status", index)
		}
	case AssertPipelineState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for pipeline_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
