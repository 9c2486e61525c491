package record

import "time"

// Member is a person tracked for attendance, identified by a unique
// 5-digit personal code. Members are created by administrative
// enrollment and referenced by attendance history.
type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Area         string `json:"area,omitempty"`
	GuardianName string `json:"guardian_name,omitempty"`
	BirthYear    int    `json:"birth_year,omitempty"`
	PersonalCode string `json:"personal_code"`
}

// Role is the set of access levels an account can hold.
type Role string

const (
	RoleGuest     Role = "guest"
	RoleTeen      Role = "teen"
	RoleUsher     Role = "usher"
	RoleAdmin     Role = "admin"
	RoleTempUsher Role = "tempUsher"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleTeen, RoleUsher, RoleAdmin, RoleTempUsher:
		return true
	}
	return false
}

// Account is a login identity, one-to-one with a Member when the member
// self-registers (linked through PersonalCode).
//
// INVARIANT: ExpiresAt is non-nil if and only if Role == RoleTempUsher.
// The store enforces this by writing role and expiry in a single update.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Password     string     `json:"password"` // opaque, compared by exact match
	Role         Role       `json:"role"`
	PersonalCode string     `json:"personal_code,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Method identifies the intake channel that produced a check-in.
type Method string

const (
	MethodQRScan      Method = "QR Scan"
	MethodKeyEntry    Method = "BOL-Key Entry"
	MethodManual      Method = "Manual Check-in"
	MethodSmartSearch Method = "Smart Search"
)

// Valid reports whether m is one of the known intake methods.
func (m Method) Valid() bool {
	switch m {
	case MethodQRScan, MethodKeyEntry, MethodManual, MethodSmartSearch:
		return true
	}
	return false
}

// AttendanceRecord is an immutable check-in fact. Records are created
// only by a successful pipeline commit and deleted only by the
// pipeline's undo within its window.
type AttendanceRecord struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Method    Method    `json:"method"`
	Service   string    `json:"service"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// AssignmentStatus is the lifecycle state of a privilege assignment.
// Transition to revoked is irreversible. Expiry is inferred from
// ExpiresAt; the status field is left untouched for audit.
type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "active"
	AssignmentRevoked AssignmentStatus = "revoked"
)

// Credentials are the generated one-time login pair for a grant.
// Uniqueness is best-effort, not cryptographically guaranteed.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PrivilegeAssignment is a time-boxed elevation of a member's account
// to usher privileges.
//
// INVARIANT: at most one live assignment (active and unexpired) per
// MemberID at any time, enforced by the store's conditional insert.
type PrivilegeAssignment struct {
	ID          string           `json:"id"`
	MemberID    string           `json:"member_id"`
	MemberEmail string           `json:"member_email"`
	MemberName  string           `json:"member_name"`
	Credentials Credentials      `json:"credentials"`
	AssignedBy  string           `json:"assigned_by"`
	AssignedAt  time.Time        `json:"assigned_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Status      AssignmentStatus `json:"status"`
}

// Live reports whether the assignment is active and has not crossed
// its deadline at the given instant.
func (a PrivilegeAssignment) Live(now time.Time) bool {
	return a.Status == AssignmentActive && now.Before(a.ExpiresAt)
}
