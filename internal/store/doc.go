// Package store provides SQLite-backed durable storage for rollcall's
// persisted collections.
//
// The store holds four collections plus the local session:
//   - Members: enrolled people, keyed by a unique 5-digit personal code
//   - Accounts: login identities with a role and optional grant deadline
//   - Attendance Records: immutable check-in facts (insert, undo-delete only)
//   - Privilege Assignments: time-boxed usher grants with audit status
//   - Sessions: the single signed-in account for this browser/profile
//
// # Invariants enforced here
//
// Single live grant per member:
//   - InsertAssignmentIfNoneLive checks and inserts in ONE transaction,
//     closing the check-then-act race between concurrent writers.
//
// Role/deadline coupling:
//   - SetRole writes an account's role and expires_at in one UPDATE,
//     so expires_at is non-NULL exactly while role = 'tempUsher'.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - MaxOpenConns=1: Single writer, matching SQLite's write model
//
// All times are stored as INTEGER unix milliseconds and surfaced as UTC.
package store
