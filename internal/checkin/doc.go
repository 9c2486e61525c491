// Package checkin implements the attendance check-in pipeline.
//
// Three intake channels produce candidate identifiers: camera QR
// decode, manual 5-digit key entry, and free-text name search. All
// three funnel through the same path:
//
//	validate → lookup → confirm → commit → undo window
//
// Validation and lookup are pure reads; nothing is written until the
// operator confirms the resolved member. After a commit a single-slot
// undo stays open for a fixed window, measured against the injected
// clock so tests can drive it deterministically.
//
// The pipeline performs no duplicate detection: repeat check-ins for
// the same account within one service are committed as-is.
package checkin
