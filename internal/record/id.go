package record

import "github.com/google/uuid"

// NewID returns a time-sortable UUIDv7 string for use as a record ID.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs sort
// by creation time. Helpful when eyeballing raw tables.
//
// Panics if UUID generation fails (should never happen in practice).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
