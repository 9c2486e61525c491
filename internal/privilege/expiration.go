package privilege

import "time"

// Default grant deadline: the next noon after assignment.
const (
	DefaultExpiryHour   = 12
	DefaultExpiryMinute = 0
)

// NextExpiry returns the next occurrence of hour:minute after now, in
// now's location. A grant made before the mark expires today at the
// mark; a grant made at or after it expires tomorrow.
func NextExpiry(now time.Time, hour, minute int) time.Time {
	mark := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(mark) {
		mark = mark.AddDate(0, 0, 1)
	}
	return mark
}
