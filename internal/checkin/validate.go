package checkin

// CodeLength is the fixed length of a personal code.
const CodeLength = 5

// ValidateCode checks that a raw identifier is a well-formed personal
// code: exactly five ASCII digits. Pure function, no lookup.
//
// Every intake channel runs its input through here before any store
// access, so malformed scans never reach the member collection.
func ValidateCode(raw string) error {
	if len(raw) != CodeLength {
		return &FormatError{Raw: raw, Reason: "must be exactly 5 digits"}
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return &FormatError{Raw: raw, Reason: "must contain only digits"}
		}
	}
	return nil
}
