package launch

// Status is the label shown next to a launch title.
type Status string

const (
	// StatusFailed is an explicit failure of a launch that is not upcoming.
	StatusFailed Status = "Failed"

	// StatusSuccess is an explicit success.
	StatusSuccess Status = "Success"

	// StatusUpcoming is a launch that has not happened yet.
	StatusUpcoming Status = "Upcoming"

	// StatusTBD is used when the API gives no usable outcome.
	StatusTBD Status = "TBD"
)

// StatusOf derives the status label. Precedence: explicit failure,
// then explicit success, then upcoming, then unknown.
func StatusOf(l Launch) Status {
	switch {
	case isFalse(l.Success) && isFalse(l.Upcoming):
		return StatusFailed
	case isTrue(l.Success):
		return StatusSuccess
	case isTrue(l.Upcoming):
		return StatusUpcoming
	default:
		return StatusTBD
	}
}

func isTrue(b *bool) bool  { return b != nil && *b }
func isFalse(b *bool) bool { return b != nil && !*b }
