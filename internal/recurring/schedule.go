package recurring

import (
	"time"

	"spendwise/internal/core"
)

// Urgency is the display tier of a payment countdown.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencySoon   Urgency = "soon"
	UrgencyNormal Urgency = "normal"
)

const (
	urgentWithinDays = 3
	soonWithinDays   = 7
)

// DaysUntil counts calendar days from ref to next. The time of day of ref is
// dropped, so any instant on the payment day yields 0. Overdue payments are
// negative.
func DaysUntil(next core.Date, ref time.Time) int {
	from := core.DateOf(ref)
	to := core.DateOf(next.Time)
	return int(to.Sub(from.Time).Hours() / 24)
}

// Classify buckets a countdown: (-inf,3] urgent, [4,7] soon, [8,inf) normal.
func Classify(days int) Urgency {
	switch {
	case days <= urgentWithinDays:
		return UrgencyUrgent
	case days <= soonWithinDays:
		return UrgencySoon
	default:
		return UrgencyNormal
	}
}
