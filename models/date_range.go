package models

import "time"

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Valid() bool {
	return r.End.After(r.Start)
}

// Overlaps reports whether r and other share at least one instant: other starts
// inside r, other ends inside r, or other spans all of r. Same three cases as the
// booking overlap SQL. Ranges that only touch at an endpoint do not overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	startsWithin := !other.Start.Before(r.Start) && other.Start.Before(r.End)
	endsWithin := other.End.After(r.Start) && !other.End.After(r.End)
	spans := !other.Start.After(r.Start) && !other.End.Before(r.End)
	return startsWithin || endsWithin || spans
}

func (b *Booking) Range() DateRange {
	return DateRange{Start: b.CheckInDate, End: b.CheckOutDate}
}
