package booking

import (
	"time"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// Bookings occupy half-open intervals [start, start+duration), so a
// proposal beginning exactly when another booking ends does not conflict.

// startConflicts reports whether the proposed start falls inside any of
// the given confirmed bookings.
func startConflicts(confirmed []storage.Booking, proposed time.Time) bool {
	for _, b := range confirmed {
		end := b.Start.Add(parseDurationLoose(b.Duration))
		if !proposed.Before(b.Start) && proposed.Before(end) {
			return true
		}
	}
	return false
}

// rangeConflicts reports whether [proposedStart, proposedStart+duration)
// overlaps any of the given confirmed bookings.
func rangeConflicts(confirmed []storage.Booking, proposedStart time.Time, duration time.Duration) bool {
	proposedEnd := proposedStart.Add(duration)
	for _, b := range confirmed {
		existingEnd := b.Start.Add(parseDurationLoose(b.Duration))
		if proposedStart.Before(existingEnd) && proposedEnd.After(b.Start) {
			return true
		}
	}
	return false
}
