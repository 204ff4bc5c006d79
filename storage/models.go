package storage

import "time"

// Booking status values. A booking only ever moves forward:
// pending approval -> confirmed, or any non-cancelled state -> cancelled.
const (
	StatusPending   = "pending approval"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// User represents a registered resident, keyed by their Telegram ID.
// Users are created on first /start and never deleted; only an admin
// role edit mutates the record afterwards.
type User struct {
	TelegramID int64
	Name       string
	Role       string
	CCA        string // empty when the user has no CCA affiliation
	Block      string // empty when the user has no residential block
	CreatedAt  time.Time
}

// Venue is a bookable space together with its access rule set. The
// allowed-* lists are stored JSON-encoded in the venues table.
type Venue struct {
	ID            int64
	Name          string
	AllowedRoles  []string
	AllowedCCAs   []string
	AllowedBlocks []string
}

// Booking is a reservation of a venue for a start time plus a duration.
// The duration is kept in its textual "H:MM" form, matching what the
// user entered; bookings are soft-cancelled, never deleted.
type Booking struct {
	ID              int64
	UserID          int64
	VenueID         int64
	Start           time.Time
	Duration        string
	Status          string
	Reason          string
	CalendarEventID string
	CreatedAt       time.Time
}
