package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no matching row exists.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for users, venues and bookings.
type Store interface {
	// GetUser returns the user with the given Telegram ID, or ErrNotFound.
	GetUser(telegramID int64) (*User, error)

	// CreateUser inserts a newly registered user.
	CreateUser(u *User) error

	// UpdateUserRoleCCA sets a user's role and CCA affiliation.
	UpdateUserRoleCCA(telegramID int64, role, cca string) error

	// UsersByRole returns all users holding the given role
	// (case-insensitive).
	UsersByRole(role string) ([]User, error)

	// AllUsers returns every registered user.
	AllUsers() ([]User, error)

	// AllVenues returns every venue with its access rules.
	AllVenues() ([]Venue, error)

	// GetVenue returns the venue with the given ID, or ErrNotFound.
	GetVenue(venueID int64) (*Venue, error)

	// VenueIDsByName returns the IDs of venues whose names match any of
	// the given names, compared case-insensitively.
	VenueIDsByName(names []string) ([]int64, error)

	// SeedVenues upserts venues by name: new venues are inserted and
	// existing ones have their access rules replaced by the seed's.
	SeedVenues(venues []Venue) error

	// InsertBooking persists a new booking.
	InsertBooking(b *Booking) error

	// FindBooking re-reads a just-inserted booking by its natural key to
	// obtain the assigned booking ID.
	FindBooking(userID, venueID int64, start time.Time, duration, reason string) (*Booking, error)

	// GetBooking returns the booking with the given ID, or ErrNotFound.
	GetBooking(bookingID int64) (*Booking, error)

	// GetBookingFor returns the booking with the given ID scoped to the
	// requesting user; admins see all bookings. Returns ErrNotFound for
	// bookings the user does not own.
	GetBookingFor(bookingID, userID int64, admin bool) (*Booking, error)

	// UpdateBookingStatus sets a booking's status.
	UpdateBookingStatus(bookingID int64, status string) error

	// SetCalendarEventID records the external calendar event reference.
	SetCalendarEventID(bookingID int64, eventID string) error

	// ConfirmedBookings returns all confirmed bookings for a venue.
	ConfirmedBookings(venueID int64) ([]Booking, error)

	// ConfirmedBookingsBetween returns confirmed bookings for a venue
	// whose start falls within [from, to].
	ConfirmedBookingsBetween(venueID int64, from, to time.Time) ([]Booking, error)

	// ConfirmedBookingsForVenues returns confirmed bookings across a set
	// of venues.
	ConfirmedBookingsForVenues(venueIDs []int64) ([]Booking, error)

	// PendingBookingsForVenues returns bookings awaiting approval across
	// a set of venues.
	PendingBookingsForVenues(venueIDs []int64) ([]Booking, error)

	// ActiveBookings returns all non-cancelled bookings for a user, or
	// for everyone when all is true.
	ActiveBookings(userID int64, all bool) ([]Booking, error)

	// Close releases the underlying database handle.
	Close() error
}
