package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/calendar"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/config"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// ErrNotPending is returned by Approve when the booking exists but is
// not awaiting approval (already confirmed or cancelled).
var ErrNotPending = errors.New("booking is not pending approval")

// Notifier delivers booking notifications over the chat transport.
// Implementations log delivery failures; nothing is surfaced to callers.
type Notifier interface {
	// BookingRequested tells every approver about a new pending booking.
	BookingRequested(b *storage.Booking)

	// BookingApproved tells the booking's owner and the configured group
	// chats that the booking was confirmed.
	BookingApproved(b *storage.Booking)
}

// Service implements the booking lifecycle: creation with the correct
// initial status, cancellation, and the approval workflow for gated
// venues. Calendar writes and notifications are fire-and-forget.
type Service struct {
	store    storage.Store
	cal      calendar.Service
	notifier Notifier
	cfg      *config.Config
}

// New creates a booking service.
func New(store storage.Store, cal calendar.Service, notifier Notifier, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		cal:      cal,
		notifier: notifier,
		cfg:      cfg,
	}
}

// AccessibleVenues returns the venues the user is allowed to book.
func (s *Service) AccessibleVenues(user *storage.User) ([]storage.Venue, error) {
	venues, err := s.store.AllVenues()
	if err != nil {
		return nil, fmt.Errorf("failed to load venues: %w", err)
	}

	var accessible []storage.Venue
	for i := range venues {
		if CanAccess(user, &venues[i]) {
			accessible = append(accessible, venues[i])
		}
	}
	return accessible, nil
}

// StartConflicts reports whether the proposed start time falls inside an
// existing confirmed booking for the venue.
func (s *Service) StartConflicts(venueID int64, proposed time.Time) (bool, error) {
	confirmed, err := s.store.ConfirmedBookings(venueID)
	if err != nil {
		return false, fmt.Errorf("failed to load confirmed bookings: %w", err)
	}
	return startConflicts(confirmed, proposed), nil
}

// RangeConflicts reports whether the proposed interval overlaps an
// existing confirmed booking for the venue.
func (s *Service) RangeConflicts(venueID int64, start time.Time, duration time.Duration) (bool, error) {
	confirmed, err := s.store.ConfirmedBookings(venueID)
	if err != nil {
		return false, fmt.Errorf("failed to load confirmed bookings: %w", err)
	}
	return rangeConflicts(confirmed, start, duration), nil
}

// UpcomingConfirmed returns the venue's confirmed bookings starting
// within the given number of days from now.
func (s *Service) UpcomingConfirmed(venueID int64, now time.Time, days int) ([]storage.Booking, error) {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, days).Add(24*time.Hour - time.Second)
	return s.store.ConfirmedBookingsBetween(venueID, from, to)
}

// InitialStatus determines the status a new booking starts in. The two
// approval-gated venues default to pending approval unless the requester
// holds the approver role; the auto-confirm venues are always confirmed;
// everything else starts pending.
func (s *Service) InitialStatus(venueName, role string) string {
	switch {
	case s.cfg.IsApprovalGated(venueName):
		if strings.EqualFold(strings.TrimSpace(role), s.cfg.ApproverRole) {
			return storage.StatusConfirmed
		}
		return storage.StatusPending
	case s.cfg.IsAutoConfirm(venueName):
		return storage.StatusConfirmed
	default:
		return storage.StatusPending
	}
}

// Create persists a new booking and fires the side effects its status
// calls for: a calendar event for confirmed bookings, an approver
// notification for pending bookings on gated venues. Side-effect
// failures are logged and never roll back the booking.
func (s *Service) Create(ctx context.Context, user *storage.User, venue *storage.Venue, start time.Time, durationText, reason string) (*storage.Booking, error) {
	status := s.InitialStatus(venue.Name, user.Role)

	b := &storage.Booking{
		UserID:   user.TelegramID,
		VenueID:  venue.ID,
		Start:    start,
		Duration: durationText,
		Status:   status,
		Reason:   reason,
	}
	if err := s.store.InsertBooking(b); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	// Re-read to pick up the assigned booking ID.
	created, err := s.store.FindBooking(user.TelegramID, venue.ID, start, durationText, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to read back new booking: %w", err)
	}

	if created.Status == storage.StatusConfirmed {
		s.createCalendarEvent(ctx, created, venue)
	}
	if created.Status == storage.StatusPending && s.cfg.IsApprovalGated(venue.Name) {
		s.notifier.BookingRequested(created)
	}

	return created, nil
}

// Cancel soft-cancels a booking. Non-admin callers can only cancel their
// own bookings; the ownership filter lives in the lookup, so a foreign
// booking simply reads as not found. Returns false when nothing matched.
func (s *Service) Cancel(ctx context.Context, bookingID, userID int64, isAdmin bool) (bool, error) {
	b, err := s.store.GetBookingFor(bookingID, userID, isAdmin)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up booking %d: %w", bookingID, err)
	}

	if err := s.store.UpdateBookingStatus(b.ID, storage.StatusCancelled); err != nil {
		return false, fmt.Errorf("failed to cancel booking %d: %w", b.ID, err)
	}

	if b.CalendarEventID != "" {
		if err := s.cal.DeleteEvent(ctx, b.CalendarEventID); err != nil {
			log.Printf("Failed to remove calendar event %s for booking %d: %v", b.CalendarEventID, b.ID, err)
		}
	}
	return true, nil
}

// PendingApprovals lists bookings awaiting approval on the gated venues.
func (s *Service) PendingApprovals() ([]storage.Booking, error) {
	venueIDs, err := s.store.VenueIDsByName(s.cfg.ApprovalGatedVenues)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gated venues: %w", err)
	}
	return s.store.PendingBookingsForVenues(venueIDs)
}

// Approve transitions a pending booking to confirmed, creates its
// calendar event if none exists, and notifies the owner plus the group
// broadcast chats. Returns storage.ErrNotFound if the ID is unknown and
// ErrNotPending if the booking is not awaiting approval.
func (s *Service) Approve(ctx context.Context, bookingID int64) (*storage.Booking, error) {
	b, err := s.store.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != storage.StatusPending {
		return nil, ErrNotPending
	}

	if err := s.store.UpdateBookingStatus(b.ID, storage.StatusConfirmed); err != nil {
		return nil, fmt.Errorf("failed to confirm booking %d: %w", b.ID, err)
	}
	b.Status = storage.StatusConfirmed

	if b.CalendarEventID == "" {
		venue, err := s.store.GetVenue(b.VenueID)
		if err != nil {
			log.Printf("Failed to load venue %d for booking %d: %v", b.VenueID, b.ID, err)
		} else {
			s.createCalendarEvent(ctx, b, venue)
		}
	}

	s.notifier.BookingApproved(b)
	return b, nil
}

// createCalendarEvent writes the event for a confirmed booking and
// records the returned reference. Best-effort: failures only log.
func (s *Service) createCalendarEvent(ctx context.Context, b *storage.Booking, venue *storage.Venue) {
	ev := calendar.Event{
		Summary:  fmt.Sprintf("%s: %s", venue.Name, orDefault(b.Reason, "No Reason Provided")),
		Location: venue.Name,
		Start:    b.Start,
		End:      b.Start.Add(parseDurationLoose(b.Duration)),
		TimeZone: s.cfg.Location.String(),
		ColorID:  s.cfg.ColorFor(venue.Name),
	}

	owner, err := s.store.GetUser(b.UserID)
	if err != nil {
		log.Printf("Failed to load user %d for calendar event: %v", b.UserID, err)
		ev.Description = "Booked by: Unknown User"
	} else {
		ev.Description = describeOwner(owner)
	}

	eventID, err := s.cal.CreateEvent(ctx, ev)
	if err != nil {
		log.Printf("Failed to create calendar event for booking %d: %v", b.ID, err)
		return
	}
	if eventID == "" {
		return
	}
	if err := s.store.SetCalendarEventID(b.ID, eventID); err != nil {
		log.Printf("Failed to record calendar event %s on booking %d: %v", eventID, b.ID, err)
		return
	}
	b.CalendarEventID = eventID
}

// describeOwner renders the event description line. Residents get just
// name and block; other roles include the role and CCA.
func describeOwner(u *storage.User) string {
	desc := "Booked by: " + u.Name
	if !strings.EqualFold(strings.TrimSpace(u.Role), "Resident") {
		desc += fmt.Sprintf(", (%s, %s)", u.Role, orDefault(u.CCA, "No CCA"))
	}
	desc += " from " + orDefault(u.Block, "No Block")
	return desc
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
