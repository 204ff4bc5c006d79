package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/calendar"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/config"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// fakeStore is an in-memory storage.Store for service tests.
type fakeStore struct {
	users    map[int64]*storage.User
	venues   []storage.Venue
	bookings []*storage.Booking
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*storage.User), nextID: 1}
}

func (f *fakeStore) GetUser(id int64) (*storage.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) CreateUser(u *storage.User) error {
	copied := *u
	f.users[u.TelegramID] = &copied
	return nil
}

func (f *fakeStore) UpdateUserRoleCCA(id int64, role, cca string) error {
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Role = role
	u.CCA = cca
	return nil
}

func (f *fakeStore) UsersByRole(role string) ([]storage.User, error) {
	var out []storage.User
	for _, u := range f.users {
		if strings.EqualFold(strings.TrimSpace(u.Role), strings.TrimSpace(role)) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) AllUsers() ([]storage.User, error) {
	var out []storage.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) AllVenues() ([]storage.Venue, error) {
	return append([]storage.Venue{}, f.venues...), nil
}

func (f *fakeStore) GetVenue(id int64) (*storage.Venue, error) {
	for i := range f.venues {
		if f.venues[i].ID == id {
			copied := f.venues[i]
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) VenueIDsByName(names []string) ([]int64, error) {
	var ids []int64
	for _, v := range f.venues {
		for _, n := range names {
			if strings.EqualFold(strings.TrimSpace(v.Name), strings.TrimSpace(n)) {
				ids = append(ids, v.ID)
			}
		}
	}
	return ids, nil
}

func (f *fakeStore) SeedVenues(venues []storage.Venue) error {
	f.venues = append(f.venues, venues...)
	return nil
}

func (f *fakeStore) InsertBooking(b *storage.Booking) error {
	copied := *b
	copied.ID = f.nextID
	f.nextID++
	f.bookings = append(f.bookings, &copied)
	return nil
}

func (f *fakeStore) FindBooking(userID, venueID int64, start time.Time, duration, reason string) (*storage.Booking, error) {
	for i := len(f.bookings) - 1; i >= 0; i-- {
		b := f.bookings[i]
		if b.UserID == userID && b.VenueID == venueID && b.Start.Equal(start) && b.Duration == duration && b.Reason == reason {
			copied := *b
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetBooking(id int64) (*storage.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			copied := *b
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetBookingFor(id, userID int64, admin bool) (*storage.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id && (admin || b.UserID == userID) {
			copied := *b
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) UpdateBookingStatus(id int64, status string) error {
	for _, b := range f.bookings {
		if b.ID == id {
			b.Status = status
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) SetCalendarEventID(id int64, eventID string) error {
	for _, b := range f.bookings {
		if b.ID == id {
			b.CalendarEventID = eventID
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) ConfirmedBookings(venueID int64) ([]storage.Booking, error) {
	var out []storage.Booking
	for _, b := range f.bookings {
		if b.VenueID == venueID && b.Status == storage.StatusConfirmed {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) ConfirmedBookingsBetween(venueID int64, from, to time.Time) ([]storage.Booking, error) {
	var out []storage.Booking
	for _, b := range f.bookings {
		if b.VenueID == venueID && b.Status == storage.StatusConfirmed &&
			!b.Start.Before(from) && !b.Start.After(to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) ConfirmedBookingsForVenues(venueIDs []int64) ([]storage.Booking, error) {
	return f.byStatus(venueIDs, storage.StatusConfirmed), nil
}

func (f *fakeStore) PendingBookingsForVenues(venueIDs []int64) ([]storage.Booking, error) {
	return f.byStatus(venueIDs, storage.StatusPending), nil
}

func (f *fakeStore) byStatus(venueIDs []int64, status string) []storage.Booking {
	var out []storage.Booking
	for _, b := range f.bookings {
		for _, id := range venueIDs {
			if b.VenueID == id && b.Status == status {
				out = append(out, *b)
			}
		}
	}
	return out
}

func (f *fakeStore) ActiveBookings(userID int64, all bool) ([]storage.Booking, error) {
	var out []storage.Booking
	for _, b := range f.bookings {
		if b.Status != storage.StatusCancelled && (all || b.UserID == userID) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

// fakeCalendar records event operations.
type fakeCalendar struct {
	created []calendar.Event
	deleted []string
	nextID  int
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	f.created = append(f.created, ev)
	f.nextID++
	return fmt.Sprintf("evt-%d", f.nextID), nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeNotifier records which bookings triggered which notification.
type fakeNotifier struct {
	requested []int64
	approved  []int64
}

func (f *fakeNotifier) BookingRequested(b *storage.Booking) { f.requested = append(f.requested, b.ID) }
func (f *fakeNotifier) BookingApproved(b *storage.Booking)  { f.approved = append(f.approved, b.ID) }

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeCalendar, *fakeNotifier) {
	t.Helper()

	store := newFakeStore()
	store.venues = []storage.Venue{
		{ID: 1, Name: "Reading Room", AllowedRoles: []string{"Resident", "JCRC", "Admin"}},
		{ID: 2, Name: "Dining Hall", AllowedRoles: []string{"Resident", "JCRC", "Admin"}},
		{ID: 3, Name: "MPSH", AllowedRoles: []string{"Resident", "JCRC"}},
		{ID: 4, Name: "A Blk Lounge", AllowedRoles: []string{"Block Head"}, AllowedBlocks: []string{"A Blk"}},
	}

	cal := &fakeCalendar{}
	notif := &fakeNotifier{}
	svc := New(store, cal, notif, config.Default())
	return svc, store, cal, notif
}

func bookingStart() time.Time {
	return time.Date(2026, 9, 14, 19, 0, 0, 0, time.UTC)
}

func TestCreateGatedVenueByNonApprover(t *testing.T) {
	svc, store, cal, notif := newTestService(t)

	resident := &storage.User{TelegramID: 100, Name: "Alex", Role: "Resident"}
	store.CreateUser(resident)

	venue, _ := store.GetVenue(1)
	created, err := svc.Create(context.Background(), resident, venue, bookingStart(), "1:00", "study")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.Status != storage.StatusPending {
		t.Errorf("status = %q, want %q", created.Status, storage.StatusPending)
	}
	if created.ID == 0 {
		t.Error("expected the re-read booking to carry its assigned ID")
	}
	if len(notif.requested) != 1 || notif.requested[0] != created.ID {
		t.Errorf("expected one approver notification for booking %d, got %v", created.ID, notif.requested)
	}
	if len(cal.created) != 0 {
		t.Errorf("expected no calendar event for a pending booking, got %d", len(cal.created))
	}
}

func TestCreateGatedVenueByApprover(t *testing.T) {
	svc, store, cal, notif := newTestService(t)

	jcrc := &storage.User{TelegramID: 200, Name: "Jo", Role: "JCRC"}
	store.CreateUser(jcrc)

	venue, _ := store.GetVenue(1)
	created, err := svc.Create(context.Background(), jcrc, venue, bookingStart(), "1:00", "meeting")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.Status != storage.StatusConfirmed {
		t.Errorf("status = %q, want %q", created.Status, storage.StatusConfirmed)
	}
	if len(cal.created) != 1 {
		t.Fatalf("expected one calendar event, got %d", len(cal.created))
	}
	if len(notif.requested) != 0 {
		t.Errorf("expected no approver notification, got %v", notif.requested)
	}

	stored, _ := store.GetBooking(created.ID)
	if stored.CalendarEventID == "" {
		t.Error("expected the calendar event reference to be stored on the booking")
	}
}

func TestCreateAutoConfirmVenue(t *testing.T) {
	svc, store, cal, notif := newTestService(t)

	resident := &storage.User{TelegramID: 100, Name: "Alex", Role: "Resident"}
	store.CreateUser(resident)

	venue, _ := store.GetVenue(3) // MPSH
	created, err := svc.Create(context.Background(), resident, venue, bookingStart(), "2:00", "training")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.Status != storage.StatusConfirmed {
		t.Errorf("status = %q, want %q", created.Status, storage.StatusConfirmed)
	}
	if len(cal.created) != 1 {
		t.Errorf("expected a calendar event for the auto-confirmed booking, got %d", len(cal.created))
	}
	if len(notif.requested) != 0 {
		t.Errorf("expected no approver notification for an auto-confirm venue, got %v", notif.requested)
	}
}

func TestCreateOtherVenueDefaultsPending(t *testing.T) {
	svc, store, _, notif := newTestService(t)

	head := &storage.User{TelegramID: 300, Name: "Bo", Role: "Block Head", Block: "A Blk"}
	store.CreateUser(head)

	venue, _ := store.GetVenue(4) // A Blk Lounge
	created, err := svc.Create(context.Background(), head, venue, bookingStart(), "1:00", "meeting")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.Status != storage.StatusPending {
		t.Errorf("status = %q, want %q", created.Status, storage.StatusPending)
	}
	// The approver notification only fires for the two gated venues.
	if len(notif.requested) != 0 {
		t.Errorf("expected no approver notification for a non-gated venue, got %v", notif.requested)
	}
}

func TestApproveTwice(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	resident := &storage.User{TelegramID: 100, Name: "Alex", Role: "Resident"}
	store.CreateUser(resident)
	venue, _ := store.GetVenue(1)
	created, err := svc.Create(context.Background(), resident, venue, bookingStart(), "1:00", "study")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.Approve(context.Background(), created.ID); err != nil {
		t.Fatalf("first Approve returned error: %v", err)
	}
	if _, err := svc.Approve(context.Background(), created.ID); !errors.Is(err, ErrNotPending) {
		t.Errorf("second Approve error = %v, want ErrNotPending", err)
	}
}

func TestApproveUnknownID(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.Approve(context.Background(), 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Approve(9999) error = %v, want ErrNotFound", err)
	}
}

func TestCancelOwnershipScope(t *testing.T) {
	svc, store, cal, _ := newTestService(t)

	owner := &storage.User{TelegramID: 100, Name: "Alex", Role: "Resident"}
	store.CreateUser(owner)
	venue, _ := store.GetVenue(3)
	created, err := svc.Create(context.Background(), owner, venue, bookingStart(), "1:00", "training")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// A different non-admin user cannot cancel it: the scoped lookup
	// reads as not found.
	ok, err := svc.Cancel(context.Background(), created.ID, 555, false)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if ok {
		t.Error("expected cancel by non-owner to fail")
	}

	// The owner can.
	ok, err = svc.Cancel(context.Background(), created.ID, owner.TelegramID, false)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !ok {
		t.Error("expected cancel by owner to succeed")
	}

	stored, _ := store.GetBooking(created.ID)
	if stored.Status != storage.StatusCancelled {
		t.Errorf("status = %q, want %q", stored.Status, storage.StatusCancelled)
	}
	if len(cal.deleted) != 1 {
		t.Errorf("expected the calendar event to be deleted, got %v", cal.deleted)
	}
}

func TestCancelAsAdmin(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	owner := &storage.User{TelegramID: 100, Name: "Alex", Role: "Resident"}
	store.CreateUser(owner)
	venue, _ := store.GetVenue(1)
	created, err := svc.Create(context.Background(), owner, venue, bookingStart(), "1:00", "study")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	ok, err := svc.Cancel(context.Background(), created.ID, 1, true)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !ok {
		t.Error("expected admin cancel of a foreign booking to succeed")
	}
}

func TestAccessibleVenuesHidesDenied(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	resident := &storage.User{TelegramID: 100, Name: "Alex", Role: "Resident"}
	store.CreateUser(resident)

	venues, err := svc.AccessibleVenues(resident)
	if err != nil {
		t.Fatalf("AccessibleVenues returned error: %v", err)
	}
	for _, v := range venues {
		if v.Name == "A Blk Lounge" {
			t.Error("expected the block lounge to be hidden from a user without the block")
		}
	}
}

// TestRegisterBookApproveFlow walks the full path: registration, a
// booking on an approval-gated venue, approval, and the resulting
// notifications and calendar reference.
func TestRegisterBookApproveFlow(t *testing.T) {
	svc, store, cal, notif := newTestService(t)

	alex := &storage.User{TelegramID: 42, Name: "Alex", Role: "Resident", CCA: "No CCA"}
	if err := store.CreateUser(alex); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	venue, _ := store.GetVenue(1) // Reading Room
	created, err := svc.Create(context.Background(), alex, venue, bookingStart(), "1:00", "study")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Status != storage.StatusPending {
		t.Fatalf("status after create = %q, want %q", created.Status, storage.StatusPending)
	}
	if len(notif.requested) != 1 {
		t.Fatalf("expected an approver notification, got %v", notif.requested)
	}

	pending, err := svc.PendingApprovals()
	if err != nil {
		t.Fatalf("PendingApprovals returned error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("PendingApprovals = %v, want just booking %d", pending, created.ID)
	}

	approved, err := svc.Approve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if approved.Status != storage.StatusConfirmed {
		t.Errorf("status after approve = %q, want %q", approved.Status, storage.StatusConfirmed)
	}
	if len(notif.approved) != 1 || notif.approved[0] != created.ID {
		t.Errorf("expected an owner notification for booking %d, got %v", created.ID, notif.approved)
	}
	if len(cal.created) != 1 {
		t.Fatalf("expected one calendar event, got %d", len(cal.created))
	}

	stored, _ := store.GetBooking(created.ID)
	if stored.CalendarEventID == "" {
		t.Error("expected the approved booking to carry a calendar event reference")
	}
}
