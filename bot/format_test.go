package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

func TestFormatBookingDetail(t *testing.T) {
	bk := &storage.Booking{
		ID:       7,
		Start:    time.Date(2026, 9, 14, 19, 0, 0, 0, time.UTC),
		Duration: "1:30",
		Status:   storage.StatusPending,
		Reason:   "study",
	}

	got := formatBookingDetail(bk, "Reading Room", "Alex")

	for _, want := range []string{
		"Booking ID: 7",
		"Venue: Reading Room",
		"Name: Alex",
		"Start: 2026-09-14 19:00",
		"End: 2026-09-14 20:30",
		"Status: pending approval",
		"Reason: study",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("detail missing %q:\n%s", want, got)
		}
	}
}

func TestFormatBookingDetailMalformedDuration(t *testing.T) {
	bk := &storage.Booking{
		ID:       8,
		Start:    time.Date(2026, 9, 14, 19, 0, 0, 0, time.UTC),
		Duration: "whoops",
		Status:   storage.StatusConfirmed,
	}

	got := formatBookingDetail(bk, "MPSH", "Jo")
	if !strings.Contains(got, "End: 2026-09-14 19:00") {
		t.Errorf("expected a malformed duration to render a zero-length slot:\n%s", got)
	}
}
