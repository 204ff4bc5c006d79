package bot

import (
	"fmt"
	"strings"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/booking"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

const displayTimeLayout = "2006-01-02 15:04"

// bookingDetail renders the standard multi-line booking card used by
// /view, /cancel, /approve and the notification messages.
func (b *Bot) bookingDetail(bk *storage.Booking) string {
	venueName := "Unknown Venue"
	if v, err := b.store.GetVenue(bk.VenueID); err == nil {
		venueName = v.Name
	}
	userName := "Unknown User"
	if u, err := b.store.GetUser(bk.UserID); err == nil {
		userName = u.Name
	}
	return formatBookingDetail(bk, venueName, userName)
}

func formatBookingDetail(bk *storage.Booking, venueName, userName string) string {
	dur, err := booking.ParseDuration(bk.Duration)
	if err != nil {
		dur = 0
	}
	end := bk.Start.Add(dur)

	return fmt.Sprintf(
		"Booking ID: %d\n"+
			"Venue: %s\n"+
			"Name: %s\n"+
			"Start: %s\n"+
			"End: %s\n"+
			"Status: %s\n"+
			"Reason: %s\n"+
			"----------------------",
		bk.ID, venueName, userName,
		bk.Start.Format(displayTimeLayout), end.Format(displayTimeLayout),
		bk.Status, bk.Reason,
	)
}

// bookingList renders a list of booking cards separated by newlines.
func (b *Bot) bookingList(bookings []storage.Booking) string {
	lines := make([]string, 0, len(bookings))
	for i := range bookings {
		lines = append(lines, b.bookingDetail(&bookings[i]))
	}
	return strings.Join(lines, "\n")
}
