package bot

import (
	"log"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// The bot is the booking service's Notifier: all notifications are
// plain messages over the chat transport, and delivery failures only
// log.

// BookingRequested tells every user holding the approver role about a
// new pending booking on an approval-gated venue.
func (b *Bot) BookingRequested(bk *storage.Booking) {
	approvers, err := b.store.UsersByRole(b.cfg.ApproverRole)
	if err != nil {
		log.Printf("Failed to load %s users for notification: %v", b.cfg.ApproverRole, err)
		return
	}
	if len(approvers) == 0 {
		return
	}

	detail := "New booking request (Pending Approval)!\n" + b.bookingDetail(bk)
	for _, approver := range approvers {
		b.send(approver.TelegramID, detail)
	}
}

// BookingApproved tells the booking's owner their booking was confirmed
// and broadcasts the approval to the configured group chats.
func (b *Bot) BookingApproved(bk *storage.Booking) {
	detail := b.bookingDetail(bk)

	b.send(bk.UserID, "Your booking has been approved!\n\n"+detail)

	for _, chatID := range b.cfg.GroupChatIDs {
		b.send(chatID, "Booking Approved!\n\n"+detail)
	}
}
