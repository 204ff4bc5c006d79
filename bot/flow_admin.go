package bot

import (
	"errors"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/booking"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// handleCancelCommand lists the caller's active bookings (all bookings
// for admins) and asks for the ID to cancel.
func (b *Bot) handleCancelCommand(message *tgbotapi.Message) {
	user := b.user(message.From.ID)
	if user == nil {
		b.send(message.Chat.ID, "Please /start first to register.")
		return
	}

	isAdmin := strings.EqualFold(strings.TrimSpace(user.Role), b.cfg.AdminRole)
	bookings, err := b.store.ActiveBookings(user.TelegramID, isAdmin)
	if err != nil {
		log.Printf("Error listing bookings for %d: %v", user.TelegramID, err)
		b.send(user.TelegramID, "Could not load bookings, please try again later.")
		return
	}
	if len(bookings) == 0 {
		b.send(user.TelegramID, "You have no active bookings to cancel. Press /start to restart.")
		return
	}

	b.sessions.Begin(user.TelegramID, StageAwaitingCancelID)
	b.send(user.TelegramID, b.bookingList(bookings)+"\nPlease enter the Booking ID to cancel:")
}

// handleCancelIDInput cancels the chosen booking. Ownership is enforced
// by the lookup: non-admins get "not found" for bookings they do not
// own.
func (b *Bot) handleCancelIDInput(message *tgbotapi.Message, sess *Session) {
	userID := message.From.ID
	defer b.sessions.Delete(userID)

	bookingID, err := strconv.ParseInt(strings.TrimSpace(message.Text), 10, 64)
	if err != nil {
		b.send(userID, "Invalid Booking ID. Press /start to restart.")
		return
	}

	user := b.user(userID)
	isAdmin := user != nil && strings.EqualFold(strings.TrimSpace(user.Role), b.cfg.AdminRole)

	ok, err := b.svc.Cancel(b.ctx(), bookingID, userID, isAdmin)
	if err != nil {
		log.Printf("Error cancelling booking %d: %v", bookingID, err)
	}
	if !ok {
		b.send(userID, "Unable to cancel booking. Please check the Booking ID. Press /start to restart.")
		return
	}
	b.send(userID, "Booking "+strconv.FormatInt(bookingID, 10)+" cancelled successfully. Press /start to restart.")
}

// handleApproveCommand lists pending bookings for the approval-gated
// venues and asks the approver which one to confirm.
func (b *Bot) handleApproveCommand(message *tgbotapi.Message) {
	user := b.user(message.From.ID)
	if user == nil {
		return
	}
	if !strings.EqualFold(strings.TrimSpace(user.Role), b.cfg.ApproverRole) {
		b.send(user.TelegramID, "You do not have permission to approve bookings. Press /start to restart.")
		return
	}

	pending, err := b.svc.PendingApprovals()
	if err != nil {
		log.Printf("Error listing pending bookings: %v", err)
		b.send(user.TelegramID, "Could not load pending bookings, please try again later.")
		return
	}
	if len(pending) == 0 {
		b.send(user.TelegramID, "No pending bookings for approval. Press /start to restart.")
		return
	}

	b.sessions.Begin(user.TelegramID, StageAwaitingApproveID)
	b.send(user.TelegramID, "Pending bookings for approval:\n"+b.bookingList(pending)+
		"\nPlease enter the Booking ID to approve:")
}

// handleApproveIDInput confirms the chosen pending booking.
func (b *Bot) handleApproveIDInput(message *tgbotapi.Message, sess *Session) {
	userID := message.From.ID
	defer b.sessions.Delete(userID)

	bookingID, err := strconv.ParseInt(strings.TrimSpace(message.Text), 10, 64)
	if err != nil {
		b.send(userID, "Invalid Booking ID. Press /start to restart.")
		return
	}

	_, err = b.svc.Approve(b.ctx(), bookingID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.send(userID, "Invalid Booking ID: booking not found. Press /start to restart.")
	case errors.Is(err, booking.ErrNotPending):
		b.send(userID, "Invalid Booking ID: booking is not pending approval. Press /start to restart.")
	case err != nil:
		log.Printf("Error approving booking %d: %v", bookingID, err)
		b.send(userID, "Could not approve the booking, please try again later.")
	default:
		b.send(userID, "Booking "+strconv.FormatInt(bookingID, 10)+" approved. Press /start to restart.")
	}
}

// handleAdminUpdateCommand starts the admin role editor.
func (b *Bot) handleAdminUpdateCommand(message *tgbotapi.Message) {
	user := b.user(message.From.ID)
	if user == nil {
		return
	}
	if !strings.EqualFold(strings.TrimSpace(user.Role), b.cfg.AdminRole) {
		b.send(user.TelegramID, "You do not have permission to update other users. Press /start to restart.")
		return
	}

	b.sessions.Begin(user.TelegramID, StageAwaitingAdminUserID)
	b.send(user.TelegramID, "Please enter the User ID of the user you want to update:")
}

// handleAdminUserIDInput resolves the target user and shows the role
// keyboard. Bad input aborts the editor.
func (b *Bot) handleAdminUserIDInput(message *tgbotapi.Message, sess *Session) {
	adminID := message.From.ID

	targetID, err := strconv.ParseInt(strings.TrimSpace(message.Text), 10, 64)
	if err != nil {
		b.send(adminID, "Invalid input. Please enter a numeric User ID. Exiting admin update.")
		b.sessions.Delete(adminID)
		return
	}

	target := b.user(targetID)
	if target == nil {
		b.send(adminID, "No user found with that ID. Exiting admin update.")
		b.sessions.Delete(adminID)
		return
	}

	sess.TargetUserID = targetID
	sess.Stage = StageAwaitingAdminRole
	b.sendWithMarkup(adminID,
		"User found: "+target.Name+". Select the new role:",
		roleKeyboard(b.cfg.Roles, targetID))
}

// handleSetRoleCallback records the selected role and asks for the CCA.
func (b *Bot) handleSetRoleCallback(query *tgbotapi.CallbackQuery) {
	adminID := query.From.ID
	chatID := query.Message.Chat.ID

	sess := b.sessions.Get(adminID)
	if sess == nil || sess.Stage != StageAwaitingAdminRole {
		b.answerCallbackQuery(query.ID, "Admin update expired. Press /start to restart.")
		return
	}
	b.sessions.Touch(adminID)

	parts := strings.SplitN(query.Data, "_", 3)
	if len(parts) != 3 {
		b.answerCallbackQuery(query.ID, "Invalid selection.")
		return
	}
	sess.NewRole = parts[2]
	sess.Stage = StageAwaitingAdminCCA

	b.answerCallbackQuery(query.ID, "")
	b.editMessage(chatID, query.Message.MessageID, "Role selected: "+sess.NewRole+".")
	b.sendWithMarkup(adminID, "Select the user's CCA:", ccaKeyboard(b.cfg.CCAs, sess.TargetUserID))
}

// handleSetCCACallback applies the role and CCA update and notifies the
// affected user.
func (b *Bot) handleSetCCACallback(query *tgbotapi.CallbackQuery) {
	adminID := query.From.ID
	chatID := query.Message.Chat.ID

	sess := b.sessions.Get(adminID)
	if sess == nil || sess.Stage != StageAwaitingAdminCCA {
		b.answerCallbackQuery(query.ID, "Admin update expired. Press /start to restart.")
		return
	}

	parts := strings.SplitN(query.Data, "_", 3)
	if len(parts) != 3 {
		b.answerCallbackQuery(query.ID, "Invalid selection.")
		return
	}
	selectedCCA := parts[2]

	newCCA := selectedCCA
	if strings.EqualFold(selectedCCA, "No CCA") {
		newCCA = ""
	}

	if err := b.store.UpdateUserRoleCCA(sess.TargetUserID, sess.NewRole, newCCA); err != nil {
		log.Printf("Error updating user %d: %v", sess.TargetUserID, err)
		b.answerCallbackQuery(query.ID, "Update failed.")
		b.sessions.Delete(adminID)
		return
	}

	display := newCCA
	if display == "" {
		display = "None"
	}
	b.answerCallbackQuery(query.ID, "")
	b.editMessage(chatID, query.Message.MessageID,
		"User "+strconv.FormatInt(sess.TargetUserID, 10)+" updated: Role = "+sess.NewRole+", CCA = "+display+".")

	b.send(sess.TargetUserID, "You have been updated as: "+sess.NewRole+" of "+display+".")
	b.sessions.Delete(adminID)
}
