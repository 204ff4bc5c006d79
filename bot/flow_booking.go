package bot

import (
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/booking"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

const (
	dateLayout      = "2006-01-02"
	startTimeLayout = "15:04"
)

// handleBookCommand starts the booking wizard. Venues the user cannot
// access are hidden from the keyboard entirely.
func (b *Bot) handleBookCommand(message *tgbotapi.Message) {
	userID := message.From.ID

	user := b.user(userID)
	if user == nil {
		b.send(userID, "Please /start first to register.")
		return
	}

	accessible, err := b.svc.AccessibleVenues(user)
	if err != nil {
		log.Printf("Error loading venues for %d: %v", userID, err)
		b.send(userID, "An error occurred. Please try /start first to register if not registered.")
		return
	}
	if len(accessible) == 0 {
		b.send(userID, "No venues available for booking. Press /start to restart.")
		return
	}

	sess := b.sessions.Begin(userID, StageAwaitingVenue)
	sess.User = user
	sess.AccessibleVenues = accessible
	log.Printf("Booking flow %s started for user %d", sess.ID, userID)

	b.sendWithMarkup(userID, "Select a venue to book:", venueKeyboard(accessible))
}

// handleVenueSelection matches the typed venue name against the
// accessible list; an unknown name aborts the wizard.
func (b *Bot) handleVenueSelection(message *tgbotapi.Message, sess *Session) {
	userID := message.From.ID
	venueName := strings.ToLower(strings.TrimSpace(message.Text))

	var chosen *storage.Venue
	for i := range sess.AccessibleVenues {
		if strings.ToLower(strings.TrimSpace(sess.AccessibleVenues[i].Name)) == venueName {
			chosen = &sess.AccessibleVenues[i]
			break
		}
	}
	if chosen == nil {
		b.send(userID, "Invalid venue selection. Please try /start again.")
		b.sessions.Delete(userID)
		return
	}

	sess.Venue = chosen
	sess.Stage = StageAwaitingDate

	// Show the venue's confirmed slots for the coming week before the
	// user commits to a date.
	now := time.Now().In(b.cfg.Location)
	upcoming, err := b.svc.UpcomingConfirmed(chosen.ID, now, 7)
	if err != nil {
		log.Printf("Error loading upcoming bookings for venue %d: %v", chosen.ID, err)
	}
	if len(upcoming) > 0 {
		msg := "Slots booked for this venue for the next 7 days:\n"
		for _, bk := range upcoming {
			dur, derr := booking.ParseDuration(bk.Duration)
			if derr != nil {
				dur = 0
			}
			msg += fmt.Sprintf("Date: %s, %s - %s\n",
				bk.Start.Format(dateLayout),
				bk.Start.Format(startTimeLayout),
				bk.Start.Add(dur).Format(startTimeLayout))
		}
		b.send(userID, msg)
	} else {
		b.send(userID, "No confirmed bookings for "+chosen.Name+" in the next 7 days.")
	}

	b.sendWithMarkup(userID, "Select a booking date:", dateKeyboard(now))
}

// handleDateCallback records the selected booking date.
func (b *Bot) handleDateCallback(query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	sess := b.sessions.Get(userID)
	if sess == nil || sess.Stage != StageAwaitingDate {
		b.answerCallbackQuery(query.ID, "Booking flow expired. Press /start to restart.")
		return
	}
	b.sessions.Touch(userID)

	dateStr := strings.TrimPrefix(query.Data, "bookdate_")
	date, err := time.ParseInLocation(dateLayout, dateStr, b.cfg.Location)
	if err != nil {
		b.answerCallbackQuery(query.ID, "Invalid date selected. Press /start to restart.")
		return
	}

	sess.BookingDate = date
	sess.Stage = StageAwaitingStart
	b.editMessage(chatID, query.Message.MessageID, "Date selected: "+dateStr)
	b.answerCallbackQuery(query.ID, "")
	b.send(userID, "Enter start time (HH:MM in 24-hr format):")
}

// handleStartTimeInput validates the proposed start time and checks it
// against confirmed bookings. Format problems re-prompt; a conflict
// aborts the wizard.
func (b *Bot) handleStartTimeInput(message *tgbotapi.Message, sess *Session) {
	userID := message.From.ID
	timeStr := strings.TrimSpace(message.Text)

	t, err := time.Parse(startTimeLayout, timeStr)
	if err != nil {
		b.send(userID, "Invalid start time format. Please try again (HH:MM).")
		return
	}
	if t.Minute()%15 != 0 {
		b.send(userID, "Start time must be in 15-minute increments.")
		return
	}

	proposed := time.Date(
		sess.BookingDate.Year(), sess.BookingDate.Month(), sess.BookingDate.Day(),
		t.Hour(), t.Minute(), 0, 0, b.cfg.Location,
	)

	conflict, err := b.svc.StartConflicts(sess.Venue.ID, proposed)
	if err != nil {
		log.Printf("Error checking start conflict for venue %d: %v", sess.Venue.ID, err)
		b.send(userID, "An error occurred, please try /start again.")
		b.sessions.Delete(userID)
		return
	}
	if conflict {
		b.send(userID, "The specified start time conflicts with an existing confirmed booking. Exiting booking process.")
		b.sessions.Delete(userID)
		return
	}

	sess.ProposedStart = proposed
	sess.Stage = StageAwaitingStartConfirm
	b.sendWithMarkup(userID,
		"You entered "+proposed.Format(startTimeLayout)+". Confirm?",
		confirmKeyboard("start"))
}

// handleStartConfirmCallback handles the confirm/re-enter/exit choice
// for the start time.
func (b *Bot) handleStartConfirmCallback(query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	sess := b.sessions.Get(userID)
	if sess == nil || sess.Stage != StageAwaitingStartConfirm {
		b.answerCallbackQuery(query.ID, "Booking flow expired.")
		return
	}
	b.sessions.Touch(userID)
	b.answerCallbackQuery(query.ID, "")

	switch query.Data {
	case "confirm_start":
		sess.Start = sess.ProposedStart
		sess.Stage = StageAwaitingDuration
		b.editMessage(chatID, query.Message.MessageID,
			"Start time confirmed as "+sess.Start.Format(startTimeLayout)+".")
		b.send(userID, "Enter duration (H:MM):")
	case "reenter_start":
		sess.Stage = StageAwaitingStart
		b.editMessage(chatID, query.Message.MessageID, "Please re-enter start time (HH:MM):")
	default: // exit_start
		b.editMessage(chatID, query.Message.MessageID, "Booking process cancelled. Press /start to restart.")
		b.sessions.Delete(userID)
	}
}

// handleDurationInput validates the duration and checks the full
// interval for overlaps. Format problems re-prompt; an overlap aborts.
func (b *Bot) handleDurationInput(message *tgbotapi.Message, sess *Session) {
	userID := message.From.ID
	durationStr := strings.TrimSpace(message.Text)

	dur, err := booking.ParseDuration(durationStr)
	if err != nil {
		b.send(userID, "Invalid duration format: "+err.Error()+". Please try again.")
		return
	}

	conflict, err := b.svc.RangeConflicts(sess.Venue.ID, sess.Start, dur)
	if err != nil {
		log.Printf("Error checking range conflict for venue %d: %v", sess.Venue.ID, err)
		b.send(userID, "An error occurred, please try /start again.")
		b.sessions.Delete(userID)
		return
	}
	if conflict {
		b.send(userID, "This time slot overlaps with an existing approved booking. Exiting booking process.")
		b.sessions.Delete(userID)
		return
	}

	sess.ProposedDuration = durationStr
	sess.Stage = StageAwaitingDurationConfirm
	end := sess.Start.Add(dur)
	b.sendWithMarkup(userID,
		fmt.Sprintf("You entered duration %s (ending at %s). Confirm?", durationStr, end.Format(startTimeLayout)),
		confirmKeyboard("duration"))
}

// handleDurationConfirmCallback handles the confirm/re-enter/exit
// choice for the duration.
func (b *Bot) handleDurationConfirmCallback(query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	sess := b.sessions.Get(userID)
	if sess == nil || sess.Stage != StageAwaitingDurationConfirm {
		b.answerCallbackQuery(query.ID, "Booking flow expired.")
		return
	}
	b.sessions.Touch(userID)
	b.answerCallbackQuery(query.ID, "")

	switch query.Data {
	case "confirm_duration":
		sess.Duration = sess.ProposedDuration
		sess.Stage = StageAwaitingReason
		b.editMessage(chatID, query.Message.MessageID, "Duration confirmed as "+sess.Duration+".")
		b.send(userID, "Enter a short reason for booking the venue:")
	case "reenter_duration":
		sess.Stage = StageAwaitingDuration
		b.editMessage(chatID, query.Message.MessageID, "Please re-enter duration (H:MM):")
	default: // exit_duration
		b.editMessage(chatID, query.Message.MessageID, "Booking process cancelled. Please try /start again.")
		b.sessions.Delete(userID)
	}
}

// handleReasonInput takes the free-text reason and places the booking.
func (b *Bot) handleReasonInput(message *tgbotapi.Message, sess *Session) {
	userID := message.From.ID
	reason := strings.TrimSpace(message.Text)

	created, err := b.svc.Create(b.ctx(), sess.User, sess.Venue, sess.Start, sess.Duration, reason)
	if err != nil {
		log.Printf("Error creating booking for %d: %v", userID, err)
		b.send(userID, "Could not place the booking, please try /start again.")
		b.sessions.Delete(userID)
		return
	}

	dur, derr := booking.ParseDuration(created.Duration)
	if derr != nil {
		dur = 0
	}
	msg := fmt.Sprintf("Booking for %s on %s from %s to %s has been placed.\n",
		sess.Venue.Name,
		created.Start.Format(dateLayout),
		created.Start.Format(startTimeLayout),
		created.Start.Add(dur).Format(startTimeLayout))
	if created.Status == storage.StatusPending {
		if b.cfg.IsApprovalGated(sess.Venue.Name) {
			msg += "It is pending approval by " + b.cfg.ApproverRole + "."
		} else {
			msg += "It is pending approval."
		}
	} else {
		msg += "It is confirmed."
	}
	msg += "\nPress /start to restart the process."

	b.send(userID, msg)
	b.sessions.Delete(userID)
}
