package bot

import (
	"log"
	"os"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// handleMessage handles incoming messages: commands dispatch to their
// entry handlers, everything else is routed by the user's current flow
// stage.
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStartCommand(message)
		case "help":
			b.handleHelpCommand(message)
		case "getid":
			b.handleGetIDCommand(message)
		case "book":
			b.handleBookCommand(message)
		case "cancel":
			b.handleCancelCommand(message)
		case "view":
			b.handleViewCommand(message)
		case "approve":
			b.handleApproveCommand(message)
		case "admin_update":
			b.handleAdminUpdateCommand(message)
		case "restart":
			b.handleRestartCommand(message)
		default:
			b.send(chatID, "Unknown command. Use /help for the list of commands.")
		}
		return
	}

	sess := b.sessions.Get(userID)
	if sess == nil {
		b.send(chatID, "Use /book to start a booking or /help for the list of commands.")
		return
	}
	b.sessions.Touch(userID)

	switch sess.Stage {
	case StageAwaitingName:
		b.handleNameInput(message, sess)
	case StageAwaitingVenue:
		b.handleVenueSelection(message, sess)
	case StageAwaitingStart:
		b.handleStartTimeInput(message, sess)
	case StageAwaitingDuration:
		b.handleDurationInput(message, sess)
	case StageAwaitingReason:
		b.handleReasonInput(message, sess)
	case StageAwaitingCancelID:
		b.handleCancelIDInput(message, sess)
	case StageAwaitingApproveID:
		b.handleApproveIDInput(message, sess)
	case StageAwaitingAdminUserID:
		b.handleAdminUserIDInput(message, sess)
	case StageAwaitingDate, StageAwaitingStartConfirm, StageAwaitingDurationConfirm,
		StageAwaitingAdminRole, StageAwaitingAdminCCA:
		b.send(chatID, "Please use the buttons above.")
	default:
		b.send(chatID, "Use /book to start a booking or /help for the list of commands.")
	}
}

// handleCallbackQuery routes inline keyboard selections by their
// payload prefix.
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	data := query.Data

	switch {
	case strings.HasPrefix(data, "bookdate_"):
		b.handleDateCallback(query)
	case data == "confirm_start" || data == "reenter_start" || data == "exit_start":
		b.handleStartConfirmCallback(query)
	case data == "confirm_duration" || data == "reenter_duration" || data == "exit_duration":
		b.handleDurationConfirmCallback(query)
	case strings.HasPrefix(data, "setrole_"):
		b.handleSetRoleCallback(query)
	case strings.HasPrefix(data, "setcca_"):
		b.handleSetCCACallback(query)
	default:
		log.Printf("Unhandled callback data: %s", data)
		b.answerCallbackQuery(query.ID, "")
	}
}

// handleStartCommand handles /start: greets returning users, and walks
// new users through registration.
func (b *Bot) handleStartCommand(message *tgbotapi.Message) {
	userID := message.From.ID

	user := b.user(userID)
	if user == nil {
		b.sessions.Begin(userID, StageAwaitingName)
		b.send(userID, "Welcome! It looks like you're new here. Please tell us your name! (Use your real name.)")
		return
	}

	b.send(userID, "Welcome back "+user.Name+"! You are registered as: "+user.Role)
	b.sendMainMenu(userID)
}

// handleNameInput completes registration: every new user starts out as
// a Resident with no CCA and no block.
func (b *Bot) handleNameInput(message *tgbotapi.Message, sess *Session) {
	userID := message.From.ID
	name := strings.TrimSpace(message.Text)
	if name == "" {
		b.send(userID, "Please enter a non-empty name.")
		return
	}

	newUser := &storage.User{
		TelegramID: userID,
		Name:       name,
		Role:       "Resident",
		CCA:        "No CCA",
	}
	if err := b.store.CreateUser(newUser); err != nil {
		log.Printf("Error registering user %d: %v", userID, err)
		b.send(userID, "Registration failed, please try /start again.")
		b.sessions.Delete(userID)
		return
	}

	b.send(userID, "Thanks "+name+"! You are now registered as a Resident.")
	b.sendMainMenu(userID)
	b.sessions.Delete(userID)
}

// sendMainMenu shows the command keyboard, extended with the admin and
// approver entries for users holding those roles.
func (b *Bot) sendMainMenu(chatID int64) {
	buttons := []tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButton("/book"),
		tgbotapi.NewKeyboardButton("/cancel"),
		tgbotapi.NewKeyboardButton("/view"),
		tgbotapi.NewKeyboardButton("/getid"),
	}

	user := b.user(chatID)
	if user != nil && strings.EqualFold(strings.TrimSpace(user.Role), b.cfg.AdminRole) {
		buttons = append(buttons,
			tgbotapi.NewKeyboardButton("/admin_update"),
			tgbotapi.NewKeyboardButton("/restart"),
		)
	}
	if user != nil && strings.EqualFold(strings.TrimSpace(user.Role), b.cfg.ApproverRole) {
		buttons = append(buttons, tgbotapi.NewKeyboardButton("/approve"))
	}

	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons[i:end]...))
	}

	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	b.sendWithMarkup(chatID, "Choose an option:", markup)
}

// handleHelpCommand handles the /help command
func (b *Bot) handleHelpCommand(message *tgbotapi.Message) {
	b.send(message.Chat.ID, "Available Commands:\n"+
		"/start - Register or login\n"+
		"/getid - Get your Telegram User ID\n"+
		"/book - Start a venue booking\n"+
		"/cancel - Cancel an existing booking\n"+
		"/view - View your active bookings\n"+
		"/approve - Approve pending bookings (JCRC only)\n"+
		"/restart - Restart the bot (admin-only)")
}

// handleGetIDCommand handles the /getid command
func (b *Bot) handleGetIDCommand(message *tgbotapi.Message) {
	userID := message.From.ID
	b.send(userID, "Your User ID is: "+itoa(userID)+". Press /start to restart the process.")
}

// handleViewCommand lists active bookings. Approvers see all confirmed
// bookings across the venues they oversee, admins see everything, and
// everyone else sees their own.
func (b *Bot) handleViewCommand(message *tgbotapi.Message) {
	user := b.user(message.From.ID)
	if user == nil {
		b.send(message.Chat.ID, "Please /start first to register.")
		return
	}

	role := strings.TrimSpace(user.Role)
	var bookings []storage.Booking
	var err error
	if strings.EqualFold(role, b.cfg.ApproverRole) {
		var venueIDs []int64
		venueIDs, err = b.store.VenueIDsByName(b.cfg.OverseenVenues)
		if err == nil {
			bookings, err = b.store.ConfirmedBookingsForVenues(venueIDs)
		}
	} else {
		isAdmin := strings.EqualFold(role, b.cfg.AdminRole)
		bookings, err = b.store.ActiveBookings(user.TelegramID, isAdmin)
	}
	if err != nil {
		log.Printf("Error listing bookings for %d: %v", user.TelegramID, err)
		b.send(user.TelegramID, "Could not load bookings, please try again later.")
		return
	}

	if len(bookings) == 0 {
		b.send(user.TelegramID, "No active bookings found.")
		return
	}
	b.send(user.TelegramID, b.bookingList(bookings))
}

// handleRestartCommand re-executes the process in place, dropping all
// ephemeral flow state. Admin-only.
func (b *Bot) handleRestartCommand(message *tgbotapi.Message) {
	user := b.user(message.From.ID)
	if user == nil || !strings.EqualFold(strings.TrimSpace(user.Role), b.cfg.AdminRole) {
		b.send(message.Chat.ID, "You do not have permission to restart the bot. Press /start to restart.")
		return
	}

	b.send(message.Chat.ID, "Restarting the bot...")
	log.Printf("Restart requested by admin %d", user.TelegramID)

	exe, err := os.Executable()
	if err != nil {
		log.Printf("Restart failed, cannot resolve executable: %v", err)
		b.send(message.Chat.ID, "Restart failed.")
		return
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Printf("Restart failed: %v", err)
		b.send(message.Chat.ID, "Restart failed.")
	}
}
