package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/booking"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/config"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// Bot is the Telegram front end for the facility booking system. Updates
// are handled one at a time by the polling loop, so handlers run to
// completion before the next update is processed.
type Bot struct {
	api      *tgbotapi.BotAPI
	store    storage.Store
	svc      *booking.Service
	sessions SessionStore
	cfg      *config.Config
}

// New creates a new bot instance. The booking service is attached
// afterwards because it needs the bot as its notifier.
func New(token string, store storage.Store, sessions SessionStore, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:      api,
		store:    store,
		sessions: sessions,
		cfg:      cfg,
	}, nil
}

// AttachService wires in the booking service. Must be called before
// Start.
func (b *Bot) AttachService(svc *booking.Service) {
	b.svc = svc
}

// Start runs the long-polling update loop until the update channel
// closes.
func (b *Bot) Start() error {
	if b.svc == nil {
		return fmt.Errorf("booking service not attached")
	}
	log.Printf("Bot started: @%s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message != nil {
			b.handleMessage(update.Message)
		} else if update.CallbackQuery != nil {
			b.handleCallbackQuery(update.CallbackQuery)
		}
	}

	return nil
}

// ctx returns the context used for external calls made while handling
// the current update.
func (b *Bot) ctx() context.Context {
	return context.Background()
}

// send delivers a plain text message, logging delivery failures.
func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
}

// sendWithMarkup delivers a message with a keyboard attached.
func (b *Bot) sendWithMarkup(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
}

// editMessage replaces the text of a previously sent message, dropping
// its inline keyboard.
func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Error editing message %d in %d: %v", messageID, chatID, err)
	}
}

// user loads the registered user behind a Telegram ID, or nil when the
// ID is unknown.
func (b *Bot) user(telegramID int64) *storage.User {
	u, err := b.store.GetUser(telegramID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Error loading user %d: %v", telegramID, err)
		}
		return nil
	}
	return u
}
