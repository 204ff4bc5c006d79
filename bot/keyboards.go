package bot

import (
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// venueKeyboard builds the reply keyboard of bookable venues, one per
// row.
func venueKeyboard(venues []storage.Venue) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(venues))
	for _, v := range venues {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(v.Name)))
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = true
	return markup
}

// dateKeyboard offers today plus the next seven days as inline buttons
// with "bookdate_<ISO date>" payloads.
func dateKeyboard(now time.Time) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < 8; i++ {
		date := now.AddDate(0, 0, i).Format(dateLayout)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(date, "bookdate_"+date),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// confirmKeyboard builds the Confirm / Re-enter / Exit row for a wizard
// step; kind is "start" or "duration".
func confirmKeyboard(kind string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Confirm", "confirm_"+kind),
			tgbotapi.NewInlineKeyboardButtonData("Re-enter", "reenter_"+kind),
			tgbotapi.NewInlineKeyboardButtonData("Exit", "exit_"+kind),
		),
	)
}

// roleKeyboard lists the assignable roles with
// "setrole_<user-id>_<role>" payloads.
func roleKeyboard(roles []string, targetUserID int64) tgbotapi.InlineKeyboardMarkup {
	uid := strconv.FormatInt(targetUserID, 10)
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, role := range roles {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(role, "setrole_"+uid+"_"+role),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ccaKeyboard lists the CCA affiliations with
// "setcca_<user-id>_<affiliation>" payloads, two per row.
func ccaKeyboard(ccas []string, targetUserID int64) tgbotapi.InlineKeyboardMarkup {
	uid := strconv.FormatInt(targetUserID, 10)
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, cca := range ccas {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(cca, "setcca_"+uid+"_"+cca))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
