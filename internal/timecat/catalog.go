// Package timecat holds the fixed catalog of time categories offered on the
// heartbeat keyboard.
package timecat

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kiribu/actor-relay/internal/pkg/telegram"
)

// Categories is indexed by the callback data of the keyboard buttons; the
// order must never change while records are pending.
var Categories = []string{
	"useless",
	"gym",
	"social",
	"logistics",
	"sleeping",
	"german",
	"parttime",
	"coding",
	"rest",
	"reading",
}

// Imputed is assigned to records nobody answered before the next heartbeat.
const Imputed = "useless"

const keyboardColumns = 2

// Label returns the category at index, or false when index is out of range.
func Label(index int) (string, bool) {
	if index < 0 || index >= len(Categories) {
		return "", false
	}
	return Categories[index], true
}

func Keyboard() tgbotapi.InlineKeyboardMarkup {
	return telegram.InlineKeyboard(Categories, keyboardColumns)
}
