// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"
	"strconv"

	"standup_bot/internal/domain/messenger"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the messenger.Client interface using the
// gopkg.in/telebot.v3 library. Telegram identifiers are numeric; the
// platform-neutral string IDs are parsed at this boundary.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendDirectMessage sends a message to the user's private chat.
func (tba *TelebotAdapter) SendDirectMessage(_ context.Context, userID string, msg messenger.Message) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram user id %q: %w", userID, err)
	}

	_, err = tba.bot.Send(&telebot.User{ID: id}, msg.Text, sendOptions(msg))
	return err
}

// SendChannelMessage posts to a group or channel chat.
func (tba *TelebotAdapter) SendChannelMessage(_ context.Context, channelID string, msg messenger.Message) error {
	id, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", channelID, err)
	}

	_, err = tba.bot.Send(&telebot.Chat{ID: id}, msg.Text, sendOptions(msg))
	return err
}

// sendOptions renders buttons as an inline keyboard, one button per row,
// with the encoded flow command as callback data.
func sendOptions(msg messenger.Message) *telebot.SendOptions {
	options := &telebot.SendOptions{}
	if len(msg.Buttons) == 0 {
		return options
	}

	keyboard := make([][]telebot.InlineButton, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		keyboard = append(keyboard, []telebot.InlineButton{{
			Text: b.Label,
			Data: b.Command.Encode(),
		}})
	}
	options.ReplyMarkup = &telebot.ReplyMarkup{InlineKeyboard: keyboard}
	return options
}
