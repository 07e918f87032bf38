// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"standup_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	flowService *app.FlowService,
	baseLogger *logrus.Entry,
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if c.Chat().Type != telebot.ChatPrivate {
			return c.Send("Hi! Add me to your team chat and run /setup there to schedule standups.")
		}

		// An active session means a standup is waiting on this user.
		userID := strconv.FormatInt(senderID, 10)
		if _, err := flowService.CurrentSession(ctx, userID); err == nil {
			logCtx.Info("User has an active standup session")
			return c.Send("You have a standup in progress. Answer the current question or use the buttons to navigate.")
		}

		return c.Send(fmt.Sprintf("Hi %s! I collect daily standups. When your team's standup opens I'll message you here with the questions.", c.Sender().FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if c.Chat().Type == telebot.ChatPrivate {
			return c.Send("When a standup opens I'll DM you the questions one at a time.\n\nReply with text to answer. For list questions, repeating an item removes it. Use the buttons to skip (Nil), go Back, or move to the Next question, then Submit from the review screen.\n\n`/help` - Show this message.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		var helpText strings.Builder
		helpText.WriteString("Management commands (chat administrators only):\n\n")
		helpText.WriteString("`/setup <timezone> <open> <close> [reminders]`\n - Configure the standup window for this chat.\n\n")
		helpText.WriteString("`/set_report_channel [chat id]` `/set_spreadsheet [id]` `/set_notion [id]` `/set_retention <days>`\n - Adjust report destinations and retention.\n\n")
		helpText.WriteString("`/add_member <user id> <name>` `/remove_member <user id>`\n - Manage the roster.\n\n")
		helpText.WriteString("`/excuse <user id> <start> <end> [reason]` `/unexcuse <user id> <date>` `/excusals <user id>`\n - Manage excusals.\n\n")
		helpText.WriteString("`/standup_open` `/standup_remind` `/standup_close`\n - Drive today's run manually.\n\n")
		helpText.WriteString("`/resend <date> [destination]`\n - Re-queue report delivery for a past run.\n\n")
		helpText.WriteString("`/export <from> <to>`\n - Export submitted standups as CSV.\n\n")
		helpText.WriteString("`/help`\n - Show this help message.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
