// internal/infra/telegram/flow_handlers.go
package telegram

import (
	"context"
	"strconv"
	"strings"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/messenger"
	"standup_bot/internal/domain/standup"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterFlowHandlers wires the standup wizard onto the bot: button
// callbacks drive navigation, plain text in a private chat is treated as an
// answer to the current step.
func RegisterFlowHandlers(ctx context.Context, b *telebot.Bot, flowService *app.FlowService, baseLogger *logrus.Entry) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		// telebot prefixes unique callbacks with \f; ours are raw.
		data := strings.TrimPrefix(c.Callback().Data, "\f")
		userID := strconv.FormatInt(c.Sender().ID, 10)

		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler": "flow_callback",
			"user_id": userID,
			"data":    data,
		})

		cmd, ok := messenger.ParseCommand(data)
		if !ok {
			handlerLogger.Warn("Unrecognized callback payload")
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
		}

		var session *standup.Session
		var err error

		switch cmd.Action {
		case messenger.ActionStart:
			session, err = flowService.StartOrResume(ctx, userID, cmd.MemberID, cmd.RunID, true)
		case messenger.ActionContinue:
			session, err = flowService.StartOrResume(ctx, userID, cmd.MemberID, cmd.RunID, false)
		case messenger.ActionNext:
			session, err = flowService.Advance(ctx, userID)
		case messenger.ActionBack:
			session, err = flowService.Retreat(ctx, userID)
		case messenger.ActionNil:
			session, err = flowService.MarkNil(ctx, userID, cmd.Step)
		case messenger.ActionSubmit:
			if err := flowService.Submit(ctx, userID); err != nil {
				return respondFlowError(c, handlerLogger, err)
			}
			if err := c.Respond(&telebot.CallbackResponse{Text: "Submitted!"}); err != nil {
				return err
			}
			return c.Send("Standup submitted. Thanks!")
		}

		if err != nil {
			return respondFlowError(c, handlerLogger, err)
		}

		if err := c.Respond(); err != nil {
			return err
		}
		msg := messenger.StepMessage(session)
		return c.Send(msg.Text, sendOptions(msg))
	})

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		// Group chats carry admin commands, not answers.
		if c.Chat() == nil || c.Chat().Type != telebot.ChatPrivate {
			return nil
		}

		userID := strconv.FormatInt(c.Sender().ID, 10)
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler": "flow_text",
			"user_id": userID,
		})

		session, err := flowService.CurrentSession(ctx, userID)
		if err != nil {
			if err == app.ErrSessionExpired {
				return c.Send("No standup is waiting for your answers right now.")
			}
			handlerLogger.WithError(err).Error("Failed to resolve session")
			return c.Send("Something went wrong. Please try again.")
		}

		if session.CurrentStep == standup.StepConfirm {
			msg := messenger.StepMessage(session)
			return c.Send(msg.Text, sendOptions(msg))
		}

		timezone := flowService.WorkspaceTimezone(ctx, session.MemberID)
		session, err = flowService.RecordAnswer(ctx, userID, session.CurrentStep, c.Text(), timezone)
		if err != nil {
			if err == app.ErrSessionExpired {
				return c.Send("This standup is no longer open.")
			}
			handlerLogger.WithError(err).Error("Failed to record answer")
			return c.Send("Something went wrong. Please try again.")
		}

		msg := messenger.StepMessage(session)
		return c.Send(msg.Text, sendOptions(msg))
	})
}

func respondFlowError(c telebot.Context, log *logrus.Entry, err error) error {
	if err == app.ErrSessionExpired {
		if respErr := c.Respond(&telebot.CallbackResponse{Text: "This standup is no longer open."}); respErr != nil {
			return respErr
		}
		return c.Send("This standup is no longer open.")
	}
	log.WithError(err).Error("Flow action failed")
	return c.Respond(&telebot.CallbackResponse{Text: "Something went wrong."})
}
