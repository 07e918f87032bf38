package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/delivery"
	"standup_bot/internal/domain/workspace"
	idb "standup_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const dateLayout = "2006-01-02"

// RangeExporter writes a CSV covering all closed runs in a date range and
// returns the file path.
type RangeExporter interface {
	ExportRange(ctx context.Context, workspaceID string, from, to time.Time) (string, error)
}

// AdminServices bundles the application services the management commands
// drive.
type AdminServices struct {
	Roster    *app.RosterService
	Workspace *app.WorkspaceService
	Runs      *app.RunService
	Delivery  *app.DeliveryService
	Exporter  RangeExporter
}

// RegisterAdminHandlers registers management commands. The group chat a
// command arrives in is the workspace; only chat administrators may use
// them.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, services AdminServices, baseLogger *logrus.Entry) {
	handle := func(command string, fn func(c telebot.Context, workspaceID string, log *logrus.Entry) error) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
				"chat_id":   c.Chat().ID,
			})
			handlerLogger.Info("Command received")

			if c.Chat().Type == telebot.ChatPrivate {
				return c.Send("Management commands only work in a team chat.")
			}
			if !isChatAdmin(c) {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send("Error: you need to be a chat administrator to do that.")
			}

			workspaceID := strconv.FormatInt(c.Chat().ID, 10)
			return fn(c, workspaceID, handlerLogger)
		})
	}

	handle("/setup", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		// Expected format: /setup <IANA timezone> <open HH:MM> <close HH:MM> [reminders HH:MM,HH:MM]
		if len(args) < 3 || len(args) > 4 {
			return c.Send("Usage: /setup <timezone> <open HH:MM> <close HH:MM> [reminder times, comma-separated]")
		}

		cfg := &workspace.Config{
			WorkspaceID:         workspaceID,
			Timezone:            args[0],
			WindowOpenTime:      args[1],
			WindowCloseTime:     args[2],
			ManagementChannelID: workspaceID,
			ReportChannelID:     workspaceID,
		}
		if len(args) == 4 {
			cfg.ReminderTimes = strings.Split(args[3], ",")
		}

		if existing, err := services.Workspace.Get(ctx, workspaceID); err == nil {
			// Preserve settings /setup does not cover.
			cfg.ReportChannelID = existing.ReportChannelID
			cfg.GoogleSpreadsheetID = existing.GoogleSpreadsheetID
			cfg.NotionParentPageID = existing.NotionParentPageID
			cfg.RetentionDays = existing.RetentionDays
		}

		if err := services.Workspace.Setup(ctx, cfg); err != nil {
			return sendSetupError(c, log, err)
		}
		log.Info("Workspace configured")
		return c.Send(fmt.Sprintf("Workspace configured: standups %s-%s (%s).", cfg.WindowOpenTime, cfg.WindowCloseTime, cfg.Timezone))
	})

	handle("/set_report_channel", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		channelID := workspaceID
		if len(args) == 1 {
			channelID = args[0]
		}
		_, err := services.Workspace.Update(ctx, workspaceID, func(cfg *workspace.Config) {
			cfg.ReportChannelID = channelID
		})
		if err != nil {
			return sendSetupError(c, log, err)
		}
		return c.Send("Report channel updated.")
	})

	handle("/set_spreadsheet", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		// Empty argument list clears the destination.
		var id string
		if len(args) == 1 {
			id = args[0]
		}
		_, err := services.Workspace.Update(ctx, workspaceID, func(cfg *workspace.Config) {
			cfg.GoogleSpreadsheetID = id
		})
		if err != nil {
			return sendSetupError(c, log, err)
		}
		if id == "" {
			return c.Send("Spreadsheet delivery disabled.")
		}
		return c.Send("Spreadsheet delivery enabled.")
	})

	handle("/set_notion", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		var id string
		if len(args) == 1 {
			id = args[0]
		}
		_, err := services.Workspace.Update(ctx, workspaceID, func(cfg *workspace.Config) {
			cfg.NotionParentPageID = id
		})
		if err != nil {
			return sendSetupError(c, log, err)
		}
		if id == "" {
			return c.Send("Notion delivery disabled.")
		}
		return c.Send("Notion delivery enabled.")
	})

	handle("/set_retention", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /set_retention <days>")
		}
		days, err := strconv.Atoi(args[0])
		if err != nil || days <= 0 {
			return c.Send("Error: retention must be a positive number of days.")
		}
		_, err = services.Workspace.Update(ctx, workspaceID, func(cfg *workspace.Config) {
			cfg.RetentionDays = days
		})
		if err != nil {
			return sendSetupError(c, log, err)
		}
		return c.Send(fmt.Sprintf("Retention set to %d days.", days))
	})

	handle("/add_member", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		// Expected format: /add_member <UserID> <DisplayName...>
		if len(args) < 2 {
			return c.Send("Usage: /add_member <user id> <display name>")
		}
		userID := args[0]
		displayName := strings.Join(args[1:], " ")

		member, err := services.Roster.AddMember(ctx, workspaceID, userID, displayName)
		if err != nil {
			log.WithError(err).Error("Failed to add roster member")
			return c.Send(fmt.Sprintf("Failed to add member: %s", err.Error()))
		}
		log.WithField("member_id", member.ID).Info("Member added")
		return c.Send(fmt.Sprintf("%s added to the standup roster.", member.DisplayName))
	})

	handle("/remove_member", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /remove_member <user id>")
		}

		member, err := services.Roster.RemoveMember(ctx, workspaceID, args[0])
		if err != nil {
			if err == idb.ErrMemberNotFound {
				return c.Send("No roster member with that user id.")
			}
			log.WithError(err).Error("Failed to remove roster member")
			return c.Send(fmt.Sprintf("Failed to remove member: %s", err.Error()))
		}
		log.WithField("member_id", member.ID).Info("Member removed")
		return c.Send(fmt.Sprintf("%s removed from the standup roster. Their history is kept.", member.DisplayName))
	})

	handle("/excuse", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		// Expected format: /excuse <UserID> <start> <end> [reason...]
		if len(args) < 3 {
			return c.Send("Usage: /excuse <user id> <start YYYY-MM-DD> <end YYYY-MM-DD> [reason]")
		}
		start, err1 := time.Parse(dateLayout, args[1])
		end, err2 := time.Parse(dateLayout, args[2])
		if err1 != nil || err2 != nil {
			return c.Send("Error: dates must be in YYYY-MM-DD format.")
		}
		reason := strings.Join(args[3:], " ")

		_, err := services.Roster.AddExcusal(ctx, workspaceID, args[0], start, end, reason)
		if err != nil {
			switch err {
			case idb.ErrMemberNotFound:
				return c.Send("No roster member with that user id.")
			case app.ErrInvalidExcusalRange:
				return c.Send("Error: the start date is after the end date.")
			default:
				log.WithError(err).Error("Failed to add excusal")
				return c.Send(fmt.Sprintf("Failed to add excusal: %s", err.Error()))
			}
		}
		return c.Send(fmt.Sprintf("Excused %s through %s.", args[1], args[2]))
	})

	handle("/unexcuse", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Usage: /unexcuse <user id> <date YYYY-MM-DD>")
		}
		date, err := time.Parse(dateLayout, args[1])
		if err != nil {
			return c.Send("Error: date must be in YYYY-MM-DD format.")
		}

		removed, err := services.Roster.RemoveExcusal(ctx, workspaceID, args[0], date)
		if err != nil {
			if err == idb.ErrMemberNotFound {
				return c.Send("No roster member with that user id.")
			}
			log.WithError(err).Error("Failed to remove excusal")
			return c.Send(fmt.Sprintf("Failed to remove excusal: %s", err.Error()))
		}
		if removed == 0 {
			return c.Send("No excusal covers that date.")
		}
		return c.Send(fmt.Sprintf("Removed %d excusal(s).", removed))
	})

	handle("/excusals", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /excusals <user id>")
		}

		excusals, err := services.Roster.ListExcusals(ctx, workspaceID, args[0])
		if err != nil {
			if err == idb.ErrMemberNotFound {
				return c.Send("No roster member with that user id.")
			}
			log.WithError(err).Error("Failed to list excusals")
			return c.Send(fmt.Sprintf("Failed to list excusals: %s", err.Error()))
		}
		if len(excusals) == 0 {
			return c.Send("No excusals on record.")
		}

		var response strings.Builder
		response.WriteString("Excusals:\n")
		for _, e := range excusals {
			fmt.Fprintf(&response, "%s to %s", e.StartDate.Format(dateLayout), e.EndDate.Format(dateLayout))
			if e.Reason != "" {
				fmt.Fprintf(&response, " (%s)", e.Reason)
			}
			response.WriteString("\n")
		}
		return c.Send(response.String())
	})

	handle("/standup_open", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		if err := services.Runs.Open(ctx, workspaceID); err != nil {
			return sendRunError(c, log, err, "open")
		}
		return c.Send("Standup opened. Prompts are on their way.")
	})

	handle("/standup_remind", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		if err := services.Runs.Remind(ctx, workspaceID); err != nil {
			return sendRunError(c, log, err, "remind")
		}
		return c.Send("Reminders sent to everyone still pending.")
	})

	handle("/standup_close", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		if err := services.Runs.Close(ctx, workspaceID); err != nil {
			return sendRunError(c, log, err, "close")
		}
		return c.Send("Standup closed. Reports are being delivered.")
	})

	handle("/resend", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		// Expected format: /resend <YYYY-MM-DD> [destination]
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Usage: /resend <date YYYY-MM-DD> [DISCORD|SHEETS|NOTION|CSV]")
		}
		runDate, err := time.Parse(dateLayout, args[0])
		if err != nil {
			return c.Send("Error: date must be in YYYY-MM-DD format.")
		}

		var destination *delivery.Destination
		if len(args) == 2 {
			d := delivery.Destination(strings.ToUpper(args[1]))
			switch d {
			case delivery.DestinationDiscord, delivery.DestinationSheets, delivery.DestinationNotion, delivery.DestinationCSV:
				destination = &d
			default:
				return c.Send("Error: unknown destination. Use DISCORD, SHEETS, NOTION, or CSV.")
			}
		}

		count, err := services.Delivery.Resend(ctx, workspaceID, runDate, destination)
		if err != nil {
			log.WithError(err).Error("Failed to resend deliveries")
			return c.Send(fmt.Sprintf("Failed to resend: %s", err.Error()))
		}
		if count == 0 {
			return c.Send("No delivery jobs matched.")
		}
		return c.Send(fmt.Sprintf("Re-queued %d delivery job(s).", count))
	})

	handle("/export", func(c telebot.Context, workspaceID string, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Usage: /export <from YYYY-MM-DD> <to YYYY-MM-DD>")
		}
		from, err1 := time.Parse(dateLayout, args[0])
		to, err2 := time.Parse(dateLayout, args[1])
		if err1 != nil || err2 != nil {
			return c.Send("Error: dates must be in YYYY-MM-DD format.")
		}

		path, err := services.Exporter.ExportRange(ctx, workspaceID, from, to)
		if err != nil {
			log.WithError(err).Error("Failed to export range")
			return c.Send(fmt.Sprintf("Failed to export: %s", err.Error()))
		}
		return c.Send(&telebot.Document{File: telebot.FromDisk(path), FileName: fmt.Sprintf("standups_%s_%s.csv", args[0], args[1])})
	})
}

func isChatAdmin(c telebot.Context) bool {
	member, err := c.Bot().ChatMemberOf(c.Chat(), c.Sender())
	if err != nil {
		return false
	}
	return member.Role == telebot.Creator || member.Role == telebot.Administrator
}

func sendSetupError(c telebot.Context, log *logrus.Entry, err error) error {
	switch err {
	case app.ErrInvalidTimezone:
		return c.Send("Error: that is not a valid IANA timezone (e.g. Europe/Berlin).")
	case app.ErrInvalidTimeFormat:
		return c.Send("Error: times must be in HH:MM format.")
	case app.ErrTooManyReminders:
		return c.Send("Error: at most 3 reminder times are allowed.")
	case app.ErrWorkspaceNotConfigured:
		return c.Send("This workspace is not set up yet. Run /setup first.")
	default:
		log.WithError(err).Error("Failed to save workspace config")
		return c.Send(fmt.Sprintf("Failed to save configuration: %s", err.Error()))
	}
}

func sendRunError(c telebot.Context, log *logrus.Entry, err error, action string) error {
	switch err {
	case app.ErrWorkspaceNotConfigured:
		return c.Send("This workspace is not set up yet. Run /setup first.")
	case app.ErrRunNotOpen:
		return c.Send("Today's standup has already finished.")
	case app.ErrNoRunToday:
		return c.Send("There is no standup run today.")
	case app.ErrRunAlreadyClosed:
		return c.Send("Today's standup is already closed.")
	default:
		log.WithError(err).Errorf("Failed to %s standup run", action)
		return c.Send(fmt.Sprintf("Failed to %s the standup: %s", action, err.Error()))
	}
}
