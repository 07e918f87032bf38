package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/delivery"
	"standup_bot/internal/domain/messenger"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
	idb "standup_bot/internal/infra/database"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// RangeExporter writes a CSV covering all closed runs in a date range and
// returns the file path.
type RangeExporter interface {
	ExportRange(ctx context.Context, workspaceID string, from, to time.Time) (string, error)
}

// BotHandler routes Discord gateway events to the application services. The
// guild a command arrives from is the workspace.
type BotHandler struct {
	ctx       context.Context
	flow      *app.FlowService
	roster    *app.RosterService
	workspace *app.WorkspaceService
	runs      *app.RunService
	delivery  *app.DeliveryService
	exporter  RangeExporter
	logger    *logrus.Entry
}

func NewBotHandler(
	ctx context.Context,
	flow *app.FlowService,
	roster *app.RosterService,
	workspaceService *app.WorkspaceService,
	runs *app.RunService,
	deliveryService *app.DeliveryService,
	exporter RangeExporter,
	logger *logrus.Entry,
) *BotHandler {
	return &BotHandler{
		ctx:       ctx,
		flow:      flow,
		roster:    roster,
		workspace: workspaceService,
		runs:      runs,
		delivery:  deliveryService,
		exporter:  exporter,
		logger:    logger,
	}
}

// Register attaches the gateway handlers to the session.
func (h *BotHandler) Register(dg *discordgo.Session) {
	dg.AddHandler(h.OnInteraction)
	dg.AddHandler(h.OnMessage)
}

func (h *BotHandler) OnInteraction(session *discordgo.Session, intr *discordgo.InteractionCreate) {
	switch intr.Type {
	case discordgo.InteractionMessageComponent:
		h.handleFlowComponent(session, intr)
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(session, intr)
	}
}

// OnMessage treats plain text in a DM as the answer to the sender's current
// step.
func (h *BotHandler) OnMessage(session *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == session.State.User.ID || m.GuildID != "" {
		return
	}

	userID := m.Author.ID
	log := h.logger.WithFields(logrus.Fields{"handler": "flow_text", "user_id": userID})

	sess, err := h.flow.CurrentSession(h.ctx, userID)
	if err != nil {
		if err == app.ErrSessionExpired {
			session.ChannelMessageSend(m.ChannelID, "No standup is waiting for your answers right now.")
			return
		}
		log.WithError(err).Error("Failed to resolve session")
		session.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
		return
	}

	if sess.CurrentStep != standup.StepConfirm {
		timezone := h.flow.WorkspaceTimezone(h.ctx, sess.MemberID)
		sess, err = h.flow.RecordAnswer(h.ctx, userID, sess.CurrentStep, m.Content, timezone)
		if err != nil {
			if err == app.ErrSessionExpired {
				session.ChannelMessageSend(m.ChannelID, "This standup is no longer open.")
				return
			}
			log.WithError(err).Error("Failed to record answer")
			session.ChannelMessageSend(m.ChannelID, "Something went wrong. Please try again.")
			return
		}
	}

	if _, err := session.ChannelMessageSendComplex(m.ChannelID, messageSend(messenger.StepMessage(sess))); err != nil {
		log.WithError(err).Error("Failed to send step prompt")
	}
}

func (h *BotHandler) handleFlowComponent(session *discordgo.Session, intr *discordgo.InteractionCreate) {
	data := intr.MessageComponentData().CustomID
	userID := interactionUserID(intr)
	log := h.logger.WithFields(logrus.Fields{"handler": "flow_component", "user_id": userID, "custom_id": data})

	cmd, ok := messenger.ParseCommand(data)
	if !ok {
		log.Warn("Unrecognized component custom id")
		respondEphemeral(session, intr, "Unknown action.")
		return
	}

	var sess *standup.Session
	var err error

	switch cmd.Action {
	case messenger.ActionStart:
		sess, err = h.flow.StartOrResume(h.ctx, userID, cmd.MemberID, cmd.RunID, true)
	case messenger.ActionContinue:
		sess, err = h.flow.StartOrResume(h.ctx, userID, cmd.MemberID, cmd.RunID, false)
	case messenger.ActionNext:
		sess, err = h.flow.Advance(h.ctx, userID)
	case messenger.ActionBack:
		sess, err = h.flow.Retreat(h.ctx, userID)
	case messenger.ActionNil:
		sess, err = h.flow.MarkNil(h.ctx, userID, cmd.Step)
	case messenger.ActionSubmit:
		if err := h.flow.Submit(h.ctx, userID); err != nil {
			h.respondFlowError(session, intr, log, err)
			return
		}
		updateMessage(session, intr, "Standup submitted. Thanks!", nil)
		return
	}

	if err != nil {
		h.respondFlowError(session, intr, log, err)
		return
	}

	msg := messenger.StepMessage(sess)
	updateMessage(session, intr, msg.Text, messageSend(msg).Components)
}

func (h *BotHandler) respondFlowError(session *discordgo.Session, intr *discordgo.InteractionCreate, log *logrus.Entry, err error) {
	if err == app.ErrSessionExpired {
		updateMessage(session, intr, "This standup is no longer open.", nil)
		return
	}
	log.WithError(err).Error("Flow action failed")
	respondEphemeral(session, intr, "Something went wrong. Please try again.")
}

func (h *BotHandler) handleCommand(session *discordgo.Session, intr *discordgo.InteractionCreate) {
	data := intr.ApplicationCommandData()
	log := h.logger.WithFields(logrus.Fields{
		"handler":  "/" + data.Name,
		"user_id":  interactionUserID(intr),
		"guild_id": intr.GuildID,
	})
	log.Info("Command received")

	if data.Name == "help" {
		h.handleHelp(session, intr)
		return
	}

	if intr.GuildID == "" {
		respondEphemeral(session, intr, "Management commands only work in a server.")
		return
	}
	if intr.Member == nil || intr.Member.Permissions&discordgo.PermissionManageServer == 0 {
		log.Warn("Unauthorized access attempt")
		respondEphemeral(session, intr, "You need the Manage Server permission to do that.")
		return
	}

	workspaceID := intr.GuildID
	opts := optionMap(data.Options)

	switch data.Name {
	case "standup-setup":
		h.handleSetup(session, intr, workspaceID, opts, log)
	case "set-report-channel":
		channel := opts["channel"].ChannelValue(session)
		h.updateConfig(session, intr, workspaceID, log, func(cfg *workspace.Config) {
			cfg.ReportChannelID = channel.ID
		}, fmt.Sprintf("Reports will be posted to <#%s>.", channel.ID))
	case "set-spreadsheet":
		id := optionString(opts, "id")
		h.updateConfig(session, intr, workspaceID, log, func(cfg *workspace.Config) {
			cfg.GoogleSpreadsheetID = id
		}, destinationToggleText("Spreadsheet", id))
	case "set-notion":
		id := optionString(opts, "id")
		h.updateConfig(session, intr, workspaceID, log, func(cfg *workspace.Config) {
			cfg.NotionParentPageID = id
		}, destinationToggleText("Notion", id))
	case "set-retention":
		days := int(opts["days"].IntValue())
		if days <= 0 {
			respondEphemeral(session, intr, "Retention must be a positive number of days.")
			return
		}
		h.updateConfig(session, intr, workspaceID, log, func(cfg *workspace.Config) {
			cfg.RetentionDays = days
		}, fmt.Sprintf("Retention set to %d days.", days))
	case "add-member":
		h.handleAddMember(session, intr, workspaceID, opts, log)
	case "remove-member":
		h.handleRemoveMember(session, intr, workspaceID, opts, log)
	case "excuse":
		h.handleExcuse(session, intr, workspaceID, opts, log)
	case "unexcuse":
		h.handleUnexcuse(session, intr, workspaceID, opts, log)
	case "excusals":
		h.handleExcusals(session, intr, workspaceID, opts, log)
	case "standup-open":
		h.handleRunAction(session, intr, log, "open", func() error { return h.runs.Open(h.ctx, workspaceID) },
			"Standup opened. Prompts are on their way.")
	case "standup-remind":
		h.handleRunAction(session, intr, log, "remind", func() error { return h.runs.Remind(h.ctx, workspaceID) },
			"Reminders sent to everyone still pending.")
	case "standup-close":
		h.handleRunAction(session, intr, log, "close", func() error { return h.runs.Close(h.ctx, workspaceID) },
			"Standup closed. Reports are being delivered.")
	case "resend":
		h.handleResend(session, intr, workspaceID, opts, log)
	case "export":
		h.handleExport(session, intr, workspaceID, opts, log)
	}
}

func (h *BotHandler) handleSetup(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, opts options, log *logrus.Entry) {
	cfg := &workspace.Config{
		WorkspaceID:         workspaceID,
		Timezone:            opts["timezone"].StringValue(),
		WindowOpenTime:      opts["open"].StringValue(),
		WindowCloseTime:     opts["close"].StringValue(),
		ManagementChannelID: intr.ChannelID,
		ReportChannelID:     intr.ChannelID,
	}
	if reminders := optionString(opts, "reminders"); reminders != "" {
		for _, r := range strings.Split(reminders, ",") {
			cfg.ReminderTimes = append(cfg.ReminderTimes, strings.TrimSpace(r))
		}
	}

	if existing, err := h.workspace.Get(h.ctx, workspaceID); err == nil {
		// Preserve settings the setup command does not cover.
		cfg.ReportChannelID = existing.ReportChannelID
		cfg.GoogleSpreadsheetID = existing.GoogleSpreadsheetID
		cfg.NotionParentPageID = existing.NotionParentPageID
		cfg.RetentionDays = existing.RetentionDays
	}

	if err := h.workspace.Setup(h.ctx, cfg); err != nil {
		h.respondSetupError(session, intr, log, err)
		return
	}
	log.Info("Workspace configured")
	respondEphemeral(session, intr, fmt.Sprintf("Workspace configured: standups %s-%s (%s).",
		cfg.WindowOpenTime, cfg.WindowCloseTime, cfg.Timezone))
}

func (h *BotHandler) updateConfig(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, log *logrus.Entry, mutate func(*workspace.Config), success string) {
	if _, err := h.workspace.Update(h.ctx, workspaceID, mutate); err != nil {
		h.respondSetupError(session, intr, log, err)
		return
	}
	respondEphemeral(session, intr, success)
}

func (h *BotHandler) handleAddMember(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, opts options, log *logrus.Entry) {
	user := opts["user"].UserValue(session)
	name := optionString(opts, "name")
	if name == "" {
		name = user.Username
	}

	member, err := h.roster.AddMember(h.ctx, workspaceID, user.ID, name)
	if err != nil {
		log.WithError(err).Error("Failed to add roster member")
		respondEphemeral(session, intr, fmt.Sprintf("Failed to add member: %s", err.Error()))
		return
	}
	log.WithField("member_id", member.ID).Info("Member added")
	respondEphemeral(session, intr, fmt.Sprintf("%s added to the standup roster.", member.DisplayName))
}

func (h *BotHandler) handleRemoveMember(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, opts options, log *logrus.Entry) {
	user := opts["user"].UserValue(session)

	member, err := h.roster.RemoveMember(h.ctx, workspaceID, user.ID)
	if err != nil {
		if err == idb.ErrMemberNotFound {
			respondEphemeral(session, intr, "That user is not on the roster.")
			return
		}
		log.WithError(err).Error("Failed to remove roster member")
		respondEphemeral(session, intr, fmt.Sprintf("Failed to remove member: %s", err.Error()))
		return
	}
	log.WithField("member_id", member.ID).Info("Member removed")
	respondEphemeral(session, intr, fmt.Sprintf("%s removed from the standup roster. Their history is kept.", member.DisplayName))
}

func (h *BotHandler) handleExcuse(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, opts options, log *logrus.Entry) {
	user := opts["user"].UserValue(session)
	start, err1 := time.Parse(dateLayout, opts["start"].StringValue())
	end, err2 := time.Parse(dateLayout, opts["end"].StringValue())
	if err1 != nil || err2 != nil {
		respondEphemeral(session, intr, "Dates must be in YYYY-MM-DD format.")
		return
	}

	_, err := h.roster.AddExcusal(h.ctx, workspaceID, user.ID, start, end, optionString(opts, "reason"))
	if err != nil {
		switch err {
		case idb.ErrMemberNotFound:
			respondEphemeral(session, intr, "That user is not on the roster.")
		case app.ErrInvalidExcusalRange:
			respondEphemeral(session, intr, "The start date is after the end date.")
		default:
			log.WithError(err).Error("Failed to add excusal")
			respondEphemeral(session, intr, fmt.Sprintf("Failed to add excusal: %s", err.Error()))
		}
		return
	}
	respondEphemeral(session, intr, fmt.Sprintf("Excused <@%s> through %s.", user.ID, opts["end"].StringValue()))
}

func (h *BotHandler) handleUnexcuse(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, opts options, log *logrus.Entry) {
	user := opts["user"].UserValue(session)
	date, err := time.Parse(dateLayout, opts["date"].StringValue())
	if err != nil {
		respondEphemeral(session, intr, "Date must be in YYYY-MM-DD format.")
		return
	}

	removed, err := h.roster.RemoveExcusal(h.ctx, workspaceID, user.ID, date)
	if err != nil {
		if err == idb.ErrMemberNotFound {
			respondEphemeral(session, intr, "That user is not on the roster.")
			return
		}
		log.WithError(err).Error("Failed to remove excusal")
		respondEphemeral(session, intr, fmt.Sprintf("Failed to remove excusal: %s", err.Error()))
		return
	}
	if removed == 0 {
		respondEphemeral(session, intr, "No excusal covers that date.")
		return
	}
	respondEphemeral(session, intr, fmt.Sprintf("Removed %d excusal(s).", removed))
}

func (h *BotHandler) handleExcusals(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, opts options, log *logrus.Entry) {
	user := opts["user"].UserValue(session)

	excusals, err := h.roster.ListExcusals(h.ctx, workspaceID, user.ID)
	if err != nil {
		if err == idb.ErrMemberNotFound {
			respondEphemeral(session, intr, "That user is not on the roster.")
			return
		}
		log.WithError(err).Error("Failed to list excusals")
		respondEphemeral(session, intr, fmt.Sprintf("Failed to list excusals: %s", err.Error()))
		return
	}
	if len(excusals) == 0 {
		respondEphemeral(session, intr, "No excusals on record.")
		return
	}

	var response strings.Builder
	fmt.Fprintf(&response, "Excusals for <@%s>:\n", user.ID)
	for _, e := range excusals {
		fmt.Fprintf(&response, "%s to %s", e.StartDate.Format(dateLayout), e.EndDate.Format(dateLayout))
		if e.Reason != "" {
			fmt.Fprintf(&response, " (%s)", e.Reason)
		}
		response.WriteString("\n")
	}
	respondEphemeral(session, intr, response.String())
}

func (h *BotHandler) handleRunAction(session *discordgo.Session, intr *discordgo.InteractionCreate, log *logrus.Entry, action string, run func() error, success string) {
	if err := run(); err != nil {
		switch err {
		case app.ErrWorkspaceNotConfigured:
			respondEphemeral(session, intr, "This server is not set up yet. Run /standup-setup first.")
		case app.ErrRunNotOpen:
			respondEphemeral(session, intr, "Today's standup has already finished.")
		case app.ErrNoRunToday:
			respondEphemeral(session, intr, "There is no standup run today.")
		case app.ErrRunAlreadyClosed:
			respondEphemeral(session, intr, "Today's standup is already closed.")
		default:
			log.WithError(err).Errorf("Failed to %s standup run", action)
			respondEphemeral(session, intr, fmt.Sprintf("Failed to %s the standup: %s", action, err.Error()))
		}
		return
	}
	respondEphemeral(session, intr, success)
}

func (h *BotHandler) handleResend(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, opts options, log *logrus.Entry) {
	runDate, err := time.Parse(dateLayout, opts["date"].StringValue())
	if err != nil {
		respondEphemeral(session, intr, "Date must be in YYYY-MM-DD format.")
		return
	}

	var destination *delivery.Destination
	if value := optionString(opts, "destination"); value != "" {
		d := delivery.Destination(value)
		destination = &d
	}

	count, err := h.delivery.Resend(h.ctx, workspaceID, runDate, destination)
	if err != nil {
		log.WithError(err).Error("Failed to resend deliveries")
		respondEphemeral(session, intr, fmt.Sprintf("Failed to resend: %s", err.Error()))
		return
	}
	if count == 0 {
		respondEphemeral(session, intr, "No delivery jobs matched.")
		return
	}
	respondEphemeral(session, intr, fmt.Sprintf("Re-queued %d delivery job(s).", count))
}

func (h *BotHandler) handleExport(session *discordgo.Session, intr *discordgo.InteractionCreate, workspaceID string, opts options, log *logrus.Entry) {
	from, err1 := time.Parse(dateLayout, opts["from"].StringValue())
	to, err2 := time.Parse(dateLayout, opts["to"].StringValue())
	if err1 != nil || err2 != nil {
		respondEphemeral(session, intr, "Dates must be in YYYY-MM-DD format.")
		return
	}

	path, err := h.exporter.ExportRange(h.ctx, workspaceID, from, to)
	if err != nil {
		log.WithError(err).Error("Failed to export range")
		respondEphemeral(session, intr, fmt.Sprintf("Failed to export: %s", err.Error()))
		return
	}
	respondEphemeral(session, intr, fmt.Sprintf("Export written to %s.", path))
}

func (h *BotHandler) handleHelp(session *discordgo.Session, intr *discordgo.InteractionCreate) {
	helpText := "**Standup Bot Help**\n\n" +
		"When your team's standup opens I DM you the questions one at a time. " +
		"Reply with text to answer; for list questions, repeating an item removes it. " +
		"Use the buttons to skip (Nil), go Back, move Next, and Submit from the review screen.\n\n" +
		"**Manager Commands (Manage Server only)**\n" +
		"`/standup-setup` - Configure timezone and the standup window.\n" +
		"`/set-report-channel` `/set-spreadsheet` `/set-notion` `/set-retention` - Report destinations and retention.\n" +
		"`/add-member` `/remove-member` - Manage the roster.\n" +
		"`/excuse` `/unexcuse` `/excusals` - Manage excusals.\n" +
		"`/standup-open` `/standup-remind` `/standup-close` - Drive today's run manually.\n" +
		"`/resend` - Re-queue report delivery for a past run.\n" +
		"`/export` - Export submitted standups as CSV."
	respondEphemeral(session, intr, helpText)
}

func (h *BotHandler) respondSetupError(session *discordgo.Session, intr *discordgo.InteractionCreate, log *logrus.Entry, err error) {
	switch err {
	case app.ErrInvalidTimezone:
		respondEphemeral(session, intr, "That is not a valid IANA timezone (e.g. Europe/Berlin).")
	case app.ErrInvalidTimeFormat:
		respondEphemeral(session, intr, "Times must be in HH:MM format.")
	case app.ErrTooManyReminders:
		respondEphemeral(session, intr, "At most 3 reminder times are allowed.")
	case app.ErrWorkspaceNotConfigured:
		respondEphemeral(session, intr, "This server is not set up yet. Run /standup-setup first.")
	default:
		log.WithError(err).Error("Failed to save workspace config")
		respondEphemeral(session, intr, fmt.Sprintf("Failed to save configuration: %s", err.Error()))
	}
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(list []*discordgo.ApplicationCommandInteractionDataOption) options {
	opts := make(options, len(list))
	for _, opt := range list {
		opts[opt.Name] = opt
	}
	return opts
}

func optionString(opts options, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func destinationToggleText(name, id string) string {
	if id == "" {
		return name + " delivery disabled."
	}
	return name + " delivery enabled."
}

func interactionUserID(intr *discordgo.InteractionCreate) string {
	if intr.User != nil {
		return intr.User.ID
	}
	if intr.Member != nil && intr.Member.User != nil {
		return intr.Member.User.ID
	}
	return ""
}

func respondEphemeral(session *discordgo.Session, intr *discordgo.InteractionCreate, content string) {
	session.InteractionRespond(intr.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func updateMessage(session *discordgo.Session, intr *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	session.InteractionRespond(intr.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
}
