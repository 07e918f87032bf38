package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "standup-setup",
		Description: "Configure the standup window for this server",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "timezone", Description: "IANA timezone, e.g. Europe/Berlin", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "open", Description: "Window open time, HH:MM", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "close", Description: "Window close time, HH:MM", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "reminders", Description: "Up to 3 reminder times, comma-separated"},
		},
	},
	{
		Name:        "set-report-channel",
		Description: "Choose where standup reports are posted",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Report channel", Required: true},
		},
	},
	{
		Name:        "set-spreadsheet",
		Description: "Enable or disable Google Sheets delivery",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "Spreadsheet id; omit to disable"},
		},
	},
	{
		Name:        "set-notion",
		Description: "Enable or disable Notion delivery",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "Parent page id; omit to disable"},
		},
	},
	{
		Name:        "set-retention",
		Description: "Set how many days of standup history to keep",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "days", Description: "Retention in days", Required: true},
		},
	},
	{
		Name:        "add-member",
		Description: "Add a user to the standup roster",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to add", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Display name for reports"},
		},
	},
	{
		Name:        "remove-member",
		Description: "Remove a user from the standup roster",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to remove", Required: true},
		},
	},
	{
		Name:        "excuse",
		Description: "Excuse a member for a date range",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to excuse", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "start", Description: "First excused day, YYYY-MM-DD", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "end", Description: "Last excused day, YYYY-MM-DD", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why"},
		},
	},
	{
		Name:        "unexcuse",
		Description: "Remove an excusal covering a date",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "date", Description: "Covered day, YYYY-MM-DD", Required: true},
		},
	},
	{
		Name:        "excusals",
		Description: "List a member's excusals",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
		},
	},
	{Name: "standup-open", Description: "Open today's standup run now"},
	{Name: "standup-remind", Description: "Remind everyone still pending"},
	{Name: "standup-close", Description: "Close today's run and deliver reports"},
	{
		Name:        "resend",
		Description: "Re-queue report delivery for a past run",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "date", Description: "Run date, YYYY-MM-DD", Required: true},
			{
				Type: discordgo.ApplicationCommandOptionString, Name: "destination", Description: "Only this destination",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Discord", Value: "DISCORD"},
					{Name: "Google Sheets", Value: "SHEETS"},
					{Name: "Notion", Value: "NOTION"},
					{Name: "CSV", Value: "CSV"},
				},
			},
		},
	},
	{
		Name:        "export",
		Description: "Export submitted standups as CSV",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "from", Description: "First day, YYYY-MM-DD", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "to", Description: "Last day, YYYY-MM-DD", Required: true},
		},
	},
	{Name: "help", Description: "How the standup bot works"},
}

func RegisterCommands(dg *discordgo.Session, logger *logrus.Logger) {
	logger.Info("Registering bot commands...")
	for _, command := range Commands {
		_, err := dg.ApplicationCommandCreate(dg.State.User.ID, "", command)
		if err != nil {
			logger.WithField("command", command.Name).WithError(err).Error("Cannot create command")
		}
	}
}
