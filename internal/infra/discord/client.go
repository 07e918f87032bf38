package discord

import (
	"context"
	"fmt"

	"standup_bot/internal/domain/messenger"

	"github.com/bwmarrin/discordgo"
)

// DiscordAdapter implements the messenger.Client interface using the
// github.com/bwmarrin/discordgo library.
type DiscordAdapter struct {
	session *discordgo.Session
}

func NewDiscordAdapter(s *discordgo.Session) *DiscordAdapter {
	return &DiscordAdapter{session: s}
}

// SendDirectMessage opens (or reuses) the user's DM channel and sends the
// message there.
func (d *DiscordAdapter) SendDirectMessage(_ context.Context, userID string, msg messenger.Message) error {
	channel, err := d.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("opening DM channel for user %s: %w", userID, err)
	}
	_, err = d.session.ChannelMessageSendComplex(channel.ID, messageSend(msg))
	return err
}

// SendChannelMessage posts to a guild channel.
func (d *DiscordAdapter) SendChannelMessage(_ context.Context, channelID string, msg messenger.Message) error {
	_, err := d.session.ChannelMessageSendComplex(channelID, messageSend(msg))
	return err
}

// messageSend renders buttons as one action row with the encoded flow
// command as the component custom ID.
func messageSend(msg messenger.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: msg.Text}
	if len(msg.Buttons) == 0 {
		return send
	}

	components := make([]discordgo.MessageComponent, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		components = append(components, discordgo.Button{
			Label:    b.Label,
			Style:    discordgo.PrimaryButton,
			CustomID: b.Command.Encode(),
		})
	}
	send.Components = []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: components},
	}
	return send
}
