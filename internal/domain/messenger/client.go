// Package messenger defines the platform-neutral messaging boundary. Chat
// platform adapters (Discord, Telegram) implement Client; the core never
// touches platform UI primitives directly.
package messenger

import "context"

// Button is an actionable prompt element carrying a structured flow command.
type Button struct {
	Label   string
	Command Command
}

// Message is the platform-neutral content of an outbound message.
type Message struct {
	Text    string
	Buttons []Button
}

// Client sends messages on one chat platform.
type Client interface {
	// SendDirectMessage delivers a DM to a platform user.
	SendDirectMessage(ctx context.Context, userID string, msg Message) error
	// SendChannelMessage posts to a channel, used by the chat report
	// publisher.
	SendChannelMessage(ctx context.Context, channelID string, msg Message) error
}
