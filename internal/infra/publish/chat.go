package publish

import (
	"context"
	"fmt"

	"standup_bot/internal/domain/messenger"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
)

// Chat platforms cap message length; long reports are split on line
// boundaries below this.
const maxChatMessageLen = 1800

// ChatPublisher posts the run report to the workspace's report channel
// through the platform-neutral messenger client.
type ChatPublisher struct {
	client        messenger.Client
	workspaceRepo workspace.Repository
}

func NewChatPublisher(client messenger.Client, workspaceRepo workspace.Repository) *ChatPublisher {
	return &ChatPublisher{client: client, workspaceRepo: workspaceRepo}
}

func (p *ChatPublisher) Publish(ctx context.Context, run *standup.Run, responses []*standup.Response) (string, error) {
	cfg, err := p.workspaceRepo.Get(ctx, run.WorkspaceID)
	if err != nil {
		return "", fmt.Errorf("loading workspace config: %w", err)
	}
	if cfg.ReportChannelID == "" {
		return "", fmt.Errorf("workspace %s has no report channel", run.WorkspaceID)
	}

	report := ChatReport(run, responses)
	for _, chunk := range splitMessage(report, maxChatMessageLen) {
		if err := p.client.SendChannelMessage(ctx, cfg.ReportChannelID, messenger.Message{Text: chunk}); err != nil {
			return "", fmt.Errorf("posting report to channel %s: %w", cfg.ReportChannelID, err)
		}
	}
	return "", nil
}

// splitMessage breaks text into chunks of at most limit bytes, preferring
// newline boundaries. A single oversized line is split mid-line.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if text[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}
