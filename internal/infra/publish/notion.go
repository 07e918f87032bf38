package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
)

const (
	notionBaseURL    = "https://api.notion.com/v1"
	notionAPIVersion = "2022-06-28"
)

// NotionPublisher creates one page per run under the workspace's parent
// page via the Notion REST API. A retried job archives the stale page from
// the earlier attempt before creating a fresh one.
type NotionPublisher struct {
	httpClient    *http.Client
	token         string
	workspaceRepo workspace.Repository
}

func NewNotionPublisher(token string, workspaceRepo workspace.Repository) *NotionPublisher {
	return &NotionPublisher{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		token:         token,
		workspaceRepo: workspaceRepo,
	}
}

func (p *NotionPublisher) Publish(ctx context.Context, run *standup.Run, responses []*standup.Response) (string, error) {
	cfg, err := p.workspaceRepo.Get(ctx, run.WorkspaceID)
	if err != nil {
		return "", fmt.Errorf("loading workspace config: %w", err)
	}
	if cfg.NotionParentPageID == "" {
		return "", fmt.Errorf("workspace %s has no notion parent page configured", run.WorkspaceID)
	}

	title := "Standup " + run.RunDate.Format(dateLayout)
	if err := p.archiveExisting(ctx, cfg.NotionParentPageID, title); err != nil {
		return "", err
	}

	pageURL, err := p.createPage(ctx, cfg.NotionParentPageID, title, run, responses)
	if err != nil {
		return "", err
	}
	return pageURL, nil
}

// archiveExisting removes pages left by earlier attempts for the same run.
func (p *NotionPublisher) archiveExisting(ctx context.Context, parentID, title string) error {
	var result struct {
		Results []struct {
			ID        string `json:"id"`
			Type      string `json:"type"`
			ChildPage struct {
				Title string `json:"title"`
			} `json:"child_page"`
		} `json:"results"`
	}

	if err := p.call(ctx, http.MethodGet,
		fmt.Sprintf("%s/blocks/%s/children?page_size=100", notionBaseURL, parentID), nil, &result); err != nil {
		return fmt.Errorf("listing children of parent page: %w", err)
	}

	for _, block := range result.Results {
		if block.Type != "child_page" || block.ChildPage.Title != title {
			continue
		}
		body := map[string]any{"archived": true}
		if err := p.call(ctx, http.MethodPatch, fmt.Sprintf("%s/pages/%s", notionBaseURL, block.ID), body, nil); err != nil {
			return fmt.Errorf("archiving stale page %s: %w", block.ID, err)
		}
	}
	return nil
}

func (p *NotionPublisher) createPage(ctx context.Context, parentID, title string, run *standup.Run, responses []*standup.Response) (string, error) {
	children := make([]any, 0, len(responses)*2)
	var absent []string

	for _, resp := range responses {
		name := ""
		if resp.Member != nil {
			name = resp.Member.DisplayName
		}
		if resp.Status != standup.StatusSubmitted {
			absent = append(absent, fmt.Sprintf("%s (%s)", name, strings.ToLower(string(resp.Status))))
			continue
		}

		children = append(children, headingBlock(name))
		for _, step := range standup.Steps {
			value := chatValue(step, resp.Session.Answers[step.Key])
			if value == "" {
				continue
			}
			children = append(children, paragraphBlock(fmt.Sprintf("%s %s", step.Title, value)))
		}
	}
	if len(absent) > 0 {
		children = append(children, paragraphBlock("Not submitted: "+strings.Join(absent, ", ")))
	}

	body := map[string]any{
		"parent": map[string]any{"page_id": parentID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []any{richText(title)},
			},
		},
		"children": children,
	}

	var created struct {
		URL string `json:"url"`
	}
	if err := p.call(ctx, http.MethodPost, notionBaseURL+"/pages", body, &created); err != nil {
		return "", fmt.Errorf("creating notion page: %w", err)
	}
	return created.URL, nil
}

func headingBlock(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "heading_2",
		"heading_2": map[string]any{
			"rich_text": []any{richText(text)},
		},
	}
}

func paragraphBlock(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []any{richText(text)},
		},
	}
}

func richText(text string) map[string]any {
	return map[string]any{
		"type": "text",
		"text": map[string]any{"content": text},
	}
}

func (p *NotionPublisher) call(ctx context.Context, method, callURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding notion request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, callURL, reader)
	if err != nil {
		return fmt.Errorf("building notion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Notion-Version", notionAPIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling notion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notion api returned %d: %s", resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding notion response: %w", err)
		}
	}
	return nil
}
