package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/workspace"
)

const sheetsBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// SheetsPublisher writes run reports into the workspace's Google
// spreadsheet via the Sheets REST API. Each run gets its own tab named
// standup_<date>; the tab's contents are overwritten in place, so a retried
// job never duplicates rows.
type SheetsPublisher struct {
	httpClient    *http.Client
	token         string
	workspaceRepo workspace.Repository
}

func NewSheetsPublisher(token string, workspaceRepo workspace.Repository) *SheetsPublisher {
	return &SheetsPublisher{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		token:         token,
		workspaceRepo: workspaceRepo,
	}
}

func (p *SheetsPublisher) Publish(ctx context.Context, run *standup.Run, responses []*standup.Response) (string, error) {
	cfg, err := p.workspaceRepo.Get(ctx, run.WorkspaceID)
	if err != nil {
		return "", fmt.Errorf("loading workspace config: %w", err)
	}
	if cfg.GoogleSpreadsheetID == "" {
		return "", fmt.Errorf("workspace %s has no spreadsheet configured", run.WorkspaceID)
	}

	tab := "standup_" + run.RunDate.Format(dateLayout)
	if err := p.ensureTab(ctx, cfg.GoogleSpreadsheetID, tab); err != nil {
		return "", err
	}

	values := make([][]string, 0, len(responses)+1)
	values = append(values, Header())
	for _, resp := range responses {
		values = append(values, Row(run, resp))
	}

	if err := p.writeValues(ctx, cfg.GoogleSpreadsheetID, tab, values); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", cfg.GoogleSpreadsheetID), nil
}

// ensureTab adds the sheet if it does not exist yet. The API rejects
// duplicate names; that rejection means the tab is already there.
func (p *SheetsPublisher) ensureTab(ctx context.Context, spreadsheetID, tab string) error {
	body := map[string]any{
		"requests": []any{
			map[string]any{
				"addSheet": map[string]any{
					"properties": map[string]any{"title": tab},
				},
			},
		},
	}

	err := p.call(ctx, http.MethodPost, fmt.Sprintf("%s/%s:batchUpdate", sheetsBaseURL, spreadsheetID), body)
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return nil
	}
	return err
}

func (p *SheetsPublisher) writeValues(ctx context.Context, spreadsheetID, tab string, values [][]string) error {
	rangeRef := url.PathEscape(fmt.Sprintf("'%s'!A1", tab))

	// Clear first so rows removed since the last attempt do not linger.
	clearURL := fmt.Sprintf("%s/%s/values/%s:clear", sheetsBaseURL, spreadsheetID, url.PathEscape(fmt.Sprintf("'%s'!A:Z", tab)))
	if err := p.call(ctx, http.MethodPost, clearURL, map[string]any{}); err != nil {
		return fmt.Errorf("clearing sheet %s: %w", tab, err)
	}

	updateURL := fmt.Sprintf("%s/%s/values/%s?valueInputOption=RAW", sheetsBaseURL, spreadsheetID, rangeRef)
	body := map[string]any{"values": values}
	if err := p.call(ctx, http.MethodPut, updateURL, body); err != nil {
		return fmt.Errorf("writing sheet %s: %w", tab, err)
	}
	return nil
}

func (p *SheetsPublisher) call(ctx context.Context, method, callURL string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding sheets request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, callURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building sheets request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling sheets api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sheets api returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
