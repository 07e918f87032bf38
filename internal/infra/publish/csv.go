package publish

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"standup_bot/internal/domain/standup"
)

// CSVPublisher writes run reports as CSV files under a local directory, one
// file per run. Rewriting the whole file on retry keeps delivery idempotent.
type CSVPublisher struct {
	dir         string
	standupRepo standup.Repository
}

func NewCSVPublisher(dir string, standupRepo standup.Repository) *CSVPublisher {
	return &CSVPublisher{dir: dir, standupRepo: standupRepo}
}

func (p *CSVPublisher) Publish(_ context.Context, run *standup.Run, responses []*standup.Response) (string, error) {
	path := filepath.Join(p.dir, run.WorkspaceID, fmt.Sprintf("standup_%s.csv", run.RunDate.Format(dateLayout)))

	rows := make([][]string, 0, len(responses)+1)
	rows = append(rows, Header())
	for _, resp := range responses {
		rows = append(rows, Row(run, resp))
	}

	if err := writeCSV(path, rows); err != nil {
		return "", err
	}
	return path, nil
}

// ExportRange writes a single CSV covering every closed run in the inclusive
// date range and returns the file path.
func (p *CSVPublisher) ExportRange(ctx context.Context, workspaceID string, from, to time.Time) (string, error) {
	runs, err := p.standupRepo.ListClosedRunsBetween(ctx, workspaceID, from, to)
	if err != nil {
		return "", fmt.Errorf("listing runs between %s and %s: %w", from.Format(dateLayout), to.Format(dateLayout), err)
	}

	rows := [][]string{Header()}
	// Newest-first from the repository; exports read better oldest-first.
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		responses, err := p.standupRepo.ListResponses(ctx, run.ID)
		if err != nil {
			return "", fmt.Errorf("loading responses for run %d: %w", run.ID, err)
		}
		for _, resp := range responses {
			rows = append(rows, Row(run, resp))
		}
	}

	path := filepath.Join(p.dir, workspaceID,
		fmt.Sprintf("standups_%s_%s.csv", from.Format(dateLayout), to.Format(dateLayout)))
	if err := writeCSV(path, rows); err != nil {
		return "", err
	}
	return path, nil
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
