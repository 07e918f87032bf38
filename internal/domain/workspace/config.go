package workspace

import "time"

// Config holds per-workspace standup settings. Destination identifiers
// (spreadsheet, Notion page) enable their delivery destination by mere
// presence. Corresponds to the 'workspace_configs' table.
type Config struct {
	ID                  int64
	WorkspaceID         string
	Timezone            string // IANA zone name
	WindowOpenTime      string // "HH:MM" in workspace local time
	WindowCloseTime     string
	ReminderTimes       []string // up to 3, "HH:MM"
	ManagementChannelID string
	ReportChannelID     string
	GoogleSpreadsheetID string
	NotionParentPageID  string
	RetentionDays       int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DefaultRetentionDays is applied when a workspace has no explicit retention
// policy (5 years).
const DefaultRetentionDays = 1825

// Retention returns the configured retention period, falling back to the
// default when unset.
func (c *Config) Retention() int {
	if c.RetentionDays <= 0 {
		return DefaultRetentionDays
	}
	return c.RetentionDays
}
