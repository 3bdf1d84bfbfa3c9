// internal/model/log_entry.go
package model

import "time"

// LogEntry is an append-only audit record emitted on every post transition.
type LogEntry struct {
	ID         int            `db:"id" json:"id"`
	CampaignID int            `db:"campaign_id" json:"campaign_id"`
	PostID     *int           `db:"post_id" json:"post_id,omitempty"`
	Severity   string         `db:"severity" json:"severity"` // info, warning, error
	Message    string         `db:"message" json:"message"`
	Metadata   map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)
