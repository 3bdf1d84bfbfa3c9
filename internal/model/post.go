// internal/model/post.go
package model

import "time"

type Post struct {
	ID               int        `db:"id" json:"id"`
	CampaignID       int        `db:"campaign_id" json:"campaign_id"`
	GUID             string     `db:"guid" json:"guid"`
	SourceURL        string     `db:"source_url" json:"source_url"`
	Title            string     `db:"title" json:"title"`
	Summary          string     `db:"summary" json:"summary,omitempty"`
	Status           Status     `db:"status" json:"status"`
	ScheduledFor     *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	GeneratedCaption string     `db:"generated_caption" json:"generated_caption,omitempty"`
	ImageURL         string     `db:"image_url" json:"image_url,omitempty"`
	PostedAt         *time.Time `db:"posted_at" json:"posted_at,omitempty"`
	RetryCount       int        `db:"retry_count" json:"retry_count"`
	FailureReason    string     `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// HasCaption reports whether enrichment already produced a caption.
func (p *Post) HasCaption() bool {
	return p.GeneratedCaption != ""
}
