// internal/model/campaign.go
package model

import (
	"time"

	"github.com/lib/pq"
)

type Campaign struct {
	ID              int            `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	FeedURLs        pq.StringArray `db:"feed_urls" json:"feed_urls"`
	Schedule        string         `db:"schedule" json:"schedule"` // cron expression, empty = no recurrence
	Timezone        *string        `db:"timezone" json:"timezone,omitempty"`
	CaptionTemplate string         `db:"caption_template" json:"caption_template"`
	TopicKeywords   pq.StringArray `db:"topic_keywords" json:"topic_keywords"`
	AutoPublish     bool           `db:"auto_publish" json:"auto_publish"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	LastIngestedAt  *time.Time     `db:"last_ingested_at" json:"last_ingested_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
