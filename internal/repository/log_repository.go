package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

type LogRepositoryInterface interface {
	Create(entry *model.LogEntry) error
	ListByCampaign(campaignID, limit int) ([]*model.LogEntry, error)
}

type LogRepository struct {
	DB *sql.DB
}

func (r *LogRepository) Create(entry *model.LogEntry) error {
	entry.CreatedAt = time.Now()

	var metadata []byte
	if entry.Metadata != nil {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		metadata = b
	}

	query := `
		INSERT INTO activity_logs (campaign_id, post_id, severity, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRow(query,
		entry.CampaignID, entry.PostID, entry.Severity, entry.Message, metadata, entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *LogRepository) ListByCampaign(campaignID, limit int) ([]*model.LogEntry, error) {
	if limit < 1 {
		limit = 50
	}
	query := `
		SELECT id, campaign_id, post_id, severity, message, metadata, created_at
		FROM activity_logs
		WHERE campaign_id=$1
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.DB.Query(query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*model.LogEntry{}
	for rows.Next() {
		e := &model.LogEntry{}
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.PostID, &e.Severity, &e.Message, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ LogRepositoryInterface = (*LogRepository)(nil)
