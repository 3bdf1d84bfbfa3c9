package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/feedpilot/feedpilot-backend/internal/errors"
	"github.com/feedpilot/feedpilot-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	Update(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, active *bool) ([]*model.Campaign, int, error)
	ListActive() ([]*model.Campaign, error)
	TouchLastIngested(campaignID int, at time.Time) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, feed_urls, schedule, timezone, caption_template, topic_keywords,
	auto_publish, is_active, last_ingested_at, created_at, updated_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	query := `
		INSERT INTO campaigns (name, feed_urls, schedule, timezone, caption_template, topic_keywords,
			auto_publish, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	return r.DB.QueryRow(query,
		c.Name, pq.Array(c.FeedURLs), c.Schedule, c.Timezone, c.CaptionTemplate,
		pq.Array(c.TopicKeywords), c.AutoPublish, c.IsActive, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
		UPDATE campaigns
		SET name=$1, feed_urls=$2, schedule=$3, timezone=$4, caption_template=$5,
			topic_keywords=$6, auto_publish=$7, is_active=$8, updated_at=NOW()
		WHERE id=$9
	`
	_, err := r.DB.Exec(query,
		c.Name, pq.Array(c.FeedURLs), c.Schedule, c.Timezone, c.CaptionTemplate,
		pq.Array(c.TopicKeywords), c.AutoPublish, c.IsActive, c.ID,
	)
	return err
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, active *bool) ([]*model.Campaign, int, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	countQuery := `SELECT COUNT(*) FROM campaigns`
	args := []interface{}{}

	if active != nil {
		query += ` WHERE is_active=$1`
		countQuery += ` WHERE is_active=$1`
		args = append(args, *active)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) ListActive() ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE is_active=true ORDER BY id`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// TouchLastIngested only ever moves the timestamp forward.
func (r *CampaignRepository) TouchLastIngested(campaignID int, at time.Time) error {
	query := `
		UPDATE campaigns
		SET last_ingested_at=$1, updated_at=NOW()
		WHERE id=$2 AND (last_ingested_at IS NULL OR last_ingested_at < $1)
	`
	_, err := r.DB.Exec(query, at, campaignID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	c := &model.Campaign{}
	err := row.Scan(
		&c.ID, &c.Name, &c.FeedURLs, &c.Schedule, &c.Timezone, &c.CaptionTemplate,
		&c.TopicKeywords, &c.AutoPublish, &c.IsActive, &c.LastIngestedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
