package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/feedpilot/feedpilot-backend/internal/errors"
	"github.com/feedpilot/feedpilot-backend/internal/model"
)

type PostRepositoryInterface interface {
	Create(p *model.Post) error
	GetByID(id int) (*model.Post, error)
	Update(p *model.Post) error

	// ListByCampaignAndStatus returns posts newest-first by created_at.
	ListByCampaignAndStatus(campaignID int, status model.Status) ([]*model.Post, error)
	CountByCampaignAndStatus(campaignID int, status model.Status) (int, error)

	ScheduledWithin(campaignID int, from, to time.Time) ([]*model.Post, error)
	PostedWithin(campaignID int, from, to time.Time) ([]*model.Post, error)
	DueScheduled(campaignID int, now time.Time) ([]*model.Post, error)
	ScheduledDueWithin(until time.Time) ([]*model.Post, error)

	ExistsBySource(campaignID int, guid, url, title string) (bool, error)
	ImageURLInUse(url string) (bool, error)

	DeletePostedBefore(cutoff time.Time) (int, error)
	StatsByCampaign(campaignID int) (map[string]int, error)
}

type PostRepository struct {
	DB *sql.DB
}

const postColumns = `id, campaign_id, guid, source_url, title, summary, status, scheduled_for,
	COALESCE(generated_caption, ''), COALESCE(image_url, ''), posted_at, retry_count,
	COALESCE(failure_reason, ''), created_at, updated_at`

func (r *PostRepository) Create(p *model.Post) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.StatusDraft
	}
	query := `
		INSERT INTO posts (campaign_id, guid, source_url, title, summary, status, scheduled_for,
			generated_caption, image_url, posted_at, retry_count, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	return r.DB.QueryRow(query,
		p.CampaignID, p.GUID, p.SourceURL, p.Title, p.Summary, string(p.Status), p.ScheduledFor,
		p.GeneratedCaption, p.ImageURL, p.PostedAt, p.RetryCount, p.FailureReason,
		p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
}

func (r *PostRepository) GetByID(id int) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id=$1`
	p, err := scanPost(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewPostNotFound(id)
		}
		return nil, err
	}
	return p, nil
}

func (r *PostRepository) Update(p *model.Post) error {
	p.UpdatedAt = time.Now()
	query := `
		UPDATE posts
		SET status=$1, scheduled_for=$2, generated_caption=$3, image_url=$4, posted_at=$5,
			retry_count=$6, failure_reason=$7, updated_at=$8
		WHERE id=$9
	`
	_, err := r.DB.Exec(query,
		string(p.Status), p.ScheduledFor, p.GeneratedCaption, p.ImageURL, p.PostedAt,
		p.RetryCount, p.FailureReason, p.UpdatedAt, p.ID,
	)
	return err
}

func (r *PostRepository) ListByCampaignAndStatus(campaignID int, status model.Status) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE campaign_id=$1 AND status=$2 ORDER BY created_at DESC`
	return r.queryPosts(query, campaignID, string(status))
}

func (r *PostRepository) CountByCampaignAndStatus(campaignID int, status model.Status) (int, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM posts WHERE campaign_id=$1 AND status=$2`,
		campaignID, string(status),
	).Scan(&count)
	return count, err
}

func (r *PostRepository) ScheduledWithin(campaignID int, from, to time.Time) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE campaign_id=$1 AND status=$2 AND scheduled_for BETWEEN $3 AND $4
		ORDER BY scheduled_for`
	return r.queryPosts(query, campaignID, string(model.StatusScheduled), from, to)
}

func (r *PostRepository) PostedWithin(campaignID int, from, to time.Time) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE campaign_id=$1 AND status=$2 AND posted_at BETWEEN $3 AND $4
		ORDER BY posted_at`
	return r.queryPosts(query, campaignID, string(model.StatusPosted), from, to)
}

func (r *PostRepository) DueScheduled(campaignID int, now time.Time) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE campaign_id=$1 AND status=$2 AND scheduled_for <= $3
		ORDER BY scheduled_for`
	return r.queryPosts(query, campaignID, string(model.StatusScheduled), now)
}

// ScheduledDueWithin returns every scheduled post, any campaign, due before
// until. Used by the preparation pass.
func (r *PostRepository) ScheduledDueWithin(until time.Time) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status=$1 AND scheduled_for <= $2
		ORDER BY scheduled_for`
	return r.queryPosts(query, string(model.StatusScheduled), until)
}

func (r *PostRepository) ExistsBySource(campaignID int, guid, url, title string) (bool, error) {
	query := `
		SELECT 1 FROM posts
		WHERE campaign_id=$1 AND (
			(guid <> '' AND guid=$2) OR
			(source_url <> '' AND source_url=$3) OR
			(title <> '' AND title=$4)
		)
		LIMIT 1
	`
	var tmp int
	err := r.DB.QueryRow(query, campaignID, guid, url, title).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ImageURLInUse checks across all campaigns; image reuse is rejected web-wide.
func (r *PostRepository) ImageURLInUse(url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	var tmp int
	err := r.DB.QueryRow(`SELECT 1 FROM posts WHERE image_url=$1 LIMIT 1`, url).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PostRepository) DeletePostedBefore(cutoff time.Time) (int, error) {
	res, err := r.DB.Exec(
		`DELETE FROM posts WHERE status=$1 AND posted_at < $2`,
		string(model.StatusPosted), cutoff,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostRepository) StatsByCampaign(campaignID int) (map[string]int, error) {
	rows, err := r.DB.Query(
		`SELECT status, COUNT(*) FROM posts WHERE campaign_id=$1 GROUP BY status`,
		campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"draft":     0,
		"scheduled": 0,
		"posted":    0,
		"failed":    0,
	}
	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		if _, ok := stats[status]; ok {
			stats[status] = count
		}
		total += count
	}
	stats["total"] = total
	return stats, rows.Err()
}

func (r *PostRepository) queryPosts(query string, args ...interface{}) ([]*model.Post, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(row rowScanner) (*model.Post, error) {
	p := &model.Post{}
	var status string
	err := row.Scan(
		&p.ID, &p.CampaignID, &p.GUID, &p.SourceURL, &p.Title, &p.Summary, &status,
		&p.ScheduledFor, &p.GeneratedCaption, &p.ImageURL, &p.PostedAt, &p.RetryCount,
		&p.FailureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.Status(status)
	return p, nil
}

var _ PostRepositoryInterface = (*PostRepository)(nil)
