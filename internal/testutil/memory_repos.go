// Package testutil provides in-memory repository implementations for tests.
package testutil

import (
	"sort"
	"sync"
	"time"

	appErrors "github.com/feedpilot/feedpilot-backend/internal/errors"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/repository"
)

// MemoryPostRepo implements repository.PostRepositoryInterface over a map.
type MemoryPostRepo struct {
	mu     sync.Mutex
	nextID int
	posts  map[int]*model.Post
}

func NewMemoryPostRepo() *MemoryPostRepo {
	return &MemoryPostRepo{posts: map[int]*model.Post{}}
}

// Seed inserts a post as-is, assigning an ID if missing.
func (r *MemoryPostRepo) Seed(p *model.Post) *model.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	} else if p.ID > r.nextID {
		r.nextID = p.ID
	}
	clone := *p
	r.posts[p.ID] = &clone
	return p
}

func (r *MemoryPostRepo) Create(p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.StatusDraft
	}
	clone := *p
	r.posts[p.ID] = &clone
	return nil
}

func (r *MemoryPostRepo) GetByID(id int) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, appErrors.NewPostNotFound(id)
	}
	clone := *p
	return &clone, nil
}

func (r *MemoryPostRepo) Update(p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return appErrors.NewPostNotFound(p.ID)
	}
	p.UpdatedAt = time.Now()
	clone := *p
	r.posts[p.ID] = &clone
	return nil
}

func (r *MemoryPostRepo) ListByCampaignAndStatus(campaignID int, status model.Status) ([]*model.Post, error) {
	posts := r.filter(func(p *model.Post) bool {
		return p.CampaignID == campaignID && p.Status == status
	})
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (r *MemoryPostRepo) CountByCampaignAndStatus(campaignID int, status model.Status) (int, error) {
	posts, _ := r.ListByCampaignAndStatus(campaignID, status)
	return len(posts), nil
}

func (r *MemoryPostRepo) ScheduledWithin(campaignID int, from, to time.Time) ([]*model.Post, error) {
	return r.filter(func(p *model.Post) bool {
		return p.CampaignID == campaignID && p.Status == model.StatusScheduled &&
			p.ScheduledFor != nil && !p.ScheduledFor.Before(from) && !p.ScheduledFor.After(to)
	}), nil
}

func (r *MemoryPostRepo) PostedWithin(campaignID int, from, to time.Time) ([]*model.Post, error) {
	return r.filter(func(p *model.Post) bool {
		return p.CampaignID == campaignID && p.Status == model.StatusPosted &&
			p.PostedAt != nil && !p.PostedAt.Before(from) && !p.PostedAt.After(to)
	}), nil
}

func (r *MemoryPostRepo) DueScheduled(campaignID int, now time.Time) ([]*model.Post, error) {
	posts := r.filter(func(p *model.Post) bool {
		return p.CampaignID == campaignID && p.Status == model.StatusScheduled &&
			p.ScheduledFor != nil && !p.ScheduledFor.After(now)
	})
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ScheduledFor.Before(*posts[j].ScheduledFor)
	})
	return posts, nil
}

func (r *MemoryPostRepo) ScheduledDueWithin(until time.Time) ([]*model.Post, error) {
	return r.filter(func(p *model.Post) bool {
		return p.Status == model.StatusScheduled &&
			p.ScheduledFor != nil && !p.ScheduledFor.After(until)
	}), nil
}

func (r *MemoryPostRepo) ExistsBySource(campaignID int, guid, url, title string) (bool, error) {
	matches := r.filter(func(p *model.Post) bool {
		if p.CampaignID != campaignID {
			return false
		}
		return (guid != "" && p.GUID == guid) ||
			(url != "" && p.SourceURL == url) ||
			(title != "" && p.Title == title)
	})
	return len(matches) > 0, nil
}

func (r *MemoryPostRepo) ImageURLInUse(url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	matches := r.filter(func(p *model.Post) bool { return p.ImageURL == url })
	return len(matches) > 0, nil
}

func (r *MemoryPostRepo) DeletePostedBefore(cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, p := range r.posts {
		if p.Status == model.StatusPosted && p.PostedAt != nil && p.PostedAt.Before(cutoff) {
			delete(r.posts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryPostRepo) StatsByCampaign(campaignID int) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := map[string]int{"draft": 0, "scheduled": 0, "posted": 0, "failed": 0, "total": 0}
	for _, p := range r.posts {
		if p.CampaignID != campaignID {
			continue
		}
		stats[p.Status.String()]++
		stats["total"]++
	}
	return stats, nil
}

func (r *MemoryPostRepo) filter(keep func(*model.Post) bool) []*model.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	posts := []*model.Post{}
	ids := make([]int, 0, len(r.posts))
	for id := range r.posts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if p := r.posts[id]; keep(p) {
			clone := *p
			posts = append(posts, &clone)
		}
	}
	return posts
}

// MemoryCampaignRepo implements repository.CampaignRepositoryInterface.
type MemoryCampaignRepo struct {
	mu        sync.Mutex
	nextID    int
	campaigns map[int]*model.Campaign
}

func NewMemoryCampaignRepo() *MemoryCampaignRepo {
	return &MemoryCampaignRepo{campaigns: map[int]*model.Campaign{}}
}

func (r *MemoryCampaignRepo) Seed(c *model.Campaign) *model.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
	} else if c.ID > r.nextID {
		r.nextID = c.ID
	}
	clone := *c
	r.campaigns[c.ID] = &clone
	return c
}

func (r *MemoryCampaignRepo) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	clone := *c
	r.campaigns[c.ID] = &clone
	return nil
}

func (r *MemoryCampaignRepo) Update(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[c.ID]; !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	clone := *c
	r.campaigns[c.ID] = &clone
	return nil
}

func (r *MemoryCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	clone := *c
	return &clone, nil
}

func (r *MemoryCampaignRepo) ListCampaigns(offset, limit int, active *bool) ([]*model.Campaign, int, error) {
	all := r.list(func(c *model.Campaign) bool {
		return active == nil || c.IsActive == *active
	})
	total := len(all)
	if offset >= len(all) {
		return []*model.Campaign{}, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *MemoryCampaignRepo) ListActive() ([]*model.Campaign, error) {
	return r.list(func(c *model.Campaign) bool { return c.IsActive }), nil
}

func (r *MemoryCampaignRepo) TouchLastIngested(campaignID int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	if c.LastIngestedAt == nil || c.LastIngestedAt.Before(at) {
		c.LastIngestedAt = &at
	}
	return nil
}

func (r *MemoryCampaignRepo) list(keep func(*model.Campaign) bool) []*model.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.campaigns))
	for id := range r.campaigns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	campaigns := []*model.Campaign{}
	for _, id := range ids {
		if c := r.campaigns[id]; keep(c) {
			clone := *c
			campaigns = append(campaigns, &clone)
		}
	}
	return campaigns
}

// MemoryLogRepo collects activity log entries.
type MemoryLogRepo struct {
	mu      sync.Mutex
	Entries []*model.LogEntry
}

func NewMemoryLogRepo() *MemoryLogRepo {
	return &MemoryLogRepo{}
}

func (r *MemoryLogRepo) Create(entry *model.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = len(r.Entries) + 1
	entry.CreatedAt = time.Now()
	r.Entries = append(r.Entries, entry)
	return nil
}

func (r *MemoryLogRepo) ListByCampaign(campaignID, limit int) ([]*model.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit < 1 {
		limit = 50
	}
	entries := []*model.LogEntry{}
	for i := len(r.Entries) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.Entries[i].CampaignID == campaignID {
			entries = append(entries, r.Entries[i])
		}
	}
	return entries, nil
}

var (
	_ repository.PostRepositoryInterface     = (*MemoryPostRepo)(nil)
	_ repository.CampaignRepositoryInterface = (*MemoryCampaignRepo)(nil)
	_ repository.LogRepositoryInterface      = (*MemoryLogRepo)(nil)
)
