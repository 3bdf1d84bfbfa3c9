package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedpilot/feedpilot-backend/internal/audit"
	"github.com/feedpilot/feedpilot-backend/internal/ingest"
	"github.com/feedpilot/feedpilot-backend/internal/lifecycle"
	"github.com/feedpilot/feedpilot-backend/internal/logging"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/service"
	"github.com/feedpilot/feedpilot-backend/internal/testutil"
)

type passRelevance struct{}

func (passRelevance) Relevant(ctx context.Context, post *model.Post, campaign *model.Campaign) (bool, error) {
	return true, nil
}

type passCaptions struct{}

func (passCaptions) Generate(ctx context.Context, post *model.Post, campaign *model.Campaign) (string, error) {
	return "caption", nil
}

type passImages struct{}

func (passImages) FindImage(ctx context.Context, post *model.Post, campaign *model.Campaign) (string, error) {
	return "https://img.example/x.jpg", nil
}

func newTestServer(t *testing.T) (*httptest.Server, *testutil.MemoryCampaignRepo, *testutil.MemoryPostRepo) {
	t.Helper()

	campaigns := testutil.NewMemoryCampaignRepo()
	posts := testutil.NewMemoryPostRepo()
	logs := testutil.NewMemoryLogRepo()
	recorder := audit.NewRecorder(logs, logging.New("error"))

	ingestor := &ingest.Ingestor{
		Campaigns:    campaigns,
		Posts:        posts,
		Fetcher:      ingest.NewHTTPFetcher(),
		Audit:        recorder,
		FetchTimeout: time.Second,
	}
	machine := &lifecycle.Machine{
		Posts:     posts,
		Relevance: passRelevance{},
		Captions:  passCaptions{},
		Images:    passImages{},
		Audit:     recorder,
	}

	router := NewRouter(
		&CampaignHandler{Service: &service.CampaignService{
			CampaignRepo: campaigns,
			PostRepo:     posts,
			LogRepo:      logs,
			Ingestor:     ingestor,
		}},
		&PostHandler{Service: &service.PostService{
			CampaignRepo: campaigns,
			PostRepo:     posts,
			Machine:      machine,
		}},
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, campaigns, posts
}

func TestCreateCampaign(t *testing.T) {
	server, campaigns, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"name":         "Daily Tech Digest",
		"feed_urls":    []string{"https://feeds.example/tech.xml"},
		"schedule":     "30 8 * * *",
		"timezone":     "America/Los_Angeles",
		"auto_publish": true,
	})
	resp, err := http.Post(server.URL+"/campaigns", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created model.Campaign
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(t, created.ID)
	require.True(t, created.IsActive)

	stored, err := campaigns.GetByID(created.ID)
	require.NoError(t, err)
	require.Equal(t, "Daily Tech Digest", stored.Name)
}

func TestCreateCampaignValidation(t *testing.T) {
	server, _, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"name": "No Feeds"})
	resp, err := http.Post(server.URL+"/campaigns", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateCampaign(t *testing.T) {
	server, campaigns, _ := newTestServer(t)
	campaigns.Seed(&model.Campaign{
		ID: 1, Name: "Tech", IsActive: true, AutoPublish: true,
		FeedURLs: []string{"https://feeds.example/tech.xml"},
	})

	body, _ := json.Marshal(map[string]any{"auto_publish": false, "name": "Tech Weekly"})
	req, _ := http.NewRequest(http.MethodPut, server.URL+"/campaigns/1", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, _ := campaigns.GetByID(1)
	require.Equal(t, "Tech Weekly", stored.Name)
	require.False(t, stored.AutoPublish)
	require.True(t, stored.IsActive, "untouched fields keep their values")
	require.Len(t, stored.FeedURLs, 1)
}

func TestGetCampaignNotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/campaigns/99")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetCampaignWithStats(t *testing.T) {
	server, campaigns, posts := newTestServer(t)
	campaigns.Seed(&model.Campaign{ID: 1, Name: "Tech", IsActive: true})
	posts.Seed(&model.Post{CampaignID: 1, Status: model.StatusDraft})
	posted := time.Now().UTC()
	posts.Seed(&model.Post{CampaignID: 1, Status: model.StatusPosted, PostedAt: &posted})

	resp, err := http.Get(server.URL + "/campaigns/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var details service.CampaignDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	require.Equal(t, "Africa/Nairobi", details.Timezone)
	require.Equal(t, 1, details.Stats["draft"])
	require.Equal(t, 1, details.Stats["posted"])
	require.Equal(t, 2, details.Stats["total"])
}

func TestListPostsByStatus(t *testing.T) {
	server, campaigns, posts := newTestServer(t)
	campaigns.Seed(&model.Campaign{ID: 1, Name: "Tech", IsActive: true})
	posts.Seed(&model.Post{CampaignID: 1, Title: "Draft A", Status: model.StatusDraft})
	slot := time.Now().UTC()
	posts.Seed(&model.Post{CampaignID: 1, Title: "Sched B", Status: model.StatusScheduled, ScheduledFor: &slot})

	resp, err := http.Get(server.URL + "/campaigns/1/posts?status=scheduled")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Data []model.Post `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Data, 1)
	require.Equal(t, "Sched B", payload.Data[0].Title)

	resp, err = http.Get(server.URL + "/campaigns/1/posts?status=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnschedulePost(t *testing.T) {
	server, campaigns, posts := newTestServer(t)
	campaigns.Seed(&model.Campaign{ID: 1, Name: "Tech", IsActive: true})
	slot := time.Now().UTC()
	post := posts.Seed(&model.Post{CampaignID: 1, Status: model.StatusScheduled, ScheduledFor: &slot})

	resp, err := http.Post(server.URL+"/posts/1/unschedule", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, _ := posts.GetByID(post.ID)
	require.Equal(t, model.StatusDraft, stored.Status)
	require.Nil(t, stored.ScheduledFor)

	// Already a draft now: a second unschedule is an illegal transition.
	resp, err = http.Post(server.URL+"/posts/1/unschedule", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnschedulePostNotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/posts/42/unschedule", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReprocessFailedPost(t *testing.T) {
	server, campaigns, posts := newTestServer(t)
	campaigns.Seed(&model.Campaign{ID: 1, Name: "Tech", IsActive: true})
	post := posts.Seed(&model.Post{
		CampaignID:    1,
		Status:        model.StatusFailed,
		FailureReason: "broker unavailable",
		RetryCount:    3,
	})

	resp, err := http.Post(server.URL+"/posts/1/reprocess", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, _ := posts.GetByID(post.ID)
	require.Equal(t, model.StatusDraft, stored.Status)
	require.Empty(t, stored.FailureReason)
	require.Zero(t, stored.RetryCount)
	require.Equal(t, "caption", stored.GeneratedCaption)

	// Both transitions landed in the activity log surface.
	resp, err = http.Get(server.URL + "/campaigns/1/logs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs struct {
		Data []model.LogEntry `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	require.NotEmpty(t, logs.Data)
}

func TestListActivityUnknownCampaign(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/campaigns/99/logs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
