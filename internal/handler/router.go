package handler

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter wires the thin HTTP surface.
func NewRouter(campaigns *CampaignHandler, posts *PostHandler) chi.Router {
	r := chi.NewRouter()

	r.Post("/campaigns", campaigns.CreateCampaign)
	r.Get("/campaigns", campaigns.ListCampaigns)
	r.Get("/campaigns/{id}", campaigns.GetCampaign)
	r.Put("/campaigns/{id}", campaigns.UpdateCampaign)
	r.Post("/campaigns/{id}/ingest", campaigns.TriggerIngest)
	r.Get("/campaigns/{id}/posts", posts.ListByCampaign)
	r.Get("/campaigns/{id}/logs", campaigns.ListActivity)

	r.Post("/posts/{id}/unschedule", posts.Unschedule)
	r.Post("/posts/{id}/reprocess", posts.Reprocess)

	return r
}
