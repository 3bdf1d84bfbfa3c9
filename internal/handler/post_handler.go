// internal/handler/post_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/feedpilot/feedpilot-backend/internal/errors"
	"github.com/feedpilot/feedpilot-backend/internal/model"
	"github.com/feedpilot/feedpilot-backend/internal/service"
)

type PostHandler struct {
	Service *service.PostService
}

func (h *PostHandler) ListByCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	status := model.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = model.StatusDraft
	}
	if !status.Valid() {
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}

	posts, err := h.Service.ListByCampaign(campaignID, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": posts})
}

// Unschedule reverts a scheduled post to draft.
func (h *PostHandler) Unschedule(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(postID int) (*model.Post, error) {
		return h.Service.Unschedule(postID)
	})
}

// Reprocess returns a failed post to draft and re-enriches it.
func (h *PostHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(postID int) (*model.Post, error) {
		return h.Service.Reprocess(r.Context(), postID)
	})
}

func (h *PostHandler) transition(w http.ResponseWriter, r *http.Request, op func(postID int) (*model.Post, error)) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return
	}

	post, err := op(id)
	if err != nil {
		status := http.StatusInternalServerError
		var notFound *appErrors.ErrPostNotFound
		var illegal *appErrors.ErrIllegalTransition
		switch {
		case errors.As(err, &notFound):
			status = http.StatusNotFound
		case errors.As(err, &illegal):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(post)
}
