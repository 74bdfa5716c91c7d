package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sie-engine/siechat/internal/api"
	"github.com/sie-engine/siechat/internal/domain"
	"github.com/sie-engine/siechat/internal/service"
)

// TopicMapper resolves and administers the topic path-pattern mapping.
type TopicMapper interface {
	Mapping(ctx context.Context) (service.TopicMapping, error)
	CreateTerm(ctx context.Context, pattern, name string, topicID int) (*domain.TopicTerm, error)
	DeleteTerm(ctx context.Context, id string) error
}

type TopicHandler struct {
	svc TopicMapper
}

func NewTopicHandler(svc TopicMapper) *TopicHandler {
	return &TopicHandler{svc: svc}
}

// GetMapping handles GET /topics. The body is a single JSON object mapping
// pattern → topic ID, longest pattern first. Sync clients rely on that
// order, so the mapping is written directly rather than through the data
// envelope.
func (h *TopicHandler) GetMapping(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.svc.Mapping(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, mapping)
}

type CreateTermRequest struct {
	Pattern string `json:"pattern"`
	Name    string `json:"name,omitempty"`
	TopicID int    `json:"topic_id"`
}

type TermResponse struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Name    string `json:"name,omitempty"`
	TopicID int    `json:"topic_id"`
}

// CreateTerm handles POST /topics.
func (h *TopicHandler) CreateTerm(w http.ResponseWriter, r *http.Request) {
	var req CreateTermRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	term, err := h.svc.CreateTerm(r.Context(), req.Pattern, req.Name, req.TopicID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, TermResponse{
		ID:      term.ID,
		Pattern: term.Pattern,
		Name:    term.Name,
		TopicID: term.TopicID,
	})
}

// DeleteTerm handles DELETE /topics/{id}.
func (h *TopicHandler) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteTerm(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
