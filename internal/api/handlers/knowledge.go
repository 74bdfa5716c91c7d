package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sie-engine/siechat/internal/api"
	"github.com/sie-engine/siechat/internal/domain"
)

// KnowledgeSyncer queues documents for indexing and removes them.
type KnowledgeSyncer interface {
	Enqueue(ctx context.Context, doc *domain.Document) (*domain.Document, error)
	Remove(ctx context.Context, documentID string) error
}

type KnowledgeHandler struct {
	svc KnowledgeSyncer
}

func NewKnowledgeHandler(svc KnowledgeSyncer) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type PushDocumentRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Topic string `json:"topic,omitempty"`
}

type PushDocumentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Push handles POST /knowledge. Indexing happens in the background worker,
// so the response is 202 with the queued document's ID.
func (h *KnowledgeHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req PushDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.Enqueue(r.Context(), &domain.Document{
		ID:    req.ID,
		Title: req.Title,
		Body:  req.Body,
		URL:   req.URL,
		Topic: req.Topic,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, PushDocumentResponse{
		ID:     doc.ID,
		Status: "queued",
	})
}

// Delete handles DELETE /knowledge/{id}.
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Remove(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
