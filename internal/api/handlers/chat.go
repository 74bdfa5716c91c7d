package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sie-engine/siechat/internal/api"
	"github.com/sie-engine/siechat/internal/api/middleware"
	"github.com/sie-engine/siechat/internal/domain"
	"github.com/sie-engine/siechat/internal/service"
)

// ChatAsker runs the RAG pipeline for one query.
type ChatAsker interface {
	Ask(ctx context.Context, query string) (string, error)
}

type ChatHandler struct {
	svc    ChatAsker
	policy service.AccessPolicy
}

func NewChatHandler(svc ChatAsker, policy service.AccessPolicy) *ChatHandler {
	return &ChatHandler{svc: svc, policy: policy}
}

type ChatRequest struct {
	Query string `json:"query"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// Ask handles POST /chat.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	authenticated := caller != nil
	role := domain.Role("")
	if caller != nil {
		role = caller.Role
	}
	if err := h.policy.Allow(authenticated, role); err != nil {
		api.HandleError(w, err)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := domain.ValidateQuery(req.Query); err != nil {
		api.HandleError(w, err)
		return
	}

	answer, err := h.svc.Ask(r.Context(), req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{Response: answer})
}
