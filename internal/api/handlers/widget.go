package handlers

import (
	"net/http"

	"github.com/sie-engine/siechat/internal/api"
	"github.com/sie-engine/siechat/internal/service"
)

// WidgetHandler serves the embeddable chat widget's runtime settings.
type WidgetHandler struct {
	title  string
	policy service.AccessPolicy
}

func NewWidgetHandler(title string, policy service.AccessPolicy) *WidgetHandler {
	return &WidgetHandler{title: title, policy: policy}
}

type WidgetConfigResponse struct {
	Title      string `json:"title"`
	AccessMode string `json:"access_mode"`
}

// GetConfig handles GET /widget/config.
func (h *WidgetHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, WidgetConfigResponse{
		Title:      h.title,
		AccessMode: string(h.policy.Mode),
	})
}
