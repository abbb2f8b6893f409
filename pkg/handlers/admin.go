package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/schema"
	"github.com/bcgov/unity-ai/pkg/services"
)

// CheckAdminResponse for POST /api/check-admin
type CheckAdminResponse struct {
	IsAdmin bool   `json:"is_admin"`
	UserID  string `json:"user_id"`
}

// EmbedRequest for POST /api/admin/embed. An empty tenant_id re-embeds
// every configured tenant.
type EmbedRequest struct {
	TenantID string `json:"tenant_id"`
}

// EmbedResponse lists the databases that were re-indexed.
type EmbedResponse struct {
	Results []*schema.IndexResult `json:"results"`
}

// AdminHandler handles privilege checks and schema maintenance.
type AdminHandler struct {
	embeddingService services.EmbeddingService
	logger           *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(embeddingService services.EmbeddingService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		embeddingService: embeddingService,
		logger:           logger,
	}
}

// RegisterRoutes registers the admin handler's routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/check-admin", authMiddleware.RequireAuth(h.CheckAdmin))
	mux.HandleFunc("POST /api/admin/embed", authMiddleware.RequireAdmin(h.Embed))
}

// CheckAdmin handles POST /api/check-admin
func (h *AdminHandler) CheckAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	resp := CheckAdminResponse{IsAdmin: caller.IsAdmin, UserID: caller.UserID}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Embed handles POST /api/admin/embed
func (h *AdminHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req, h.logger) {
		return
	}

	var results []*schema.IndexResult
	if tenantID := strings.TrimSpace(req.TenantID); tenantID != "" {
		result, err := h.embeddingService.EmbedTenant(r.Context(), tenantID)
		if err != nil {
			writeServiceError(w, err, "embed_failed", h.logger)
			return
		}
		results = []*schema.IndexResult{result}
	} else {
		all, err := h.embeddingService.EmbedAll(r.Context())
		if err != nil {
			writeServiceError(w, err, "embed_failed", h.logger)
			return
		}
		results = all
	}

	if err := WriteJSON(w, http.StatusOK, EmbedResponse{Results: results}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
