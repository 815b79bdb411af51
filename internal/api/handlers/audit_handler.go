package handlers

import (
	"net/http"

	"suitehub/internal/api/middleware"
	"suitehub/internal/platform/repositories"
)

type AuditHandler struct {
	repo *repositories.AuditRepository
}

func NewAuditHandler(repo *repositories.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())

	logs, err := h.repo.ListByTeam(r.Context(), tc.Team.ID, queryInt(r, "limit", 100))
	if err != nil {
		internalError(w, r, "Failed to list audit logs", err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
