package handlers

import (
	"net/http"
	"strings"

	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/access"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/audit"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

type MemberHandler struct {
	memberRepo *repositories.MemberRepository
	audit      *audit.Logger
}

func NewMemberHandler(memberRepo *repositories.MemberRepository, auditLog *audit.Logger) *MemberHandler {
	return &MemberHandler{memberRepo: memberRepo, audit: auditLog}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())
	writeJSON(w, http.StatusOK, tc.Members)
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())

	var req UpdateRoleRequest
	if !decode(w, r, &req) {
		return
	}
	role := access.NormalizeRole(req.Role)
	if !access.ValidRole(role) || role == models.RoleOwner {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed",
			map[string]string{"role": "must be one of: billing_admin member"})
		return
	}

	member, err := h.memberRepo.GetByID(r.Context(), middleware.Param(r, "member_id"))
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if member == nil || member.TeamID != tc.Team.ID {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Member not found", nil)
		return
	}
	if strings.EqualFold(member.Email, tc.Team.Owner) {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "The team owner's role cannot be changed", nil)
		return
	}

	if err := h.memberRepo.UpdateRole(r.Context(), member.ID, role); err != nil {
		internalError(w, r, "Failed to update role", err)
		return
	}
	previous := member.Role
	member.Role = role

	claims := claimsOf(r)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), tc.Team.ID, "member.role_changed", "member", member.ID,
		map[string]interface{}{"from": previous, "to": role, "email": member.Email})

	writeJSON(w, http.StatusOK, member)
}
