package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/access"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/pkg/validator"
	"suitehub/internal/platform/audit"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

type TeamHandler struct {
	teamRepo   *repositories.TeamRepository
	memberRepo *repositories.MemberRepository
	audit      *audit.Logger
}

func NewTeamHandler(teamRepo *repositories.TeamRepository, memberRepo *repositories.MemberRepository, auditLog *audit.Logger) *TeamHandler {
	return &TeamHandler{
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		audit:      auditLog,
	}
}

// List returns the teams the caller owns. Teams joined by invitation come
// from the invitations endpoint.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := claimsOf(r)

	teams, err := h.teamRepo.ListByOwner(r.Context(), claims.Email)
	if err != nil {
		internalError(w, r, "Failed to list teams", err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

type CreateTeamRequest struct {
	Name         string          `json:"name" validate:"required,max=120"`
	Logo         string          `json:"logo"`
	BillingEmail string          `json:"billing_email" validate:"omitempty,email"`
	TaxID        string          `json:"tax_id"`
	Address      *models.Address `json:"address"`
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := claimsOf(r)

	var req CreateTeamRequest
	if !decode(w, r, &req) {
		return
	}

	now := time.Now().Unix()
	billingEmail := validator.NormalizeEmail(req.BillingEmail)
	if billingEmail == "" {
		billingEmail = claims.Email
	}

	team := &models.Team{
		ID:           "team_" + uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Owner:        claims.Email,
		Verified:     false,
		Logo:         req.Logo,
		Status:       models.TeamStatusPendingVerification,
		BillingEmail: billingEmail,
		TaxID:        req.TaxID,
		Address:      req.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	owner := &models.TeamMember{
		ID:          "mem_" + uuid.NewString(),
		TeamID:      team.ID,
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        models.RoleOwner,
		Status:      models.MemberStatusActive,
		JoinedAt:    &now,
	}

	tx, err := h.teamRepo.BeginTx(r.Context())
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	defer tx.Rollback()

	if err := h.teamRepo.CreateTx(r.Context(), tx, team); err != nil {
		internalError(w, r, "Failed to create team", err)
		return
	}
	if err := h.memberRepo.CreateTx(r.Context(), tx, owner); err != nil {
		internalError(w, r, "Failed to create team owner", err)
		return
	}
	if err := tx.Commit(); err != nil {
		internalError(w, r, "Database error", err)
		return
	}

	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), team.ID, "team.created", "team", team.ID,
		map[string]interface{}{"name": team.Name})

	writeJSON(w, http.StatusCreated, team)
}

// Update applies a partial edit. Profile fields need edit:team, billing
// contact fields need manage:billing.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())

	var patch models.TeamPatch
	if !decode(w, r, &patch) {
		return
	}
	if patch.Empty() {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Nothing to update", nil)
		return
	}
	if patch.TouchesProfile() && !tc.Evaluator.Can(access.EditTeam) {
		writeDomainError(w, r, access.ErrNoPermission)
		return
	}
	billing := patch.BillingEmail != nil || patch.TaxID != nil || patch.Address != nil
	if billing && !tc.Evaluator.Can(access.ManageBilling) {
		writeDomainError(w, r, access.ErrNoPermission)
		return
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed",
				map[string]string{"name": "is required"})
			return
		}
		patch.Name = &name
	}

	team := tc.Team
	patch.Apply(team)
	if err := h.teamRepo.Update(r.Context(), team); err != nil {
		internalError(w, r, "Failed to update team", err)
		return
	}

	claims := claimsOf(r)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), team.ID, "team.updated", "team", team.ID, nil)

	writeJSON(w, http.StatusOK, team)
}

type VerifyTeamRequest struct {
	Verified *bool `json:"verified"`
}

// Verify is a platform operator action; the router restricts it to the
// configured admin emails.
func (h *TeamHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := middleware.Param(r, "id")

	var req VerifyTeamRequest
	if r.ContentLength != 0 {
		if !decode(w, r, &req) {
			return
		}
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}

	team, err := h.teamRepo.GetByID(r.Context(), id)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if team == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Team not found", nil)
		return
	}

	if err := h.teamRepo.SetVerified(r.Context(), team.ID, verified); err != nil {
		internalError(w, r, "Failed to verify team", err)
		return
	}
	team, err = h.teamRepo.GetByID(r.Context(), id)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}

	claims := claimsOf(r)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), team.ID, "team.verified", "team", team.ID,
		map[string]interface{}{"verified": verified})

	writeJSON(w, http.StatusOK, team)
}
