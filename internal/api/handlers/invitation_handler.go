package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/access"
	"suitehub/internal/engine/invitelinks"
	"suitehub/internal/engine/webhooks"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/pkg/validator"
	"suitehub/internal/platform/audit"
	"suitehub/internal/platform/auth"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

type InvitationHandler struct {
	invitationRepo *repositories.InvitationRepository
	publicRepo     *repositories.PublicInviteRepository
	memberRepo     *repositories.MemberRepository
	subRepo        *repositories.SubscriptionRepository
	dispatcher     *webhooks.Dispatcher
	audit          *audit.Logger
	maxInviteTTL   time.Duration
}

func NewInvitationHandler(
	invitationRepo *repositories.InvitationRepository,
	publicRepo *repositories.PublicInviteRepository,
	memberRepo *repositories.MemberRepository,
	subRepo *repositories.SubscriptionRepository,
	dispatcher *webhooks.Dispatcher,
	auditLog *audit.Logger,
	maxInviteTTL time.Duration,
) *InvitationHandler {
	return &InvitationHandler{
		invitationRepo: invitationRepo,
		publicRepo:     publicRepo,
		memberRepo:     memberRepo,
		subRepo:        subRepo,
		dispatcher:     dispatcher,
		audit:          auditLog,
		maxInviteTTL:   maxInviteTTL,
	}
}

// ListMine returns invitations addressed to the caller, each with its team.
func (h *InvitationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := claimsOf(r)

	invitations, err := h.invitationRepo.ListByEmail(r.Context(), claims.Email)
	if err != nil {
		internalError(w, r, "Failed to list invitations", err)
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	claims := claimsOf(r)

	inv, err := h.invitationRepo.GetByID(r.Context(), middleware.Param(r, "id"))
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if inv == nil || !strings.EqualFold(inv.Email, claims.Email) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Invitation not found", nil)
		return
	}
	if inv.Status != models.InvitationPending {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Invitation is no longer pending", nil)
		return
	}

	// Membership first: a failed join leaves the invitation pending and
	// acceptable again.
	if err := h.join(r.Context(), inv.TeamID, claims, inv.Role); err != nil {
		internalError(w, r, "Failed to add team member", err)
		return
	}
	if err := h.invitationRepo.UpdateStatus(r.Context(), inv.ID, models.InvitationActive); err != nil {
		internalError(w, r, "Failed to accept invitation", err)
		return
	}
	inv.Status = models.InvitationActive

	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), inv.TeamID, "invitation.accepted", "invitation", inv.ID, nil)
	writeJSON(w, http.StatusOK, inv)
}

// join makes the caller an active member of the team. An existing active
// membership keeps its role.
func (h *InvitationHandler) join(ctx context.Context, teamID string, claims *auth.Claims, role string) error {
	members, err := h.memberRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if strings.EqualFold(m.Email, claims.Email) && m.Status == models.MemberStatusActive {
			return nil
		}
	}

	now := time.Now().Unix()
	return h.memberRepo.Upsert(ctx, &models.TeamMember{
		ID:          "mem_" + uuid.NewString(),
		TeamID:      teamID,
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        access.NormalizeRole(role),
		Status:      models.MemberStatusActive,
		JoinedAt:    &now,
	})
}

// ListMembers returns the subscription's member list.
func (h *InvitationHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())

	invitations, err := h.invitationRepo.ListBySubscription(r.Context(), sub.ID)
	if err != nil {
		internalError(w, r, "Failed to list members", err)
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

type InviteMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)

	var req InviteMemberRequest
	if !decode(w, r, &req) {
		return
	}
	role, ok := invitableRole(req.Role)
	if !ok {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed",
			map[string]string{"role": "must be one of: billing_admin member"})
		return
	}
	email := validator.NormalizeEmail(req.Email)

	existing, err := h.invitationRepo.GetBySubscriptionAndEmail(r.Context(), sub.ID, email)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if existing != nil {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "This email is already a member of the subscription", nil)
		return
	}

	now := time.Now().Unix()
	inv := &models.Invitation{
		ID:             "inv_" + uuid.NewString(),
		TeamID:         tc.Team.ID,
		SubscriptionID: sub.ID,
		AppCode:        sub.AppCode,
		Email:          email,
		Role:           role,
		Status:         models.InvitationPending,
		InvitedBy:      claims.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.invitationRepo.Create(r.Context(), inv); err != nil {
		internalError(w, r, "Failed to create invitation", err)
		return
	}

	if !listed(tc.Members, email) {
		err := h.memberRepo.Upsert(r.Context(), &models.TeamMember{
			ID:     "mem_" + uuid.NewString(),
			TeamID: tc.Team.ID,
			Email:  email,
			Role:   role,
			Status: models.MemberStatusInvited,
		})
		if err != nil {
			internalError(w, r, "Failed to add team member", err)
			return
		}
	}

	h.dispatcher.Dispatch(r.Context(), sub, webhooks.EventMemberInvited, inv)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), tc.Team.ID, "member.invited", "invitation", inv.ID,
		map[string]interface{}{"email": email, "role": role, "app_code": sub.AppCode})

	writeJSON(w, http.StatusCreated, inv)
}

// RemoveMember deletes a subscription membership. The team membership goes
// with it once no other subscription of the team lists the email.
func (h *InvitationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)

	inv, err := h.invitationRepo.GetByID(r.Context(), middleware.Param(r, "member_id"))
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if inv == nil || inv.SubscriptionID != sub.ID {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Member not found", nil)
		return
	}

	if err := h.invitationRepo.Delete(r.Context(), inv.ID); err != nil {
		internalError(w, r, "Failed to remove member", err)
		return
	}

	remaining, err := h.invitationRepo.ListByEmail(r.Context(), inv.Email)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	// The owner's row stays whatever subscriptions list them.
	stillListed := strings.EqualFold(inv.Email, tc.Team.Owner)
	for _, other := range remaining {
		if other.TeamID == tc.Team.ID {
			stillListed = true
			break
		}
	}
	if !stillListed {
		if err := h.memberRepo.DeleteByTeamAndEmail(r.Context(), tc.Team.ID, inv.Email); err != nil {
			internalError(w, r, "Failed to remove team member", err)
			return
		}
	}

	h.dispatcher.Dispatch(r.Context(), sub, webhooks.EventMemberRemoved, inv)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), tc.Team.ID, "member.removed", "invitation", inv.ID,
		map[string]interface{}{"email": inv.Email, "app_code": sub.AppCode})

	w.WriteHeader(http.StatusNoContent)
}

type PublicInviteRequest struct {
	TTLSeconds int64  `json:"ttl_seconds" validate:"required,min=1"`
	Role       string `json:"role"`
}

type PublicInviteResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// CreatePublicInvite mints a shareable link that adds whoever redeems it to
// the subscription.
func (h *InvitationHandler) CreatePublicInvite(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)

	var req PublicInviteRequest
	if !decode(w, r, &req) {
		return
	}
	now := time.Now()
	expiresAt, err := invitelinks.Expiry(now, req.TTLSeconds, h.maxInviteTTL)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed",
			map[string]string{"ttl_seconds": err.Error()})
		return
	}
	role := models.RoleMember
	if req.Role != "" {
		var ok bool
		if role, ok = invitableRole(req.Role); !ok {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed",
				map[string]string{"role": "must be one of: billing_admin member"})
			return
		}
	}

	token, err := invitelinks.GenerateToken(r.Context(), h.publicRepo)
	if err != nil {
		internalError(w, r, "Failed to create invite link", err)
		return
	}
	invite := &models.PublicInvite{
		Token:          token,
		SubscriptionID: sub.ID,
		Role:           role,
		ExpiresAt:      expiresAt,
		CreatedBy:      claims.Email,
		CreatedAt:      now.Unix(),
	}
	if err := h.publicRepo.Create(r.Context(), invite); err != nil {
		internalError(w, r, "Failed to create invite link", err)
		return
	}

	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), sub.TeamID, "invite_link.created", "subscription", sub.ID,
		map[string]interface{}{"expires_at": invite.ExpiresAt})

	writeJSON(w, http.StatusCreated, PublicInviteResponse{Token: invite.Token, Role: invite.Role, ExpiresAt: invite.ExpiresAt})
}

// RedeemPublicInvite joins the caller to the link's subscription.
func (h *InvitationHandler) RedeemPublicInvite(w http.ResponseWriter, r *http.Request) {
	claims := claimsOf(r)

	token := middleware.Param(r, "token")
	if !invitelinks.ValidToken(token) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Invite link not found or expired", nil)
		return
	}
	invite, err := h.publicRepo.Get(r.Context(), token)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if invite == nil || invite.ExpiresAt <= time.Now().Unix() {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Invite link not found or expired", nil)
		return
	}

	sub, err := h.subRepo.GetByID(r.Context(), invite.SubscriptionID)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if sub == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Invite link not found or expired", nil)
		return
	}

	inv, err := h.invitationRepo.GetBySubscriptionAndEmail(r.Context(), sub.ID, claims.Email)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	role := invite.Role
	if inv != nil {
		role = inv.Role
	}
	if err := h.join(r.Context(), sub.TeamID, claims, role); err != nil {
		internalError(w, r, "Failed to add team member", err)
		return
	}

	status := http.StatusOK
	switch {
	case inv == nil:
		now := time.Now().Unix()
		inv = &models.Invitation{
			ID:             "inv_" + uuid.NewString(),
			TeamID:         sub.TeamID,
			SubscriptionID: sub.ID,
			AppCode:        sub.AppCode,
			Email:          claims.Email,
			Role:           invite.Role,
			Status:         models.InvitationActive,
			InvitedBy:      invite.CreatedBy,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := h.invitationRepo.Create(r.Context(), inv); err != nil {
			internalError(w, r, "Failed to join subscription", err)
			return
		}
		status = http.StatusCreated
	case inv.Status != models.InvitationActive:
		if err := h.invitationRepo.UpdateStatus(r.Context(), inv.ID, models.InvitationActive); err != nil {
			internalError(w, r, "Failed to join subscription", err)
			return
		}
		inv.Status = models.InvitationActive
	}

	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), sub.TeamID, "invite_link.redeemed", "invitation", inv.ID, nil)
	writeJSON(w, status, inv)
}

func invitableRole(role string) (string, bool) {
	role = access.NormalizeRole(role)
	if !access.ValidRole(role) || role == models.RoleOwner {
		return "", false
	}
	return role, true
}

func listed(members []*models.TeamMember, email string) bool {
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			return true
		}
	}
	return false
}
