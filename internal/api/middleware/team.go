package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	apiContext "suitehub/internal/api/context"
	"suitehub/internal/engine/access"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

// TeamContext is the team a request acts on and the caller's standing in it.
type TeamContext struct {
	Team      *models.Team
	Members   []*models.TeamMember
	Evaluator access.Evaluator
}

// TeamSource extracts the target team id from a request.
type TeamSource func(r *http.Request) (string, error)

var (
	errTargetNotFound = stderrors.New("not found")
	errInvalidBody    = stderrors.New("invalid request body")
)

func QueryTeam(r *http.Request) (string, error) {
	return r.URL.Query().Get("team_id"), nil
}

func ParamTeam(name string) TeamSource {
	return func(r *http.Request) (string, error) {
		return Param(r, name), nil
	}
}

// BodyTeam reads team_id from a JSON body and leaves the body readable.
func BodyTeam(r *http.Request) (string, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		TeamID string `json:"team_id"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return "", errInvalidBody
		}
	}
	return body.TeamID, nil
}

type TeamMiddleware struct {
	teamRepo    *repositories.TeamRepository
	memberRepo  *repositories.MemberRepository
	subRepo     *repositories.SubscriptionRepository
	invoiceRepo *repositories.InvoiceRepository
}

func NewTeamMiddleware(teamRepo *repositories.TeamRepository, memberRepo *repositories.MemberRepository,
	subRepo *repositories.SubscriptionRepository, invoiceRepo *repositories.InvoiceRepository) *TeamMiddleware {
	return &TeamMiddleware{
		teamRepo:    teamRepo,
		memberRepo:  memberRepo,
		subRepo:     subRepo,
		invoiceRepo: invoiceRepo,
	}
}

// MemberTeam resolves the team owning the member named by a route param.
func (m *TeamMiddleware) MemberTeam(name string) TeamSource {
	return func(r *http.Request) (string, error) {
		member, err := m.memberRepo.GetByID(r.Context(), Param(r, name))
		if err != nil {
			return "", err
		}
		if member == nil {
			return "", errTargetNotFound
		}
		return member.TeamID, nil
	}
}

// InvoiceTeam resolves the team billed by the invoice named by a route param.
func (m *TeamMiddleware) InvoiceTeam(name string) TeamSource {
	return func(r *http.Request) (string, error) {
		inv, err := m.invoiceRepo.GetByID(r.Context(), Param(r, name))
		if err != nil {
			return "", err
		}
		if inv == nil {
			return "", errTargetNotFound
		}
		return inv.TeamID, nil
	}
}

// Resolve loads the team named by source and rejects callers who do not
// belong to it.
func (m *TeamMiddleware) Resolve(source TeamSource) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			teamID, err := source(r)
			if err == errTargetNotFound {
				errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Resource not found", nil)
				return
			}
			if err == errInvalidBody {
				errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
				return
			}
			if err != nil {
				errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to resolve team", nil)
				return
			}
			if teamID == "" {
				errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "team_id is required", nil)
				return
			}

			tc, ok := m.load(w, r, teamID)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), apiContext.Team, tc)
			next(w, r.WithContext(ctx))
		}
	}
}

// Subscription loads the subscription named by a route param together with
// its team.
func (m *TeamMiddleware) Subscription(name string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sub, err := m.subRepo.GetByID(r.Context(), Param(r, name))
			if err != nil {
				errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load subscription", nil)
				return
			}
			if sub == nil {
				errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Subscription not found", nil)
				return
			}

			tc, ok := m.load(w, r, sub.TeamID)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), apiContext.Team, tc)
			ctx = context.WithValue(ctx, apiContext.Subscription, sub)
			next(w, r.WithContext(ctx))
		}
	}
}

func (m *TeamMiddleware) load(w http.ResponseWriter, r *http.Request, teamID string) (*TeamContext, bool) {
	claims := ClaimsFrom(r.Context())
	if claims == nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authentication claims found", nil)
		return nil, false
	}

	team, err := m.teamRepo.GetByID(r.Context(), teamID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load team", nil)
		return nil, false
	}
	if team == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Team not found", nil)
		return nil, false
	}

	members, err := m.memberRepo.ListByTeam(r.Context(), team.ID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load team members", nil)
		return nil, false
	}

	if !belongs(team, members, claims.Email) {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "You are not a member of this team", nil)
		return nil, false
	}

	return &TeamContext{
		Team:      team,
		Members:   members,
		Evaluator: access.NewEvaluator(team, members, claims.Email),
	}, true
}

func belongs(team *models.Team, members []*models.TeamMember, email string) bool {
	if strings.EqualFold(team.Owner, email) {
		return true
	}
	for _, m := range members {
		if strings.EqualFold(m.Email, email) && m.Status == models.MemberStatusActive {
			return true
		}
	}
	return false
}

func TeamFrom(ctx context.Context) *TeamContext {
	tc, _ := ctx.Value(apiContext.Team).(*TeamContext)
	return tc
}

func SubscriptionFrom(ctx context.Context) *models.AppSubscription {
	sub, _ := ctx.Value(apiContext.Subscription).(*models.AppSubscription)
	return sub
}
