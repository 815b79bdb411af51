package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	apiContext "suitehub/internal/api/context"
	"suitehub/internal/api/handlers"
	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/access"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/metrics"
)

type Dependencies struct {
	AuthHandler         *handlers.AuthHandler
	TeamHandler         *handlers.TeamHandler
	MemberHandler       *handlers.MemberHandler
	InvitationHandler   *handlers.InvitationHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	APIKeyHandler       *handlers.APIKeyHandler
	WebhookHandler      *handlers.WebhookHandler
	CatalogHandler      *handlers.CatalogHandler
	InvoiceHandler      *handlers.InvoiceHandler
	AuditHandler        *handlers.AuditHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      *handlers.MetricsHandler
	AuthMiddleware      *middleware.AuthMiddleware
	APIKeyMiddleware    *middleware.APIKeyMiddleware
	TeamMiddleware      *middleware.TeamMiddleware
	RateLimiter         *middleware.RateLimiter
	Metrics             *metrics.Metrics
	AdminEmails         []string
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware.Handle
	teamMid := deps.TeamMiddleware
	rl := deps.RateLimiter
	m := deps.Metrics

	// route registers a handler behind request logging; every other
	// middleware runs inside it so rejections are logged too.
	route := func(method, path string, handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) {
		all := append([]func(http.HandlerFunc) http.HandlerFunc{middleware.RequestLogger(m, path)}, middlewares...)
		router.Handle(method, path, chain(handler, all...))
	}
	read := rl.Limit(middleware.LimitAPIRead)
	write := rl.Limit(middleware.LimitAPIWrite)
	can := func(p access.Permission) func(http.HandlerFunc) http.HandlerFunc {
		return requirePermission(m, p)
	}

	// Operational
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Authentication
	authLimit := rl.Limit(middleware.LimitAuth)
	route("POST", "/api/v1/auth/signup", deps.AuthHandler.Signup, authLimit)
	route("POST", "/api/v1/auth/login", deps.AuthHandler.Login, authLimit)
	route("GET", "/api/v1/me", deps.AuthHandler.Me, authMid, read)

	// Teams
	route("GET", "/api/v1/teams", deps.TeamHandler.List, authMid, read)
	route("POST", "/api/v1/teams", deps.TeamHandler.Create, authMid, write)
	route("PATCH", "/api/v1/teams/:id", deps.TeamHandler.Update,
		authMid, write, teamMid.Resolve(middleware.ParamTeam("id")))
	route("POST", "/api/v1/teams/:id/verify", deps.TeamHandler.Verify,
		authMid, write, requireAdmin(deps.AdminEmails))

	// Team members
	route("GET", "/api/v1/team-members", deps.MemberHandler.List,
		authMid, read, teamMid.Resolve(middleware.QueryTeam))
	route("PATCH", "/api/v1/team-members/:member_id", deps.MemberHandler.UpdateRole,
		authMid, write, teamMid.Resolve(teamMid.MemberTeam("member_id")), can(access.ManageMembers))

	// Invitations addressed to the caller
	route("GET", "/api/v1/invitations", deps.InvitationHandler.ListMine, authMid, read)
	route("POST", "/api/v1/invitations/:id/accept", deps.InvitationHandler.Accept, authMid, write)
	route("POST", "/api/v1/public-invites/:token/redeem", deps.InvitationHandler.RedeemPublicInvite, authMid, write)

	// Subscriptions
	route("GET", "/api/v1/subscriptions", deps.SubscriptionHandler.List,
		authMid, read, teamMid.Resolve(middleware.QueryTeam), can(access.ViewBilling))
	route("GET", "/api/v1/app-subscriptions", deps.SubscriptionHandler.List,
		authMid, read, teamMid.Resolve(middleware.QueryTeam), can(access.ViewBilling))
	route("POST", "/api/v1/subscriptions", deps.SubscriptionHandler.Create,
		authMid, write, teamMid.Resolve(middleware.BodyTeam))
	route("PATCH", "/api/v1/subscriptions/:id", deps.SubscriptionHandler.Update,
		authMid, write, teamMid.Subscription("id"), can(access.ManageBilling))

	// Subscription members
	route("GET", "/api/v1/subscriptions/:id/members", deps.InvitationHandler.ListMembers,
		authMid, read, teamMid.Subscription("id"), can(access.ViewBilling))
	route("POST", "/api/v1/subscriptions/:id/members", deps.InvitationHandler.Invite,
		authMid, write, teamMid.Subscription("id"), can(access.InviteMembers))
	route("DELETE", "/api/v1/subscriptions/:id/members/:member_id", deps.InvitationHandler.RemoveMember,
		authMid, write, teamMid.Subscription("id"), can(access.ManageMembers))
	route("POST", "/api/v1/subscriptions/:id/public-invite", deps.InvitationHandler.CreatePublicInvite,
		authMid, write, teamMid.Subscription("id"), can(access.InviteMembers))

	// Integrations
	route("GET", "/api/v1/subscriptions/:id/api-keys", deps.APIKeyHandler.List,
		authMid, read, teamMid.Subscription("id"), can(access.ManageIntegrations))
	route("POST", "/api/v1/subscriptions/:id/api-keys", deps.APIKeyHandler.Create,
		authMid, write, teamMid.Subscription("id"), can(access.ManageIntegrations))
	route("POST", "/api/v1/subscriptions/:id/api-keys/:key_id/regenerate", deps.APIKeyHandler.Regenerate,
		authMid, write, teamMid.Subscription("id"), can(access.ManageIntegrations))
	route("DELETE", "/api/v1/subscriptions/:id/api-keys/:key_id", deps.APIKeyHandler.Delete,
		authMid, write, teamMid.Subscription("id"), can(access.ManageIntegrations))
	route("GET", "/api/v1/subscriptions/:id/webhooks", deps.WebhookHandler.List,
		authMid, read, teamMid.Subscription("id"), can(access.ManageIntegrations))
	route("POST", "/api/v1/subscriptions/:id/webhooks", deps.WebhookHandler.Create,
		authMid, write, teamMid.Subscription("id"), can(access.ManageIntegrations))
	route("DELETE", "/api/v1/subscriptions/:id/webhooks/:webhook_id", deps.WebhookHandler.Delete,
		authMid, write, teamMid.Subscription("id"), can(access.ManageIntegrations))
	route("GET", "/api/v1/integrations/whoami", deps.APIKeyHandler.WhoAmI,
		read, deps.APIKeyMiddleware.Handle)

	// Catalog
	route("GET", "/api/v1/apps", deps.CatalogHandler.Apps, read)
	route("GET", "/api/v1/app-pricing", deps.CatalogHandler.Pricing, read)

	// Billing
	route("GET", "/api/v1/invoices", deps.InvoiceHandler.List,
		authMid, read, teamMid.Resolve(middleware.QueryTeam), can(access.ViewInvoices))
	route("POST", "/api/v1/invoices/:id/pay", deps.InvoiceHandler.Pay,
		authMid, write, teamMid.Resolve(teamMid.InvoiceTeam("id")), can(access.PayInvoices))

	// Audit
	route("GET", "/api/v1/audit-logs", deps.AuditHandler.List,
		authMid, read, teamMid.Resolve(middleware.QueryTeam), can(access.ManageMembers))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

// requirePermission rejects callers whose role in the resolved team lacks p.
// It must run after a team-resolving middleware.
func requirePermission(m *metrics.Metrics, p access.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tc := middleware.TeamFrom(r.Context())
			if tc == nil || !tc.Evaluator.Can(p) {
				if m != nil {
					m.PermissionDenials.WithLabelValues(string(p)).Inc()
				}
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions",
					map[string]string{"permission": string(p)})
				return
			}

			next(w, r)
		}
	}
}

// requireAdmin limits a route to platform operators.
func requireAdmin(emails []string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := middleware.ClaimsFrom(r.Context())

			allowed := false
			for _, email := range emails {
				if claims != nil && strings.EqualFold(email, claims.Email) {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
