package api

import (
	"database/sql"

	"suitehub/internal/api/handlers"
	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/access"
	"suitehub/internal/engine/apikeys"
	"suitehub/internal/engine/webhooks"
	"suitehub/internal/platform/audit"
	"suitehub/internal/platform/auth"
	"suitehub/internal/platform/cache"
	"suitehub/internal/platform/config"
	"suitehub/internal/platform/database"
	"suitehub/internal/platform/metrics"
	"suitehub/internal/platform/repositories"
)

// Background holds the asynchronous pieces a server must drain on shutdown.
type Background struct {
	Audit       *audit.Logger
	Dispatcher  *webhooks.Dispatcher
	RateLimiter *middleware.RateLimiter
}

// Wait blocks until queued audit writes and webhook deliveries finish.
func (b *Background) Wait() {
	b.Dispatcher.Wait()
	b.Audit.Wait()
}

// NewDependencies builds repositories, services, handlers and middleware over
// one database handle.
func NewDependencies(cfg *config.Config, db *sql.DB, c cache.Cache, m *metrics.Metrics) (*Dependencies, *Background, error) {
	policy, err := access.ParsePolicy(cfg.Subscriptions.AccessPolicy)
	if err != nil {
		return nil, nil, err
	}

	// Repositories
	teamRepo := repositories.NewTeamRepository(db)
	accountRepo := repositories.NewAccountRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	subRepo := repositories.NewSubscriptionRepository(db)
	invitationRepo := repositories.NewInvitationRepository(db)
	publicInviteRepo := repositories.NewPublicInviteRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	invoiceRepo := repositories.NewInvoiceRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	webhookRepo := repositories.NewWebhookRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	keys := apikeys.NewService(apiKeyRepo, policy)
	auditLog := audit.NewLogger(auditRepo)
	dispatcher := webhooks.NewDispatcher(webhookRepo, cfg.Webhooks.Timeout, cfg.Webhooks.RetryAttempts)
	if m != nil {
		dispatcher.OnDelivery = func(outcome string) {
			m.WebhookDeliveries.WithLabelValues(outcome).Inc()
		}
	}
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	deps := &Dependencies{
		AuthHandler:   handlers.NewAuthHandler(accountRepo, tokenSvc),
		TeamHandler:   handlers.NewTeamHandler(teamRepo, memberRepo, auditLog),
		MemberHandler: handlers.NewMemberHandler(memberRepo, auditLog),
		InvitationHandler: handlers.NewInvitationHandler(invitationRepo, publicInviteRepo, memberRepo, subRepo,
			dispatcher, auditLog, cfg.Subscriptions.MaxInviteTTL),
		SubscriptionHandler: handlers.NewSubscriptionHandler(subRepo, invoiceRepo, catalogRepo, dispatcher, auditLog, policy),
		APIKeyHandler:       handlers.NewAPIKeyHandler(keys, subRepo, dispatcher, auditLog),
		WebhookHandler:      handlers.NewWebhookHandler(webhookRepo, auditLog),
		CatalogHandler:      handlers.NewCatalogHandler(catalogRepo, c, cfg.Cache.CatalogTTL),
		InvoiceHandler:      handlers.NewInvoiceHandler(invoiceRepo, subRepo, dispatcher, auditLog),
		AuditHandler:        handlers.NewAuditHandler(auditRepo),
		HealthHandler:       handlers.NewHealthHandler(database.NewDBWrapper(db)),
		MetricsHandler:      handlers.NewMetricsHandler(m),
		AuthMiddleware:      middleware.NewAuthMiddleware(tokenSvc),
		APIKeyMiddleware:    middleware.NewAPIKeyMiddleware(keys),
		TeamMiddleware:      middleware.NewTeamMiddleware(teamRepo, memberRepo, subRepo, invoiceRepo),
		RateLimiter:         rateLimiter,
		Metrics:             m,
		AdminEmails:         cfg.Admin.Emails,
	}

	return deps, &Background{Audit: auditLog, Dispatcher: dispatcher, RateLimiter: rateLimiter}, nil
}
