// Package workers runs the periodic maintenance jobs: the subscription
// lifecycle sweep, invoice overdue marking, webhook retries and expired
// invite-link purging.
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"suitehub/internal/engine/subscriptions"
	"suitehub/internal/engine/webhooks"
	"suitehub/internal/platform/config"
	"suitehub/internal/platform/metrics"
	"suitehub/internal/platform/repositories"
)

type Workers struct {
	subRepo     *repositories.SubscriptionRepository
	invoiceRepo *repositories.InvoiceRepository
	inviteRepo  *repositories.PublicInviteRepository
	dispatcher  *webhooks.Dispatcher
	metrics     *metrics.Metrics
	grace       time.Duration
	now         func() time.Time
}

func New(
	subRepo *repositories.SubscriptionRepository,
	invoiceRepo *repositories.InvoiceRepository,
	inviteRepo *repositories.PublicInviteRepository,
	dispatcher *webhooks.Dispatcher,
	m *metrics.Metrics,
	grace time.Duration,
) *Workers {
	return &Workers{
		subRepo:     subRepo,
		invoiceRepo: invoiceRepo,
		inviteRepo:  inviteRepo,
		dispatcher:  dispatcher,
		metrics:     m,
		grace:       grace,
		now:         time.Now,
	}
}

// SweepSubscriptions applies due lifecycle transitions and returns how many
// subscriptions changed status.
func (w *Workers) SweepSubscriptions(ctx context.Context) (int, error) {
	now := w.now()
	due, err := w.subRepo.ListDue(ctx, now.Unix())
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, sub := range due {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		next, ok := subscriptions.Sweep(sub, now, w.grace)
		if !ok {
			continue
		}
		previous := sub.Status
		if err := w.subRepo.UpdateStatus(ctx, sub.ID, next); err != nil {
			return changed, err
		}
		sub.Status = next
		changed++

		log.Info().
			Str("subscription_id", sub.ID).
			Str("team_id", sub.TeamID).
			Str("from", previous).
			Str("to", next).
			Msg("subscription status swept")
		if w.metrics != nil {
			w.metrics.SweepTransitions.WithLabelValues(next).Inc()
		}
		if w.dispatcher != nil {
			w.dispatcher.Dispatch(ctx, sub, webhooks.EventSubscriptionUpdated, sub)
		}
	}
	return changed, nil
}

func (w *Workers) MarkOverdueInvoices(ctx context.Context) (int, error) {
	n, err := w.invoiceRepo.MarkOverdue(ctx, w.now().Unix())
	return int(n), err
}

func (w *Workers) RetryWebhooks(ctx context.Context) (int, error) {
	if w.dispatcher == nil {
		return 0, nil
	}
	return w.dispatcher.RetryPending(ctx)
}

func (w *Workers) PurgeInvites(ctx context.Context) (int, error) {
	n, err := w.inviteRepo.DeleteExpired(ctx, w.now().Unix())
	return int(n), err
}

// Job is one named periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

func (w *Workers) Jobs(cfg config.WorkersConfig) []Job {
	return []Job{
		{Name: "subscription_sweep", Interval: cfg.SubscriptionSweepInterval, Run: w.SweepSubscriptions},
		{Name: "invoice_overdue", Interval: cfg.InvoiceSweepInterval, Run: w.MarkOverdueInvoices},
		{Name: "webhook_retry", Interval: cfg.WebhookRetryInterval, Run: w.RetryWebhooks},
		{Name: "invite_purge", Interval: cfg.InvitePurgeInterval, Run: w.PurgeInvites},
	}
}

// Run starts every job on its own ticker and blocks until ctx is cancelled
// and in-flight runs return. Each job runs once immediately.
func Run(ctx context.Context, jobs []Job) {
	var wg sync.WaitGroup
	for _, job := range jobs {
		if job.Interval <= 0 {
			log.Warn().Str("job", job.Name).Msg("worker disabled: no interval")
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		runOnce(ctx, job)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, job Job) {
	start := time.Now()
	n, err := job.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("job", job.Name).Msg("worker run failed")
		}
		return
	}
	log.Debug().Str("job", job.Name).Int("affected", n).Dur("duration", time.Since(start)).Msg("worker run finished")
}
