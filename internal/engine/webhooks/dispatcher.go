package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"suitehub/internal/platform/models"
)

const (
	EventSubscriptionCreated = "subscription.created"
	EventSubscriptionUpdated = "subscription.updated"
	EventMemberInvited       = "member.invited"
	EventMemberRemoved       = "member.removed"
	EventAPIKeyCreated       = "api_key.created"
	EventAPIKeyRegenerated   = "api_key.regenerated"
	EventAPIKeyDeleted       = "api_key.deleted"
	EventInvoicePaid         = "invoice.paid"
)

// Store is the webhook persistence the dispatcher needs.
type Store interface {
	GetByID(ctx context.Context, id string) (*models.Webhook, error)
	GetByEvent(ctx context.Context, subscriptionID, eventType string) ([]*models.Webhook, error)
	UpdateStatus(ctx context.Context, id, status string) error
	RecordSuccess(ctx context.Context, id string, timestamp int64) error
	RecordFailure(ctx context.Context, id string, timestamp int64, lastError string) error
	SaveDelivery(ctx context.Context, d *models.WebhookDelivery) error
	ListPendingDeliveries(ctx context.Context, maxAttempts int) ([]*models.WebhookDelivery, error)
	DeleteDelivery(ctx context.Context, id string) error
}

type Dispatcher struct {
	repo        Store
	client      *http.Client
	maxAttempts int
	wg          sync.WaitGroup

	// OnDelivery, when set, observes every attempt's outcome.
	OnDelivery func(outcome string)
}

func NewDispatcher(repo Store, timeout time.Duration, maxAttempts int) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{
		repo:        repo,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
	}
}

// Dispatch fans the event out to the subscription's webhooks in the
// background. Failed deliveries are queued for the retry worker.
func (d *Dispatcher) Dispatch(ctx context.Context, sub *models.AppSubscription, eventType string, data interface{}) {
	webhooks, err := d.repo.GetByEvent(ctx, sub.ID, eventType)
	if err != nil {
		log.Error().Err(err).Str("subscription_id", sub.ID).Str("event", eventType).Msg("failed to load webhooks")
		return
	}
	if len(webhooks) == 0 {
		return
	}

	event := &models.WebhookEvent{
		ID:             "evt_" + uuid.New().String(),
		Event:          eventType,
		Timestamp:      time.Now().Unix(),
		TeamID:         sub.TeamID,
		SubscriptionID: sub.ID,
		Data:           data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to encode webhook event")
		return
	}

	for _, webhook := range webhooks {
		d.wg.Add(1)
		go func(w *models.Webhook) {
			defer d.wg.Done()
			bg, cancel := context.WithTimeout(context.Background(), d.client.Timeout+5*time.Second)
			defer cancel()
			d.attempt(bg, w, &models.WebhookDelivery{WebhookID: w.ID, EventID: event.ID, Payload: payload})
		}(webhook)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// RetryPending re-sends queued deliveries once and returns how many succeeded.
func (d *Dispatcher) RetryPending(ctx context.Context) (int, error) {
	deliveries, err := d.repo.ListPendingDeliveries(ctx, d.maxAttempts)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, delivery := range deliveries {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		webhook, err := d.repo.GetByID(ctx, delivery.WebhookID)
		if err != nil {
			return delivered, err
		}
		if webhook == nil || webhook.Status != "active" {
			d.repo.DeleteDelivery(ctx, delivery.ID)
			continue
		}
		if d.attempt(ctx, webhook, delivery) {
			delivered++
		}
	}
	return delivered, nil
}

// attempt posts the payload once and records the outcome.
func (d *Dispatcher) attempt(ctx context.Context, webhook *models.Webhook, delivery *models.WebhookDelivery) bool {
	delivery.Attempts++
	errStr := d.post(ctx, webhook, delivery)
	now := time.Now().Unix()

	if errStr == "" {
		d.observe("success")
		if err := d.repo.RecordSuccess(ctx, webhook.ID, now); err != nil {
			log.Error().Err(err).Str("webhook_id", webhook.ID).Msg("failed to record webhook success")
		}
		if delivery.ID != "" {
			d.repo.DeleteDelivery(ctx, delivery.ID)
		}
		return true
	}

	d.observe("failure")
	log.Warn().Str("webhook_id", webhook.ID).Str("event_id", delivery.EventID).Int("attempts", delivery.Attempts).Str("error", errStr).Msg("webhook delivery failed")
	if err := d.repo.RecordFailure(ctx, webhook.ID, now, errStr); err != nil {
		log.Error().Err(err).Str("webhook_id", webhook.ID).Msg("failed to record webhook failure")
	}

	if delivery.Attempts >= d.maxAttempts {
		d.observe("abandoned")
		d.repo.UpdateStatus(ctx, webhook.ID, "failed")
		if delivery.ID != "" {
			d.repo.DeleteDelivery(ctx, delivery.ID)
		}
		return false
	}

	delivery.LastError = errStr
	if err := d.repo.SaveDelivery(ctx, delivery); err != nil {
		log.Error().Err(err).Str("webhook_id", webhook.ID).Msg("failed to queue webhook retry")
	}
	return false
}

func (d *Dispatcher) post(ctx context.Context, webhook *models.Webhook, delivery *models.WebhookDelivery) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return err.Error()
	}

	var event struct {
		Event string `json:"event"`
	}
	json.Unmarshal(delivery.Payload, &event)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Suitehub-Signature", Sign(webhook.Secret, delivery.Payload))
	req.Header.Set("X-Suitehub-Event", event.Event)
	req.Header.Set("X-Suitehub-Delivery", delivery.EventID)

	resp, err := d.client.Do(req)
	if err != nil {
		return err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return ""
}

func (d *Dispatcher) observe(outcome string) {
	if d.OnDelivery != nil {
		d.OnDelivery(outcome)
	}
}
