package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"suitehub/internal/pkg/parser"
	"suitehub/internal/platform/models"
)

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

// Actor is who performed an audited action.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
	Client    parser.Client
}

func ActorFromRequest(r *http.Request, userID string) Actor {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = fwd
	}
	return Actor{UserID: userID, IPAddress: ip, UserAgent: r.UserAgent(), Client: parser.ParseUserAgent(r.UserAgent())}
}

type Logger struct {
	store Store
	wg    sync.WaitGroup
}

func NewLogger(store Store) *Logger {
	return &Logger{store: store}
}

// Log writes the entry in the background; failures are logged and dropped.
func (l *Logger) Log(actor Actor, teamID, action, resourceType, resourceID string, metadata map[string]interface{}) {
	if actor.Client.Kind != "" && actor.Client.Kind != parser.ClientUnknown {
		enriched := make(map[string]interface{}, len(metadata)+2)
		for k, v := range metadata {
			enriched[k] = v
		}
		enriched["client"] = actor.Client.Kind
		enriched["client_os"] = actor.Client.OS
		metadata = enriched
	}

	entry := &models.AuditLog{
		ID:           "audit_" + uuid.New().String(),
		TeamID:       teamID,
		UserID:       actor.UserID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		CreatedAt:    time.Now().Unix(),
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.store.Insert(ctx, entry); err != nil {
			log.Error().Err(err).Str("action", action).Str("team_id", teamID).Msg("failed to write audit log")
		}
	}()
}

// Wait blocks until queued entries are written.
func (l *Logger) Wait() {
	l.wg.Wait()
}
