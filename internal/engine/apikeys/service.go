package apikeys

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"suitehub/internal/engine/access"
	"suitehub/internal/platform/models"
)

const (
	SecretPrefix  = "shk_live_"
	PrefixLength  = 16
	MaxNameLength = 64
)

var (
	ErrNoActiveSubscription = errors.New("no active subscription for this app")
	ErrSubscriptionInactive = errors.New("subscription is not active")
	ErrNameRequired         = errors.New("api key name is required")
	ErrNameTooLong          = errors.New("api key name must be at most 64 characters")
	ErrKeyNotFound          = errors.New("api key not found")
	ErrInvalidKey           = errors.New("invalid api key")
)

// Store persists keys. Implemented by repositories.APIKeyRepository.
type Store interface {
	Create(ctx context.Context, key *models.APIKey) error
	GetByID(ctx context.Context, id string) (*models.APIKey, error)
	GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.APIKey, error)
	UpdateSecret(ctx context.Context, id, prefix, hash string) error
	UpdateLastUsed(ctx context.Context, id string, timestamp int64) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store  Store
	policy access.Policy
	cost   int
	now    func() time.Time
}

func NewService(store Store, policy access.Policy) *Service {
	return &Service{store: store, policy: policy, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// GenerateSecret returns a fresh secret and its display prefix.
func GenerateSecret() (secret, prefix string, err error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	secret = SecretPrefix + hex.EncodeToString(buf)
	return secret, secret[:PrefixLength], nil
}

// RequireAccessible fails fast unless sub exists and its status grants access.
func RequireAccessible(policy access.Policy, sub *models.AppSubscription) error {
	if sub == nil {
		return ErrNoActiveSubscription
	}
	if !policy.Allows(sub.Status) {
		return ErrSubscriptionInactive
	}
	return nil
}

func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if len([]rune(name)) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

// Create issues a key. The returned secret is never stored or shown again.
func (s *Service) Create(ctx context.Context, sub *models.AppSubscription, name, createdBy string) (*models.IssuedAPIKey, error) {
	if err := RequireAccessible(s.policy, sub); err != nil {
		return nil, err
	}
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	secret, prefix, hash, err := s.mint()
	if err != nil {
		return nil, err
	}

	key := &models.APIKey{
		ID:             "key_" + uuid.New().String(),
		SubscriptionID: sub.ID,
		Name:           name,
		KeyPrefix:      prefix,
		KeyHash:        hash,
		Status:         models.APIKeyActive,
		CreatedBy:      createdBy,
		CreatedAt:      s.now().Unix(),
	}
	if err := s.store.Create(ctx, key); err != nil {
		return nil, err
	}
	return &models.IssuedAPIKey{APIKey: *key, Key: secret}, nil
}

// Regenerate replaces the key's secret; the previous secret stops
// authenticating as soon as this returns.
func (s *Service) Regenerate(ctx context.Context, sub *models.AppSubscription, id string) (*models.IssuedAPIKey, error) {
	if err := RequireAccessible(s.policy, sub); err != nil {
		return nil, err
	}
	key, err := s.owned(ctx, sub, id)
	if err != nil {
		return nil, err
	}

	secret, prefix, hash, err := s.mint()
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSecret(ctx, key.ID, prefix, hash); err != nil {
		return nil, err
	}
	key.KeyPrefix = prefix
	key.KeyHash = hash
	return &models.IssuedAPIKey{APIKey: *key, Key: secret}, nil
}

func (s *Service) Delete(ctx context.Context, sub *models.AppSubscription, id string) error {
	if err := RequireAccessible(s.policy, sub); err != nil {
		return err
	}
	if _, err := s.owned(ctx, sub, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// List returns the subscription's keys; hashes are never serialized.
func (s *Service) List(ctx context.Context, sub *models.AppSubscription) ([]*models.APIKey, error) {
	if sub == nil {
		return nil, ErrNoActiveSubscription
	}
	return s.store.ListBySubscription(ctx, sub.ID)
}

// Authenticate resolves a presented secret to its key.
func (s *Service) Authenticate(ctx context.Context, secret string) (*models.APIKey, error) {
	if !strings.HasPrefix(secret, SecretPrefix) || len(secret) <= PrefixLength {
		return nil, ErrInvalidKey
	}
	key, err := s.store.GetByPrefix(ctx, secret[:PrefixLength])
	if err != nil {
		return nil, err
	}
	if key == nil || key.Status != models.APIKeyActive {
		return nil, ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(secret)); err != nil {
		return nil, ErrInvalidKey
	}

	now := s.now().Unix()
	if err := s.store.UpdateLastUsed(ctx, key.ID, now); err == nil {
		key.LastUsedAt = &now
	}
	return key, nil
}

func (s *Service) owned(ctx context.Context, sub *models.AppSubscription, id string) (*models.APIKey, error) {
	key, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == nil || key.SubscriptionID != sub.ID {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (s *Service) mint() (secret, prefix, hash string, err error) {
	secret, prefix, err = GenerateSecret()
	if err != nil {
		return "", "", "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", "", "", err
	}
	return secret, prefix, string(h), nil
}
