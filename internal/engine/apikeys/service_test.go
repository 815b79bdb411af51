package apikeys

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"suitehub/internal/engine/access"
	"suitehub/internal/platform/database/dbtest"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

func setup(t *testing.T) (*Service, *models.AppSubscription) {
	t.Helper()
	db := dbtest.New(t)
	ctx := context.Background()
	now := time.Now().Unix()

	require.NoError(t, repositories.NewTeamRepository(db).Create(ctx, &models.Team{ID: "team_1", Name: "Acme", Owner: "o@acme.io", Verified: true, Status: "active", CreatedAt: now, UpdatedAt: now}))
	sub := &models.AppSubscription{ID: "sub_1", TeamID: "team_1", AppCode: "crm", Status: models.SubscriptionActive,
		BillingCycle: models.BillingMonthly, CurrentPeriodStart: now, CurrentPeriodEnd: now + 3600, SubscribedAt: now, UpdatedAt: now}
	require.NoError(t, repositories.NewSubscriptionRepository(db).Create(ctx, sub))

	svc := NewService(repositories.NewAPIKeyRepository(db), access.PolicyRegistered).WithCost(bcrypt.MinCost)
	return svc, sub
}

func TestGenerateSecret(t *testing.T) {
	secret, prefix, err := GenerateSecret()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(secret, "shk_live_"))
	assert.Len(t, secret, len("shk_live_")+32)
	assert.Equal(t, secret[:16], prefix)
}

func TestCreateRevealsSecretOnce(t *testing.T) {
	svc, sub := setup(t)
	ctx := context.Background()

	issued, err := svc.Create(ctx, sub, "  CI deploy ", "acct_1")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Key)
	assert.Equal(t, "CI deploy", issued.Name)
	assert.Equal(t, issued.Key[:PrefixLength], issued.KeyPrefix)

	keys, err := svc.List(ctx, sub)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	raw, err := json.Marshal(keys)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), issued.Key)
	assert.NotContains(t, string(raw), keys[0].KeyHash)
	assert.Contains(t, string(raw), issued.KeyPrefix)

	got, err := svc.Authenticate(ctx, issued.Key)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, got.ID)
	assert.NotNil(t, got.LastUsedAt)
}

func TestRegenerateInvalidatesPreviousSecret(t *testing.T) {
	svc, sub := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, sub, "ci", "acct_1")
	require.NoError(t, err)

	second, err := svc.Regenerate(ctx, sub, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.Key, second.Key)

	_, err = svc.Authenticate(ctx, first.Key)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = svc.Authenticate(ctx, second.Key)
	assert.NoError(t, err)
}

func TestDeleteRemovesKey(t *testing.T) {
	svc, sub := setup(t)
	ctx := context.Background()

	issued, err := svc.Create(ctx, sub, "ci", "acct_1")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, sub, issued.ID))

	keys, err := svc.List(ctx, sub)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = svc.Authenticate(ctx, issued.Key)
	assert.ErrorIs(t, err, ErrInvalidKey)

	assert.ErrorIs(t, svc.Delete(ctx, sub, issued.ID), ErrKeyNotFound)
}

func TestWritesRequireAccessibleSubscription(t *testing.T) {
	svc, sub := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, "ci", "acct_1")
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
	_, err = svc.Regenerate(ctx, nil, "key_1")
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
	assert.ErrorIs(t, svc.Delete(ctx, nil, "key_1"), ErrNoActiveSubscription)

	lapsed := *sub
	lapsed.Status = models.SubscriptionPastDue
	_, err = svc.Create(ctx, &lapsed, "ci", "acct_1")
	assert.ErrorIs(t, err, ErrSubscriptionInactive)
}

func TestKeysAreScopedToSubscription(t *testing.T) {
	svc, sub := setup(t)
	ctx := context.Background()

	issued, err := svc.Create(ctx, sub, "ci", "acct_1")
	require.NoError(t, err)

	other := &models.AppSubscription{ID: "sub_other", Status: models.SubscriptionActive}
	_, err = svc.Regenerate(ctx, other, issued.ID)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestValidateName(t *testing.T) {
	_, err := ValidateName("   ")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = ValidateName(strings.Repeat("x", 65))
	assert.ErrorIs(t, err, ErrNameTooLong)

	name, err := ValidateName(strings.Repeat("x", 64))
	assert.NoError(t, err)
	assert.Len(t, name, 64)
}

func TestAuthenticateRejectsMalformed(t *testing.T) {
	svc, _ := setup(t)
	for _, secret := range []string{"", "shk_live_", "trk_live_0123456789abcdef", "shk_live_00000000000000000000000000000000"} {
		_, err := svc.Authenticate(context.Background(), secret)
		assert.ErrorIs(t, err, ErrInvalidKey, secret)
	}
}
