package services

import (
	"testing"
	"time"

	"eventhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapEventAction(t *testing.T) {
	cases := map[string]string{
		"PURCHASE_APPROVED":         actionPurchase,
		"PURCHASE_COMPLETE":         actionPurchase,
		"SUBSCRIPTION_ACTIVATED":    actionActivated,
		"SUBSCRIPTION_REACTIVATION": actionActivated,
		"SUBSCRIPTION_RENEWED":      actionRenewed,
		"RECURRENCE_APPROVED":       actionRenewed,
		"SUBSCRIPTION_CANCELLATION": actionCancelled,
		"PURCHASE_CANCELED":         actionCancelled,
		"SUBSCRIPTION_EXPIRED":      actionExpired,
		"PURCHASE_EXPIRED":          actionExpired,
		"PURCHASE_CHARGEBACK":       actionSuspended,
		"PURCHASE_PROTEST":          actionSuspended,
		"PURCHASE_DELAYED":          actionSuspended,
		"purchase_approved":         actionPurchase,
		"  PURCHASE_APPROVED  ":     actionPurchase,
		"SOMETHING_NEW":             actionUnknown,
		"":                          actionUnknown,
	}
	for event, want := range cases {
		assert.Equal(t, want, mapEventAction(event), "event %q", event)
	}
}

func TestNormalizePayloadNestedShape(t *testing.T) {
	payload := &HotmartPayload{
		Event: "PURCHASE_APPROVED",
		Data: &HotmartData{
			Subscription: &HotmartSubscription{
				SubscriberCode: "SUB-123",
				Status:         "ACTIVE",
				Plan:           &HotmartPlan{Code: "PRO-M"},
				Subscriber:     &HotmartSubscriber{Email: "  Buyer@Example.COM "},
				DateNextCharge: 1700000000000,
			},
		},
	}

	norm, err := normalizePayload(payload, false)
	require.NoError(t, err)
	assert.Equal(t, "SUB-123", norm.SubscriberCode)
	assert.Equal(t, "PRO-M", norm.PlanCode)
	assert.Equal(t, "buyer@example.com", norm.Email)
	assert.Equal(t, "ACTIVE", norm.Status)
	assert.EqualValues(t, 1700000000000, norm.NextChargeAt)
}

func TestNormalizePayloadLegacyTopLevelShape(t *testing.T) {
	payload := &HotmartPayload{
		Event: "SUBSCRIPTION_RENEWED",
		Subscription: &HotmartSubscription{
			SubscriberCode: "SUB-456",
			Status:         "ACTIVE",
			Plan:           &HotmartPlan{ID: 987654},
			Subscriber:     &HotmartSubscriber{Email: "legacy@example.com"},
		},
	}

	norm, err := normalizePayload(payload, false)
	require.NoError(t, err)
	assert.Equal(t, "SUB-456", norm.SubscriberCode)
	assert.Equal(t, "987654", norm.PlanCode) // numeric id when code absent
	assert.Equal(t, "legacy@example.com", norm.Email)
}

func TestNormalizePayloadSandboxSynthesis(t *testing.T) {
	payload := &HotmartPayload{
		Event: "PURCHASE_APPROVED",
		Data: &HotmartData{
			Subscriber: &HotmartSubscriber{Code: "SANDBOX-1", Email: "sandbox@example.com"},
			Plan:       &HotmartPlan{Name: "plano teste"},
			Purchase:   &HotmartPurchase{Status: "APPROVED", DateNextCharge: 1700000000000},
		},
	}

	// The same payload is not enough outside sandbox mode
	_, err := normalizePayload(payload, false)
	assert.Error(t, err)

	norm, err := normalizePayload(payload, true)
	require.NoError(t, err)
	assert.Equal(t, "SANDBOX-1", norm.SubscriberCode)
	assert.Equal(t, "plano teste", norm.PlanCode) // name is the last resort
	assert.Equal(t, "sandbox@example.com", norm.Email)
	assert.Equal(t, "APPROVED", norm.Status)
}

func TestNormalizePayloadBuyerEmailFallback(t *testing.T) {
	payload := &HotmartPayload{
		Event: "PURCHASE_APPROVED",
		Data: &HotmartData{
			Subscription: &HotmartSubscription{
				SubscriberCode: "SUB-789",
				Plan:           &HotmartPlan{Code: "PRO-M"},
			},
			Buyer: &HotmartBuyer{Email: "buyer@example.com"},
		},
	}

	norm, err := normalizePayload(payload, false)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", norm.Email)
}

func TestNormalizePayloadRejections(t *testing.T) {
	t.Run("no subscription data", func(t *testing.T) {
		_, err := normalizePayload(&HotmartPayload{Event: "PURCHASE_APPROVED"}, false)
		assert.ErrorContains(t, err, "no subscription data")
	})

	t.Run("missing subscriber code", func(t *testing.T) {
		payload := &HotmartPayload{Data: &HotmartData{Subscription: &HotmartSubscription{
			Plan:       &HotmartPlan{Code: "PRO-M"},
			Subscriber: &HotmartSubscriber{Email: "a@b.com"},
		}}}
		_, err := normalizePayload(payload, false)
		assert.ErrorContains(t, err, "subscriber code")
	})

	t.Run("missing plan code", func(t *testing.T) {
		payload := &HotmartPayload{Data: &HotmartData{Subscription: &HotmartSubscription{
			SubscriberCode: "SUB-1",
			Subscriber:     &HotmartSubscriber{Email: "a@b.com"},
		}}}
		_, err := normalizePayload(payload, false)
		assert.ErrorContains(t, err, "plan code")
	})

	t.Run("missing buyer email", func(t *testing.T) {
		payload := &HotmartPayload{Data: &HotmartData{Subscription: &HotmartSubscription{
			SubscriberCode: "SUB-1",
			Plan:           &HotmartPlan{Code: "PRO-M"},
		}}}
		_, err := normalizePayload(payload, false)
		assert.ErrorContains(t, err, "buyer email")
	})

	t.Run("malformed buyer email", func(t *testing.T) {
		payload := &HotmartPayload{Data: &HotmartData{Subscription: &HotmartSubscription{
			SubscriberCode: "SUB-1",
			Plan:           &HotmartPlan{Code: "PRO-M"},
			Subscriber:     &HotmartSubscriber{Email: "not-an-email"},
		}}}
		_, err := normalizePayload(payload, false)
		assert.ErrorContains(t, err, "invalid")
	})
}

func purchasePayload(event, subscriberCode, planCode, email, status string) *HotmartPayload {
	return &HotmartPayload{
		Event: event,
		Data: &HotmartData{
			Subscription: &HotmartSubscription{
				SubscriberCode: subscriberCode,
				Status:         status,
				Plan:           &HotmartPlan{Code: planCode},
				Subscriber:     &HotmartSubscriber{Email: email},
			},
		},
	}
}

func TestProcessWebhookUnknownEvent(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())

	result := svc.ProcessWebhook(&HotmartPayload{Event: "SOMETHING_ELSE"}, false)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "unsupported")
}

func TestProcessWebhookUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	result := svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-1", "PRO-M", "ghost@example.com", "ACTIVE"), false)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "no user found")
}

func TestProcessWebhookUnknownPlan(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	createTestUser(t, db, "buyer@example.com")

	result := svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-1", "NOPE-M", "buyer@example.com", "ACTIVE"), false)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "no plan configured")
}

func TestProcessWebhookPurchaseCreatesSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	user := createTestUser(t, db, "buyer@example.com")
	plan := createTestPlan(t, db, "pro", "PRO-M", intPtr(50), intPtr(1000),
		models.FeatureCodeLimitedEvents, models.FeatureCodeFinance)

	result := svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-100", "PRO-M", "Buyer@Example.com", "ACTIVE"), false)
	require.True(t, result.Success, result.Message)

	var sub models.Subscription
	require.NoError(t, db.Where("hotmart_subscription_id = ?", "SUB-100").First(&sub).Error)
	assert.Equal(t, user.ID, sub.UserID)
	require.NotNil(t, sub.PlanID)
	assert.Equal(t, plan.ID, *sub.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.ElementsMatch(t, plan.FeatureIDs(), []uint(sub.EnabledFeatureIDs))
	assert.NotEmpty(t, sub.History)

	// User cache follows immediately
	var synced models.User
	require.NoError(t, db.First(&synced, user.ID).Error)
	require.NotNil(t, synced.SubscriptionStatus)
	assert.Equal(t, models.UserSubscriptionStatusActive, *synced.SubscriptionStatus)
	require.NotNil(t, synced.CachedPlanName)
	assert.Equal(t, "pro", *synced.CachedPlanName)
}

func TestProcessWebhookPurchaseIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	createTestUser(t, db, "buyer@example.com")
	createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	payload := purchasePayload("PURCHASE_APPROVED", "SUB-100", "PRO-M", "buyer@example.com", "ACTIVE")
	require.True(t, svc.ProcessWebhook(payload, false).Success)
	require.True(t, svc.ProcessWebhook(payload, false).Success)

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).
		Where("hotmart_subscription_id = ?", "SUB-100").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestProcessWebhookTrialPurchase(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	user := createTestUser(t, db, "buyer@example.com")
	createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	result := svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-T", "PRO-M", "buyer@example.com", "TRIAL_PERIOD"), false)
	require.True(t, result.Success, result.Message)

	var sub models.Subscription
	require.NoError(t, db.Where("hotmart_subscription_id = ?", "SUB-T").First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusTrial, sub.Status)

	var synced models.User
	require.NoError(t, db.First(&synced, user.ID).Error)
	require.NotNil(t, synced.SubscriptionStatus)
	assert.Equal(t, models.UserSubscriptionStatusTrial, *synced.SubscriptionStatus)
}

func TestProcessWebhookActivatedRequiresSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	createTestUser(t, db, "buyer@example.com")
	createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	result := svc.ProcessWebhook(
		purchasePayload("SUBSCRIPTION_ACTIVATED", "SUB-404", "PRO-M", "buyer@example.com", "ACTIVE"), false)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "no subscription found")

	// Out-of-order updates must not create phantom subscriptions
	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProcessWebhookCancelledKeepsFeatures(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	user := createTestUser(t, db, "buyer@example.com")
	plan := createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	require.True(t, svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-C", "PRO-M", "buyer@example.com", "ACTIVE"), false).Success)
	result := svc.ProcessWebhook(
		purchasePayload("SUBSCRIPTION_CANCELLATION", "SUB-C", "PRO-M", "buyer@example.com", "CANCELLED"), false)
	require.True(t, result.Success, result.Message)

	var sub models.Subscription
	require.NoError(t, db.Where("hotmart_subscription_id = ?", "SUB-C").First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusCancelled, sub.Status)
	// Snapshot stays until expiry actually lands
	assert.ElementsMatch(t, plan.FeatureIDs(), []uint(sub.EnabledFeatureIDs))

	// But cancelled subscriptions grant nothing
	has, err := svc.Entitlements.HasFeature(user.ID, models.FeatureCodeFinance)
	require.NoError(t, err)
	assert.False(t, has)

	var synced models.User
	require.NoError(t, db.First(&synced, user.ID).Error)
	require.NotNil(t, synced.SubscriptionStatus)
	assert.Equal(t, models.UserSubscriptionStatusCancelled, *synced.SubscriptionStatus)
}

func TestProcessWebhookExpiredRevokesFeatures(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	user := createTestUser(t, db, "buyer@example.com")
	createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	require.True(t, svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-E", "PRO-M", "buyer@example.com", "ACTIVE"), false).Success)
	result := svc.ProcessWebhook(
		purchasePayload("SUBSCRIPTION_EXPIRED", "SUB-E", "PRO-M", "buyer@example.com", "EXPIRED"), false)
	require.True(t, result.Success, result.Message)

	var sub models.Subscription
	require.NoError(t, db.Where("hotmart_subscription_id = ?", "SUB-E").First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusExpired, sub.Status)
	assert.Empty(t, sub.EnabledFeatureIDs)
	require.NotNil(t, sub.EndsAt)

	var synced models.User
	require.NoError(t, db.First(&synced, user.ID).Error)
	require.NotNil(t, synced.SubscriptionStatus)
	assert.Equal(t, models.UserSubscriptionStatusExpired, *synced.SubscriptionStatus)
	assert.Nil(t, synced.CachedPlanID)
}

func TestProcessWebhookChargebackSuspends(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	createTestUser(t, db, "buyer@example.com")
	createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	require.True(t, svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-S", "PRO-M", "buyer@example.com", "ACTIVE"), false).Success)
	result := svc.ProcessWebhook(
		purchasePayload("PURCHASE_CHARGEBACK", "SUB-S", "PRO-M", "buyer@example.com", "ACTIVE"), false)
	require.True(t, result.Success, result.Message)

	var sub models.Subscription
	require.NoError(t, db.Where("hotmart_subscription_id = ?", "SUB-S").First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusSuspended, sub.Status)
	assert.Empty(t, sub.EnabledFeatureIDs)
}

func TestProcessWebhookRenewedUpdatesNextCharge(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	createTestUser(t, db, "buyer@example.com")
	createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	require.True(t, svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-R", "PRO-M", "buyer@example.com", "ACTIVE"), false).Success)

	nextCharge := time.Now().AddDate(0, 1, 0).UnixMilli()
	payload := purchasePayload("SUBSCRIPTION_RENEWED", "SUB-R", "PRO-M", "buyer@example.com", "ACTIVE")
	payload.Data.Subscription.DateNextCharge = nextCharge
	result := svc.ProcessWebhook(payload, false)
	require.True(t, result.Success, result.Message)

	var sub models.Subscription
	require.NoError(t, db.Where("hotmart_subscription_id = ?", "SUB-R").First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.RenewsAt)
	assert.Equal(t, time.UnixMilli(nextCharge).Unix(), sub.RenewsAt.Unix())
}

// Full lifecycle: purchase, cancel, expire, then repurchase under a new
// subscriber code.
func TestProcessWebhookLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	user := createTestUser(t, db, "buyer@example.com")
	createTestPlan(t, db, "pro", "PRO-M", nil, nil, models.FeatureCodeFinance)

	steps := []string{"PURCHASE_APPROVED", "SUBSCRIPTION_CANCELLATION", "SUBSCRIPTION_EXPIRED"}
	for _, event := range steps {
		result := svc.ProcessWebhook(
			purchasePayload(event, "SUB-L1", "PRO-M", "buyer@example.com", "ACTIVE"), false)
		require.True(t, result.Success, "event %s: %s", event, result.Message)
	}

	has, err := svc.Entitlements.HasFeature(user.ID, models.FeatureCodeFinance)
	require.NoError(t, err)
	assert.False(t, has)

	result := svc.ProcessWebhook(
		purchasePayload("PURCHASE_APPROVED", "SUB-L2", "PRO-M", "buyer@example.com", "ACTIVE"), false)
	require.True(t, result.Success, result.Message)

	has, err = svc.Entitlements.HasFeature(user.ID, models.FeatureCodeFinance)
	require.NoError(t, err)
	assert.True(t, has)

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestFindUserByEmailCaseInsensitiveFallback(t *testing.T) {
	db := newTestDB(t)
	svc := NewWebhookService(db, newTestLogger())
	user := createTestUser(t, db, "Mixed.Case@Example.com")

	found, err := svc.findUserByEmail("mixed.case@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
}
