package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eventhub/models"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Internal lifecycle actions, independent of the provider's event
// vocabulary
const (
	actionPurchase  = "purchase"
	actionActivated = "activated"
	actionRenewed   = "renewed"
	actionCancelled = "cancelled"
	actionExpired   = "expired"
	actionSuspended = "suspended"
	actionUnknown   = "unknown"
)

// eventActions maps provider event names to lifecycle actions. Lookup is
// total: anything not listed resolves to actionUnknown, never an error.
var eventActions = map[string]string{
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
}

func mapEventAction(eventName string) string {
	// Provider event names vary in case between environments
	if action, ok := eventActions[strings.ToUpper(strings.TrimSpace(eventName))]; ok {
		return action
	}
	return actionUnknown
}

// WebhookResult is always returned to the provider as a well-formed
// response; a failed delivery is reported, never raised, so the provider's
// retry policy stays in control.
type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WebhookService reconciles the billing provider's asynchronous events
// into local subscription state. Deliveries may be retried or arrive out
// of order, so transitions target absolute statuses and the update-type
// actions require a pre-existing subscription instead of creating one.
type WebhookService struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Entitlements *EntitlementService
}

func NewWebhookService(db *gorm.DB, logger *logrus.Logger) *WebhookService {
	return &WebhookService{
		DB:           db,
		Logger:       logger,
		Entitlements: NewEntitlementService(db, logger),
	}
}

// ProcessWebhook validates, normalizes and applies one webhook delivery.
// All failure modes come back as a result, never a panic or raised error.
func (s *WebhookService) ProcessWebhook(payload *HotmartPayload, sandbox bool) WebhookResult {
	log := s.Logger.WithFields(logrus.Fields{
		"event":   payload.Event,
		"sandbox": sandbox,
	})

	action := mapEventAction(payload.Event)
	if action == actionUnknown {
		log.Warn("unsupported webhook event")
		return WebhookResult{Success: false, Message: fmt.Sprintf("unsupported webhook event %q", payload.Event)}
	}

	norm, err := normalizePayload(payload, sandbox)
	if err != nil {
		log.WithError(err).Warn("webhook payload rejected")
		return WebhookResult{Success: false, Message: err.Error()}
	}

	user, err := s.findUserByEmail(norm.Email)
	if err != nil {
		return s.internalError(log, err)
	}
	if user == nil {
		return WebhookResult{Success: false, Message: fmt.Sprintf("no user found for email %s", norm.Email)}
	}

	plan, err := s.findPlanByCode(norm.PlanCode)
	if err != nil {
		return s.internalError(log, err)
	}
	if plan == nil {
		return WebhookResult{Success: false, Message: fmt.Sprintf("no plan configured for code %s", norm.PlanCode)}
	}

	var message string
	switch action {
	case actionPurchase:
		message, err = s.applyPurchase(user, plan, norm)
	case actionActivated:
		message, err = s.applyActivated(user, plan, norm)
	case actionRenewed:
		message, err = s.applyRenewed(user, norm)
	case actionCancelled:
		message, err = s.applyCancelled(user, norm)
	case actionExpired:
		message, err = s.applyExpired(user, norm)
	case actionSuspended:
		message, err = s.applySuspended(user, norm)
	}
	if err != nil {
		var missing *missingSubscriptionError
		if errors.As(err, &missing) {
			log.WithError(err).Warn("webhook refers to unknown subscription")
			return WebhookResult{Success: false, Message: err.Error()}
		}
		return s.internalError(log, err)
	}

	log.WithField("action", action).Info("webhook applied")
	return WebhookResult{Success: true, Message: message}
}

func (s *WebhookService) internalError(log *logrus.Entry, err error) WebhookResult {
	log.WithError(err).Error("webhook processing failed")
	sentry.CaptureException(err)
	return WebhookResult{Success: false, Message: "internal error processing webhook"}
}

// missingSubscriptionError marks out-of-order update-type webhooks whose
// subscription was never created locally; these must not create phantoms.
type missingSubscriptionError struct {
	subscriberCode string
}

func (e *missingSubscriptionError) Error() string {
	return fmt.Sprintf("no subscription found for subscriber code %s", e.subscriberCode)
}

func (s *WebhookService) findUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Historical records can have inconsistent email casing, so fall back
	// to a full scan with case-insensitive comparison.
	var users []models.User
	if err := s.DB.Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (s *WebhookService) findPlanByCode(code string) (*models.Plan, error) {
	var plan models.Plan
	err := s.DB.Preload("Features").Where("hotmart_code = ?", code).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *WebhookService) subscriptionByCode(code string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.DB.Where("hotmart_subscription_id = ?", code).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &missingSubscriptionError{subscriberCode: code}
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func nextChargeTime(millis int64) *time.Time {
	if millis == 0 {
		return nil
	}
	t := time.UnixMilli(millis)
	return &t
}

func isTrialStatus(status string) bool {
	return strings.Contains(strings.ToUpper(status), "TRIAL")
}

// applyPurchase creates or updates the subscription for the external
// subscriber code. Redelivered purchases update the same row, so the
// upsert stays idempotent on HotmartSubscriptionID.
func (s *WebhookService) applyPurchase(user *models.User, plan *models.Plan, norm *normalizedWebhook) (string, error) {
	status := models.SubscriptionStatusActive
	if isTrialStatus(norm.Status) {
		status = models.SubscriptionStatusTrial
	}
	renewsAt := nextChargeTime(norm.NextChargeAt)

	var sub models.Subscription
	err := s.DB.Where("hotmart_subscription_id = ?", norm.SubscriberCode).First(&sub).Error
	switch {
	case err == nil:
		sub.PlanID = &plan.ID
		sub.EnabledFeatureIDs = plan.FeatureIDs()
		if renewsAt != nil {
			sub.RenewsAt = renewsAt
		}
		sub.SetStatus(status, "purchase webhook redelivered")
		if err := s.DB.Save(&sub).Error; err != nil {
			return "", err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.Subscription{
			UserID:                user.ID,
			PlanID:                &plan.ID,
			HotmartSubscriptionID: norm.SubscriberCode,
			Status:                status,
			StartedAt:             time.Now(),
			RenewsAt:              renewsAt,
			EnabledFeatureIDs:     plan.FeatureIDs(),
		}
		sub.AppendHistory("created", fmt.Sprintf("purchase webhook, plan %s", plan.Name))
		if err := s.DB.Create(&sub).Error; err != nil {
			return "", err
		}
	default:
		return "", err
	}

	if _, err := s.Entitlements.SyncUserPlan(user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("subscription %s %s", norm.SubscriberCode, status), nil
}

func (s *WebhookService) applyActivated(user *models.User, plan *models.Plan, norm *normalizedWebhook) (string, error) {
	sub, err := s.subscriptionByCode(norm.SubscriberCode)
	if err != nil {
		return "", err
	}

	sub.SetStatus(models.SubscriptionStatusActive, "activation webhook")
	sub.EnabledFeatureIDs = plan.FeatureIDs()
	if renewsAt := nextChargeTime(norm.NextChargeAt); renewsAt != nil {
		sub.RenewsAt = renewsAt
	}
	if err := s.DB.Save(sub).Error; err != nil {
		return "", err
	}
	if _, err := s.Entitlements.SyncUserPlan(user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("subscription %s activated", norm.SubscriberCode), nil
}

func (s *WebhookService) applyRenewed(user *models.User, norm *normalizedWebhook) (string, error) {
	sub, err := s.subscriptionByCode(norm.SubscriberCode)
	if err != nil {
		return "", err
	}

	sub.SetStatus(models.SubscriptionStatusActive, "renewal webhook")
	if renewsAt := nextChargeTime(norm.NextChargeAt); renewsAt != nil {
		sub.RenewsAt = renewsAt
	}
	if err := s.DB.Save(sub).Error; err != nil {
		return "", err
	}
	if _, err := s.Entitlements.SyncUserPlan(user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("subscription %s renewed", norm.SubscriberCode), nil
}

// applyCancelled marks the subscription cancelled without revoking
// features: cancellation takes effect at period end, when the expiration
// webhook arrives.
func (s *WebhookService) applyCancelled(user *models.User, norm *normalizedWebhook) (string, error) {
	sub, err := s.subscriptionByCode(norm.SubscriberCode)
	if err != nil {
		return "", err
	}

	sub.SetStatus(models.SubscriptionStatusCancelled, "cancellation webhook")
	if err := s.DB.Save(sub).Error; err != nil {
		return "", err
	}
	if _, err := s.Entitlements.SyncUserPlan(user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("subscription %s cancelled", norm.SubscriberCode), nil
}

// applyExpired is the point features are actually revoked
func (s *WebhookService) applyExpired(user *models.User, norm *normalizedWebhook) (string, error) {
	sub, err := s.subscriptionByCode(norm.SubscriberCode)
	if err != nil {
		return "", err
	}

	now := time.Now()
	sub.SetStatus(models.SubscriptionStatusExpired, "expiration webhook")
	sub.EndsAt = &now
	sub.EnabledFeatureIDs = []uint{}
	if err := s.DB.Save(sub).Error; err != nil {
		return "", err
	}
	if _, err := s.Entitlements.SyncUserPlan(user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("subscription %s expired", norm.SubscriberCode), nil
}

// applySuspended revokes immediately, unlike cancellation: suspension
// implies a payment or compliance problem requiring lockout.
func (s *WebhookService) applySuspended(user *models.User, norm *normalizedWebhook) (string, error) {
	sub, err := s.subscriptionByCode(norm.SubscriberCode)
	if err != nil {
		return "", err
	}

	sub.SetStatus(models.SubscriptionStatusSuspended, "suspension webhook")
	sub.EnabledFeatureIDs = []uint{}
	if err := s.DB.Save(sub).Error; err != nil {
		return "", err
	}
	if _, err := s.Entitlements.SyncUserPlan(user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("subscription %s suspended", norm.SubscriberCode), nil
}
