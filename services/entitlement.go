package services

import (
	"errors"
	"fmt"
	"time"

	"eventhub/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Plan status values exposed to the frontend alongside the subscription
const (
	PlanStatusNoSubscription = "sem_assinatura"
)

// PlanStatus is the resolved "what does this user currently have" answer
type PlanStatus struct {
	Plan           *models.Plan         `json:"plan,omitempty"`
	Subscription   *models.Subscription `json:"subscription,omitempty"`
	Status         string               `json:"status"`
	PaymentCurrent bool                 `json:"payment_current"`
	Active         bool                 `json:"active"`
	Message        string               `json:"message,omitempty"`
}

// EntitlementService answers "can user X do Y" and keeps the denormalized
// user-side subscription cache in sync. Absence of a subscription, plan or
// feature is never an error; it resolves to the most restrictive answer.
// A missing user record is an error, since callers always hold a real user.
type EntitlementService struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewEntitlementService(db *gorm.DB, logger *logrus.Logger) *EntitlementService {
	return &EntitlementService{DB: db, Logger: logger}
}

// isUnrestricted is the single admin-bypass check consumed by every gated
// method, so the bypass logic cannot diverge between them.
func (s *EntitlementService) isUnrestricted(user *models.User) bool {
	return user.IsAdmin
}

func (s *EntitlementService) getUser(userID uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user %d not found: %w", userID, err)
	}
	return &user, nil
}

// ActiveSubscription returns the most recent subscription in trial or
// active status, or nil when the user has none.
func (s *EntitlementService) ActiveSubscription(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.DB.
		Where("user_id = ? AND status IN ?", userID,
			[]string{models.SubscriptionStatusTrial, models.SubscriptionStatusActive}).
		Order("started_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// latestSubscription returns the active subscription, falling back to the
// most recent subscription of any status.
func (s *EntitlementService) latestSubscription(userID uint) (*models.Subscription, error) {
	sub, err := s.ActiveSubscription(userID)
	if err != nil || sub != nil {
		return sub, err
	}
	var latest models.Subscription
	err = s.DB.Where("user_id = ?", userID).Order("started_at DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &latest, nil
}

// HasFeature reports whether the user currently holds the feature with the
// given code. Cancelled, expired and suspended subscriptions never grant
// features, even while the grant snapshot still lists them.
func (s *EntitlementService) HasFeature(userID uint, code string) (bool, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return false, err
	}
	if s.isUnrestricted(user) {
		return true, nil
	}

	var feature models.Feature
	err = s.DB.Where("code = ?", code).First(&feature).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !feature.Active {
		return false, nil
	}

	sub, err := s.ActiveSubscription(userID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	return sub.HasFeatureID(feature.ID), nil
}

// EnabledFeatures resolves the user's granted feature ids to live feature
// records, dropping ids that no longer resolve or were globally disabled
// after being granted.
func (s *EntitlementService) EnabledFeatures(userID uint) ([]models.Feature, error) {
	if _, err := s.getUser(userID); err != nil {
		return nil, err
	}

	sub, err := s.ActiveSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || len(sub.EnabledFeatureIDs) == 0 {
		return []models.Feature{}, nil
	}

	var features []models.Feature
	err = s.DB.
		Where("id IN ? AND active = ?", []uint(sub.EnabledFeatureIDs), true).
		Order("sort_order ASC").
		Find(&features).Error
	if err != nil {
		return nil, err
	}
	return features, nil
}

// PlanStatus resolves the user's current plan, subscription and payment
// health into one display-ready answer.
func (s *EntitlementService) PlanStatus(userID uint) (*PlanStatus, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	if s.isUnrestricted(user) {
		// Synthetic always-active status for display only; admin access
		// does not flow through plans.
		var plan models.Plan
		if err := s.DB.Where("active = ?", true).Order("price_cents DESC").First(&plan).Error; err == nil {
			return &PlanStatus{
				Plan:           &plan,
				Status:         models.SubscriptionStatusActive,
				PaymentCurrent: true,
				Active:         true,
			}, nil
		}
		return &PlanStatus{Status: models.SubscriptionStatusActive, PaymentCurrent: true, Active: true}, nil
	}

	sub, err := s.latestSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &PlanStatus{
			Status:  PlanStatusNoSubscription,
			Active:  false,
			Message: "Nenhuma assinatura encontrada",
		}, nil
	}

	status := &PlanStatus{
		Subscription:   sub,
		Status:         sub.Status,
		Active:         sub.IsActive(),
		PaymentCurrent: s.paymentCurrent(sub),
	}

	if sub.PlanID != nil {
		var plan models.Plan
		if err := s.DB.Preload("Features").First(&plan, *sub.PlanID).Error; err == nil {
			status.Plan = &plan
		}
	}

	switch {
	case !status.Active:
		status.Message = fmt.Sprintf("Assinatura %s", translateStatus(sub.Status))
	case !status.PaymentCurrent:
		status.Message = "Pagamento pendente"
	}
	return status, nil
}

// ValidatePayment is the single source of truth for "is this subscription
// currently honorable". It is stricter than the status field alone because
// EndsAt can lapse before the provider's status webhook arrives.
func (s *EntitlementService) ValidatePayment(userID uint) (bool, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return false, err
	}
	if s.isUnrestricted(user) {
		return true, nil
	}

	sub, err := s.ActiveSubscription(userID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	return s.paymentCurrent(sub), nil
}

func (s *EntitlementService) paymentCurrent(sub *models.Subscription) bool {
	if !sub.IsActive() {
		return false
	}
	if sub.EndsAt != nil && sub.EndsAt.Before(time.Now()) {
		return false
	}
	return true
}

// SyncUserPlan recomputes the denormalized subscription cache on the user
// record. It is the only code path allowed to write those fields.
func (s *EntitlementService) SyncUserPlan(userID uint) (*models.User, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.latestSubscription(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"last_synced_at": now,
	}

	if sub == nil {
		updates["cached_plan_id"] = nil
		updates["cached_plan_name"] = nil
		updates["subscription_status"] = nil
		updates["payment_current"] = nil
		updates["expires_at"] = nil
		updates["next_payment_at"] = nil
	} else {
		updates["subscription_status"] = mapUserStatus(sub.Status)
		updates["payment_current"] = s.paymentCurrent(sub)

		revoked := sub.Status == models.SubscriptionStatusExpired ||
			sub.Status == models.SubscriptionStatusSuspended
		if sub.PlanID != nil && !revoked {
			var plan models.Plan
			if err := s.DB.First(&plan, *sub.PlanID).Error; err == nil {
				updates["cached_plan_id"] = plan.ID
				updates["cached_plan_name"] = plan.Name
			}
		} else {
			updates["cached_plan_id"] = nil
			updates["cached_plan_name"] = nil
		}

		// Only fields with defined values are written; absent dates keep
		// their previous value rather than being nulled.
		if sub.EndsAt != nil {
			updates["expires_at"] = *sub.EndsAt
		}
		if sub.RenewsAt != nil {
			updates["next_payment_at"] = *sub.RenewsAt
		}
	}

	if err := s.DB.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.DB.First(user, userID).Error; err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{
		"user_id": userID,
	}).Debug("synced user subscription cache")
	return user, nil
}

func mapUserStatus(status string) string {
	switch status {
	case models.SubscriptionStatusActive:
		return models.UserSubscriptionStatusActive
	case models.SubscriptionStatusTrial:
		return models.UserSubscriptionStatusTrial
	case models.SubscriptionStatusCancelled:
		return models.UserSubscriptionStatusCancelled
	case models.SubscriptionStatusExpired:
		return models.UserSubscriptionStatusExpired
	case models.SubscriptionStatusSuspended:
		return models.UserSubscriptionStatusSuspended
	}
	return status
}

func translateStatus(status string) string {
	switch status {
	case models.SubscriptionStatusCancelled:
		return "cancelada"
	case models.SubscriptionStatusExpired:
		return "expirada"
	case models.SubscriptionStatusSuspended:
		return "suspensa"
	}
	return status
}
