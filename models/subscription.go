package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Internal subscription lifecycle states
const (
	SubscriptionStatusTrial     = "trial"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusSuspended = "suspended"
)

// HistoryEntry is one append-only audit record on a subscription
type HistoryEntry struct {
	At      time.Time `json:"at"`
	Action  string    `json:"action"`
	Details string    `json:"details,omitempty"`
}

// Subscription is a user's instance of having purchased or trialed a plan.
// Rows are never deleted; the history must survive for audit after the
// subscription stops being active.
type Subscription struct {
	gorm.Model
	UserID uint  `gorm:"not null;index" json:"user_id"`
	PlanID *uint `json:"plan_id,omitempty"`

	// External correlation key used for idempotent webhook matching
	HotmartSubscriptionID string `gorm:"uniqueIndex;not null" json:"hotmart_subscription_id"`

	Status    string     `gorm:"not null;default:'trial';index" json:"status"` // trial, active, cancelled, expired, suspended
	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	RenewsAt  *time.Time `json:"renews_at,omitempty"`

	// Snapshot of the plan's feature ids at purchase/update time. Later
	// plan edits do not change this unless explicitly re-synced.
	EnabledFeatureIDs datatypes.JSONSlice[uint] `json:"enabled_feature_ids"`

	History datatypes.JSONSlice[HistoryEntry] `json:"history"`

	// Relations
	User User  `json:"-"`
	Plan *Plan `json:"plan,omitempty"`
}

// IsActive reports whether the subscription grants entitlements right now.
// Cancelled subscriptions are not active even though their features remain
// listed until expiry is processed.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrial
}

// AppendHistory adds an audit entry to the subscription's history
func (s *Subscription) AppendHistory(action, details string) {
	s.History = append(s.History, HistoryEntry{
		At:      time.Now(),
		Action:  action,
		Details: details,
	})
}

// SetStatus transitions the subscription to a new status. Every status
// change must go through here so the history entry is never skipped.
func (s *Subscription) SetStatus(status, details string) {
	s.AppendHistory("status_change", fmt.Sprintf("%s -> %s: %s", s.Status, status, details))
	s.Status = status
}

// HasFeatureID reports whether a feature id is in the granted snapshot
func (s *Subscription) HasFeatureID(id uint) bool {
	for _, fid := range s.EnabledFeatureIDs {
		if fid == id {
			return true
		}
	}
	return false
}
