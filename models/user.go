package models

import (
	"time"

	"gorm.io/gorm"
)

// User-facing subscription status vocabulary, kept separate from the
// internal Subscription.Status values so the frontend contract never
// changes when internal states do.
const (
	UserSubscriptionStatusActive    = "ATIVA"
	UserSubscriptionStatusTrial     = "TRIAL"
	UserSubscriptionStatusCancelled = "CANCELADA"
	UserSubscriptionStatusExpired   = "EXPIRADA"
	UserSubscriptionStatusSuspended = "SUSPENSA"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string `gorm:"not null" json:"-"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`
	TokenVersion  int    `gorm:"default:0" json:"-"`

	// Profile information
	Name     *string `json:"name,omitempty"`
	Company  *string `json:"company,omitempty"`
	Timezone string  `gorm:"default:'UTC'" json:"timezone"`
	Language string  `gorm:"default:'pt-BR'" json:"language"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`
	IsAdmin  bool `gorm:"default:false" json:"is_admin"`

	// Denormalized subscription view so feature checks elsewhere avoid a
	// join on every request. Written only by EntitlementService.SyncUserPlan;
	// stale until the next sync.
	CachedPlanID       *uint      `json:"cached_plan_id,omitempty"`
	CachedPlanName     *string    `json:"cached_plan_name,omitempty"`
	SubscriptionStatus *string    `json:"subscription_status,omitempty"` // ATIVA, TRIAL, CANCELADA, EXPIRADA, SUSPENSA
	PaymentCurrent     *bool      `json:"payment_current,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	NextPaymentAt      *time.Time `json:"next_payment_at,omitempty"`
	LastSyncedAt       *time.Time `json:"last_synced_at,omitempty"`

	// Relations
	Subscriptions []Subscription `gorm:"foreignKey:UserID" json:"subscriptions,omitempty"`
	Events        []Event        `gorm:"foreignKey:UserID" json:"events,omitempty"`
	Clients       []Client       `gorm:"foreignKey:UserID" json:"clients,omitempty"`
}

// RefreshToken stores issued refresh tokens so they can be revoked
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`

	User User `json:"-"`
}
