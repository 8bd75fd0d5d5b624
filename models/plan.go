package models

import "gorm.io/gorm"

const (
	BillingIntervalMonthly = "monthly"
	BillingIntervalYearly  = "yearly"
)

// Plan represents a priced bundle of features plus numeric usage caps.
// A nil cap means unlimited; a zero cap means zero allowed.
type Plan struct {
	gorm.Model
	Name        string `gorm:"not null;uniqueIndex" json:"name"`
	Description string `json:"description"`

	// External billing-provider plan identifier used to match webhooks
	HotmartCode string `gorm:"uniqueIndex;not null" json:"hotmart_code"`

	PriceCents      int    `gorm:"not null" json:"price_cents"`
	BillingInterval string `gorm:"default:'monthly'" json:"billing_interval"` // monthly, yearly

	Active      bool `gorm:"default:true" json:"active"`
	Highlighted bool `gorm:"default:false" json:"highlighted"`

	// Usage caps
	MaxEvents    *int `json:"max_events,omitempty"`     // per calendar month
	MaxClients   *int `json:"max_clients,omitempty"`    // per calendar year
	MaxUsers     *int `json:"max_users,omitempty"`      // account seats
	MaxStorageMB *int `json:"max_storage_mb,omitempty"` // attachment storage

	// Relations
	Features []Feature `gorm:"many2many:plan_features" json:"features,omitempty"`
}

// FeatureIDs returns the plan's feature set as a list of ids, the shape
// snapshotted into subscriptions at purchase time.
func (p *Plan) FeatureIDs() []uint {
	ids := make([]uint, 0, len(p.Features))
	for _, f := range p.Features {
		ids = append(ids, f.ID)
	}
	return ids
}
