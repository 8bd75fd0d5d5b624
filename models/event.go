package models

import (
	"time"

	"gorm.io/gorm"
)

// Event is an event record created by a user. Creation timestamps drive
// the monthly usage limit, so CreatedAt is the authoritative field.
type Event struct {
	gorm.Model
	UserID   uint      `gorm:"not null;index" json:"user_id"`
	Name     string    `gorm:"not null" json:"name"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
	Status   string    `gorm:"default:'planned'" json:"status"` // planned, confirmed, done, cancelled

	User User `json:"-"`
}
