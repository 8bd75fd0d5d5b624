package models

import "gorm.io/gorm"

// Client is a customer record created by a user. The yearly usage limit
// counts rows by CreatedAt within the current calendar year.
type Client struct {
	gorm.Model
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Name   string `gorm:"not null" json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`

	User User `json:"-"`
}
