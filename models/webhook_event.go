package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent logs every received billing webhook with its outcome so
// out-of-order or rejected deliveries can be debugged after the fact.
type WebhookEvent struct {
	gorm.Model
	Provider       string         `gorm:"not null;default:'hotmart';index" json:"provider"`
	EventName      string         `gorm:"not null;index" json:"event_name"`
	Payload        datatypes.JSON `json:"payload"`
	SignatureValid bool           `gorm:"default:false" json:"signature_valid"`
	Sandbox        bool           `gorm:"default:false" json:"sandbox"`
	Success        bool           `gorm:"default:false" json:"success"`
	Message        string         `json:"message"`
}
