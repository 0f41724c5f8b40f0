package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRecord is an append-only trace of a privileged action or a refused
// attempt at one.
type AuditRecord struct {
	ID        string         `gorm:"type:varchar(36);primaryKey"`
	ActorID   string         `gorm:"size:255;not null;index"`
	Action    string         `gorm:"size:64;not null;index"`
	Details   map[string]any `gorm:"type:text;serializer:json"`
	Timestamp time.Time      `gorm:"not null;index"`
}

func (AuditRecord) TableName() string {
	return "admin_audit_logs"
}

func (r *AuditRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
