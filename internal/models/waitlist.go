package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaitlistEntry is one accepted signup. Entries are never updated; they are
// only removed by an administrator.
type WaitlistEntry struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Name         string    `gorm:"size:100;not null"`
	Email        string    `gorm:"size:100;not null;uniqueIndex"`
	Organization string    `gorm:"size:100;not null"`
	IPAddress    string    `gorm:"size:64;not null"`
	UserAgent    string    `gorm:"size:512;not null"`
	Source       string    `gorm:"size:64;not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

func (e *WaitlistEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
