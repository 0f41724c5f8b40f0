package audit

import (
	"context"
	"fmt"

	"github.com/spiralwrks/spiralworks.ai/internal/models"
	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Append(ctx context.Context, record *models.AuditRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}
