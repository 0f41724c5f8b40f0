package admin

import (
	"context"
	"errors"

	"github.com/spiralwrks/spiralworks.ai/internal/models"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"gorm.io/gorm"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=admin

type AdminRepository interface {
	// ListEntries returns at most limit entries, newest first.
	ListEntries(ctx context.Context, limit int) ([]models.WaitlistEntry, error)
	// FindEntryByID returns (nil, nil) when the entry does not exist.
	FindEntryByID(ctx context.Context, id string) (*models.WaitlistEntry, error)
	DeleteEntry(ctx context.Context, id string) error
	ListEntryIDs(ctx context.Context) ([]string, error)
	// DeleteEntriesByIDs removes the given entries in one transaction and
	// reports how many rows were actually deleted.
	DeleteEntriesByIDs(ctx context.Context, ids []string) (int64, error)
}

type adminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) ListEntries(ctx context.Context, limit int) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to list waitlist entries", err)
	}

	return entries, nil
}

func (r *adminRepository) FindEntryByID(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry

	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to look up waitlist entry", err)
	}

	return &entry, nil
}

func (r *adminRepository) DeleteEntry(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.WaitlistEntry{})
	if result.Error != nil {
		return apperrors.NewDatabaseError("failed to delete waitlist entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("Entry not found", nil)
	}
	return nil
}

func (r *adminRepository) ListEntryIDs(ctx context.Context) ([]string, error) {
	var ids []string

	if err := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.NewDatabaseError("failed to list waitlist entry ids", err)
	}

	return ids, nil
}

func (r *adminRepository) DeleteEntriesByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id IN ?", ids).Delete(&models.WaitlistEntry{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, apperrors.NewDatabaseError("failed to delete waitlist batch", err)
	}

	return deleted, nil
}
