package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/spiralwrks/spiralworks.ai/internal/models"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.ModelRegistry...))
	return db
}

func newEntry(email string) *models.WaitlistEntry {
	return &models.WaitlistEntry{
		Name:         "Ada Lovelace",
		Email:        email,
		Organization: "Analytical Engines",
		IPAddress:    "203.0.113.7",
		UserAgent:    "test",
		Source:       "website-waitlist",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestWaitlistRepository_CreateAndFind(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	ctx := context.Background()

	missing, err := repo.FindEntryByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := repo.CreateEntry(ctx, newEntry("ada@example.com"))
	require.NoError(t, err)
	assert.Len(t, created.ID, 36)

	found, err := repo.FindEntryByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Analytical Engines", found.Organization)
}

func TestWaitlistRepository_UniqueEmail(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.CreateEntry(ctx, newEntry("ada@example.com"))
	require.NoError(t, err)

	_, err = repo.CreateEntry(ctx, newEntry("ada@example.com"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}
