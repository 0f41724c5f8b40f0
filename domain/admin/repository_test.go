package admin

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/internal/models"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.ModelRegistry...))
	return db
}

func seedEntries(t *testing.T, db *gorm.DB, n int) {
	t.Helper()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]models.WaitlistEntry, n)
	for i := range entries {
		entries[i] = models.WaitlistEntry{
			Name:         fmt.Sprintf("User %d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			Organization: "Not provided",
			IPAddress:    "203.0.113.7",
			UserAgent:    "test",
			Source:       "website-waitlist",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
	}
	require.NoError(t, db.CreateInBatches(entries, 200).Error)
}

func TestAdminRepository_ListEntries(t *testing.T) {
	db := newTestDB(t)
	seedEntries(t, db, 5)
	repo := NewAdminRepository(db)

	entries, err := repo.ListEntries(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "user4@example.com", entries[0].Email)
	assert.Equal(t, "user3@example.com", entries[1].Email)
	assert.Equal(t, "user2@example.com", entries[2].Email)
}

func TestAdminRepository_FindAndDelete(t *testing.T) {
	db := newTestDB(t)
	seedEntries(t, db, 1)
	repo := NewAdminRepository(db)

	ids, err := repo.ListEntryIDs(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)

	entry, err := repo.FindEntryByID(context.Background(), ids[0])
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "user0@example.com", entry.Email)

	require.NoError(t, repo.DeleteEntry(context.Background(), ids[0]))

	entry, err = repo.FindEntryByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Nil(t, entry)

	err = repo.DeleteEntry(context.Background(), ids[0])
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestAdminRepository_DeleteEntriesByIDs(t *testing.T) {
	db := newTestDB(t)
	seedEntries(t, db, 12)
	repo := NewAdminRepository(db)

	ids, err := repo.ListEntryIDs(context.Background())
	require.NoError(t, err)

	deleted, err := repo.DeleteEntriesByIDs(context.Background(), append(ids[:5:5], "00000000-0000-0000-0000-000000000000"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)

	deleted, err = repo.DeleteEntriesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.WaitlistEntry{}).Count(&remaining).Error)
	assert.Equal(t, int64(7), remaining)
}

func TestAdminService_ClearAllAgainstSQLite(t *testing.T) {
	db := newTestDB(t)
	seedEntries(t, db, 1200)

	_, recorder, _ := newTestService(t, BatchConfig{})
	recorder.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(2)

	svc := NewAdminService(log.NewDiscardLogger(), NewAdminRepository(db), recorder, BatchConfig{Size: 500, MaxConcurrency: 4, Timeout: 5 * time.Second})
	code := ConfirmationCode(time.Now(), actor.Email)

	resp, err := svc.ClearAll(context.Background(), actor, code)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), resp.DeletedCount)

	resp, err = svc.ClearAll(context.Background(), actor, code)
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.DeletedCount)
}
