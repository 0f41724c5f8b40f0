package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spiralwrks/spiralworks.ai/internal/audit"
	"github.com/spiralwrks/spiralworks.ai/internal/auth"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/internal/models"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	actor     = &auth.Identity{Subject: "uid-42", Email: "admin@spiralworks.ai"}
	fixedTime = time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC)
)

func newTestService(t *testing.T, batches BatchConfig) (*MockAdminRepository, *audit.MockRecorder, AdminService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := NewMockAdminRepository(ctrl)
	recorder := audit.NewMockRecorder(ctrl)

	svc := NewAdminService(log.NewDiscardLogger(), repo, recorder, batches)
	svc.(*adminService).now = func() time.Time { return fixedTime }
	return repo, recorder, svc
}

func TestConfirmationCode(t *testing.T) {
	assert.Equal(t, "256843cb", ConfirmationCode(fixedTime, "admin@spiralworks.ai"))

	// The day is taken in UTC.
	nyc := time.FixedZone("EDT", -4*3600)
	assert.Equal(t, "256843cb", ConfirmationCode(fixedTime.In(nyc), "admin@spiralworks.ai"))

	assert.Equal(t, "a0e6b4b7", ConfirmationCode(fixedTime.Add(time.Hour), "admin@spiralworks.ai"))
	assert.Equal(t, "2ce49e53", ConfirmationCode(fixedTime, "other@spiralworks.ai"))
}

func TestAdminService_ListEntries(t *testing.T) {
	cases := []struct {
		name      string
		requested int
		expected  int
	}{
		{"default when unset", 0, 100},
		{"default when negative", -3, 100},
		{"explicit limit", 25, 25},
		{"capped", 50000, 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, recorder, svc := newTestService(t, BatchConfig{})

			created := fixedTime.Add(-time.Hour)
			gomock.InOrder(
				recorder.EXPECT().Record(gomock.Any(), "uid-42", audit.ActionGetWaitlist, audit.Details{
					"maxResults":          tc.expected,
					"requestedMaxResults": tc.requested,
					"email":               "admin@spiralworks.ai",
				}),
				repo.EXPECT().ListEntries(gomock.Any(), tc.expected).Return([]models.WaitlistEntry{
					{ID: "e1", Name: "Ada", Email: "ada@example.com", Organization: "Not provided", CreatedAt: created},
				}, nil),
			)

			entries, err := svc.ListEntries(context.Background(), actor, tc.requested)

			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "e1", entries[0].ID)
			assert.Equal(t, "2026-10-19T22:30:00Z", entries[0].CreatedAt)
		})
	}

	t.Run("storage failure", func(t *testing.T) {
		repo, recorder, svc := newTestService(t, BatchConfig{})

		recorder.EXPECT().Record(gomock.Any(), gomock.Any(), audit.ActionGetWaitlist, gomock.Any())
		repo.EXPECT().ListEntries(gomock.Any(), 100).Return(nil, apperrors.NewDatabaseError("failed to list waitlist entries", errors.New("boom")))

		_, err := svc.ListEntries(context.Background(), actor, 0)
		assert.Equal(t, apperrors.StatusInternalServerError, apperrors.HTTPStatusCode(err))
	})
}

func TestAdminService_DeleteEntry(t *testing.T) {
	t.Run("audits before deleting", func(t *testing.T) {
		repo, recorder, svc := newTestService(t, BatchConfig{})

		gomock.InOrder(
			repo.EXPECT().FindEntryByID(gomock.Any(), "e1").Return(&models.WaitlistEntry{ID: "e1", Email: "ada@example.com"}, nil),
			recorder.EXPECT().Record(gomock.Any(), "uid-42", audit.ActionDeleteEntry, audit.Details{
				"entryId":    "e1",
				"entryEmail": "ada@example.com",
				"adminEmail": "admin@spiralworks.ai",
			}),
			repo.EXPECT().DeleteEntry(gomock.Any(), "e1").Return(nil),
		)

		resp, err := svc.DeleteEntry(context.Background(), actor, "e1")

		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("missing entry is not found and not audited", func(t *testing.T) {
		repo, _, svc := newTestService(t, BatchConfig{})

		repo.EXPECT().FindEntryByID(gomock.Any(), "gone").Return(nil, nil)

		_, err := svc.DeleteEntry(context.Background(), actor, "gone")

		require.Error(t, err)
		assert.Equal(t, apperrors.StatusNotFound, apperrors.HTTPStatusCode(err))
		assert.Equal(t, "Entry not found", apperrors.GetHumanReadableMessage(err))
	})

	t.Run("failed delete keeps the audit record", func(t *testing.T) {
		repo, recorder, svc := newTestService(t, BatchConfig{})

		repo.EXPECT().FindEntryByID(gomock.Any(), "e1").Return(&models.WaitlistEntry{ID: "e1", Email: "ada@example.com"}, nil)
		recorder.EXPECT().Record(gomock.Any(), gomock.Any(), audit.ActionDeleteEntry, gomock.Any()).Times(1)
		repo.EXPECT().DeleteEntry(gomock.Any(), "e1").Return(apperrors.NewDatabaseError("failed to delete waitlist entry", errors.New("locked")))

		_, err := svc.DeleteEntry(context.Background(), actor, "e1")
		assert.Equal(t, apperrors.StatusInternalServerError, apperrors.HTTPStatusCode(err))
	})
}

func TestAdminService_ClearAll(t *testing.T) {
	t.Run("wrong code is audited with both codes", func(t *testing.T) {
		_, recorder, svc := newTestService(t, BatchConfig{})

		recorder.EXPECT().Record(gomock.Any(), "uid-42", audit.ActionInvalidConfirmationCode, audit.Details{
			"providedCode": "a0e6b4b7",
			"expectedCode": "256843cb",
			"adminEmail":   "admin@spiralworks.ai",
		})

		resp, err := svc.ClearAll(context.Background(), actor, "a0e6b4b7")

		assert.Nil(t, resp)
		require.Error(t, err)
		assert.Equal(t, apperrors.StatusBadRequest, apperrors.HTTPStatusCode(err))
		assert.Equal(t, "Invalid confirmation code", apperrors.GetHumanReadableMessage(err))
	})

	t.Run("another admin's code is rejected", func(t *testing.T) {
		_, recorder, svc := newTestService(t, BatchConfig{})

		recorder.EXPECT().Record(gomock.Any(), gomock.Any(), audit.ActionInvalidConfirmationCode, gomock.Any())

		_, err := svc.ClearAll(context.Background(), actor, ConfirmationCode(fixedTime, "other@spiralworks.ai"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidConfirmation))
	})

	t.Run("deletes every batch after auditing intent", func(t *testing.T) {
		repo, recorder, svc := newTestService(t, BatchConfig{Size: 500, MaxConcurrency: 2, Timeout: time.Second})

		ids := make([]string, 1201)
		for i := range ids {
			ids[i] = fmt.Sprintf("id-%04d", i)
		}

		var mu sync.Mutex
		var batchSizes []int

		audited := recorder.EXPECT().Record(gomock.Any(), "uid-42", audit.ActionClearAllWaitlist, audit.Details{
			"confirmationProvided": true,
			"adminEmail":           "admin@spiralworks.ai",
			"timestamp":            "2026-10-19T23:30:00Z",
		})
		snapshot := repo.EXPECT().ListEntryIDs(gomock.Any()).Return(ids, nil).After(audited)
		repo.EXPECT().
			DeleteEntriesByIDs(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, batch []string) (int64, error) {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				mu.Lock()
				batchSizes = append(batchSizes, len(batch))
				mu.Unlock()
				return int64(len(batch)), nil
			}).
			Times(3).
			After(snapshot)

		resp, err := svc.ClearAll(context.Background(), actor, "256843cb")

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, int64(1201), resp.DeletedCount)
		assert.Equal(t, "Successfully deleted 1201 entries", resp.Message)
		assert.ElementsMatch(t, []int{500, 500, 201}, batchSizes)
	})

	t.Run("empty waitlist deletes nothing", func(t *testing.T) {
		repo, recorder, svc := newTestService(t, BatchConfig{})

		recorder.EXPECT().Record(gomock.Any(), gomock.Any(), audit.ActionClearAllWaitlist, gomock.Any())
		repo.EXPECT().ListEntryIDs(gomock.Any()).Return(nil, nil)

		resp, err := svc.ClearAll(context.Background(), actor, "256843cb")

		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.DeletedCount)
		assert.Equal(t, "Successfully deleted 0 entries", resp.Message)
	})

	t.Run("failed batch reports the partial count", func(t *testing.T) {
		repo, recorder, svc := newTestService(t, BatchConfig{Size: 2, MaxConcurrency: 1, Timeout: time.Second})

		recorder.EXPECT().Record(gomock.Any(), gomock.Any(), audit.ActionClearAllWaitlist, gomock.Any())
		repo.EXPECT().ListEntryIDs(gomock.Any()).Return([]string{"a", "b", "c", "d"}, nil)
		gomock.InOrder(
			repo.EXPECT().DeleteEntriesByIDs(gomock.Any(), []string{"a", "b"}).Return(int64(2), nil),
			repo.EXPECT().DeleteEntriesByIDs(gomock.Any(), []string{"c", "d"}).Return(int64(0), errors.New("deadline exceeded")),
		)

		resp, err := svc.ClearAll(context.Background(), actor, "256843cb")

		assert.Nil(t, resp)
		require.Error(t, err)
		assert.Equal(t, apperrors.StatusInternalServerError, apperrors.HTTPStatusCode(err))

		partial, ok := apperrors.GetDetails(err).(ClearAllResponse)
		require.True(t, ok)
		assert.Equal(t, int64(2), partial.DeletedCount)
		assert.False(t, partial.Success)
	})

	t.Run("first batch failing leaves the other batches running", func(t *testing.T) {
		repo, recorder, svc := newTestService(t, BatchConfig{Size: 2, MaxConcurrency: 4, Timeout: time.Second})

		recorder.EXPECT().Record(gomock.Any(), gomock.Any(), audit.ActionClearAllWaitlist, gomock.Any())
		repo.EXPECT().ListEntryIDs(gomock.Any()).Return([]string{"a", "b", "c", "d", "e", "f"}, nil)
		repo.EXPECT().DeleteEntriesByIDs(gomock.Any(), []string{"a", "b"}).
			Return(int64(0), errors.New("connection reset"))
		slowBatch := func(ctx context.Context, batch []string) (int64, error) {
			select {
			case <-time.After(100 * time.Millisecond):
				return int64(len(batch)), nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
		repo.EXPECT().DeleteEntriesByIDs(gomock.Any(), []string{"c", "d"}).DoAndReturn(slowBatch)
		repo.EXPECT().DeleteEntriesByIDs(gomock.Any(), []string{"e", "f"}).DoAndReturn(slowBatch)

		resp, err := svc.ClearAll(context.Background(), actor, "256843cb")

		assert.Nil(t, resp)
		require.Error(t, err)
		assert.ErrorContains(t, err, "connection reset")

		partial, ok := apperrors.GetDetails(err).(ClearAllResponse)
		require.True(t, ok)
		assert.Equal(t, int64(4), partial.DeletedCount)
		assert.Equal(t, "Deleted 4 of 6 entries before failing", partial.Message)
	})

	t.Run("a cancelled request still finishes the clear", func(t *testing.T) {
		repo, recorder, svc := newTestService(t, BatchConfig{Size: 10})

		ctx, cancel := context.WithCancel(context.Background())
		recorder.EXPECT().Record(gomock.Any(), gomock.Any(), audit.ActionClearAllWaitlist, gomock.Any()).
			Do(func(context.Context, string, audit.Action, audit.Details) { cancel() })
		repo.EXPECT().ListEntryIDs(gomock.Any()).Return([]string{"a"}, nil)
		repo.EXPECT().DeleteEntriesByIDs(gomock.Any(), []string{"a"}).
			DoAndReturn(func(ctx context.Context, _ []string) (int64, error) {
				return 1, ctx.Err()
			})

		resp, err := svc.ClearAll(ctx, actor, "256843cb")

		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.DeletedCount)
	})
}
