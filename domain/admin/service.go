package admin

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spiralwrks/spiralworks.ai/internal/audit"
	"github.com/spiralwrks/spiralworks.ai/internal/auth"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/pkg/constants"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// AdminService runs the privileged waitlist operations. Every call is made
// on behalf of an already authenticated actor and leaves an audit record.
type AdminService interface {
	ListEntries(ctx context.Context, actor *auth.Identity, limit int) ([]EntryResponse, error)
	DeleteEntry(ctx context.Context, actor *auth.Identity, id string) (*DeleteEntryResponse, error)
	ClearAll(ctx context.Context, actor *auth.Identity, confirmationCode string) (*ClearAllResponse, error)
}

type BatchConfig struct {
	Size           int
	MaxConcurrency int
	Timeout        time.Duration
}

func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Size:           constants.ClearAllBatchSize,
		MaxConcurrency: constants.ClearAllMaxConcurrency,
		Timeout:        constants.ClearAllBatchTimeout,
	}
}

type adminService struct {
	logger     *log.Logger
	repository AdminRepository
	recorder   audit.Recorder
	batches    BatchConfig
	now        func() time.Time
}

func NewAdminService(logger *log.Logger, repository AdminRepository, recorder audit.Recorder, batches BatchConfig) AdminService {
	defaults := DefaultBatchConfig()
	if batches.Size <= 0 {
		batches.Size = defaults.Size
	}
	if batches.MaxConcurrency <= 0 {
		batches.MaxConcurrency = defaults.MaxConcurrency
	}
	if batches.Timeout <= 0 {
		batches.Timeout = defaults.Timeout
	}

	return &adminService{
		logger:     logger,
		repository: repository,
		recorder:   recorder,
		batches:    batches,
		now:        time.Now,
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return constants.DefaultListLimit
	}
	return min(limit, constants.MaxListLimit)
}

func (s *adminService) ListEntries(ctx context.Context, actor *auth.Identity, limit int) ([]EntryResponse, error) {
	requested := limit
	limit = normalizeLimit(limit)

	s.recorder.Record(ctx, actor.Subject, audit.ActionGetWaitlist, audit.Details{
		"maxResults":          limit,
		"requestedMaxResults": requested,
		"email":               actor.Email,
	})

	entries, err := s.repository.ListEntries(ctx, limit)
	if err != nil {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Error("Failed to list waitlist entries", "error", err)
		return nil, err
	}

	response := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		response = append(response, toEntryResponse(&entries[i]))
	}
	return response, nil
}

func (s *adminService) DeleteEntry(ctx context.Context, actor *auth.Identity, id string) (*DeleteEntryResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entry, err := s.repository.FindEntryByID(ctx, id)
	if err != nil {
		logger.Error("Failed to look up waitlist entry", "entry_id", id, "error", err)
		return nil, err
	}
	if entry == nil {
		return nil, apperrors.NewNotFoundError("Entry not found", nil)
	}

	// Recorded before the delete so the trail survives a failed delete.
	s.recorder.Record(ctx, actor.Subject, audit.ActionDeleteEntry, audit.Details{
		"entryId":    entry.ID,
		"entryEmail": entry.Email,
		"adminEmail": actor.Email,
	})

	if err := s.repository.DeleteEntry(ctx, entry.ID); err != nil {
		logger.Error("Failed to delete waitlist entry", "entry_id", entry.ID, "error", err)
		return nil, err
	}

	logger.Info("Waitlist entry deleted", "entry_id", entry.ID, "actor", actor.Subject)
	return &DeleteEntryResponse{Success: true}, nil
}

func (s *adminService) ClearAll(ctx context.Context, actor *auth.Identity, confirmationCode string) (*ClearAllResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)
	now := s.now().UTC()

	expected := ConfirmationCode(now, actor.Email)
	if !confirmationMatches(confirmationCode, expected) {
		s.recorder.Record(ctx, actor.Subject, audit.ActionInvalidConfirmationCode, audit.Details{
			"providedCode": confirmationCode,
			"expectedCode": expected,
			"adminEmail":   actor.Email,
		})
		logger.Warn("Clear-all refused: confirmation code mismatch", "actor", actor.Subject)
		return nil, apperrors.NewInvalidConfirmationError(nil)
	}

	s.recorder.Record(ctx, actor.Subject, audit.ActionClearAllWaitlist, audit.Details{
		"confirmationProvided": true,
		"adminEmail":           actor.Email,
		"timestamp":            now.Format(constants.RFC3339DateTimeFormat),
	})

	// Once started, the clear is not abandoned because the caller went away.
	ctx = context.WithoutCancel(ctx)

	ids, err := s.repository.ListEntryIDs(ctx)
	if err != nil {
		logger.Error("Failed to snapshot waitlist before clear-all", "error", err)
		return nil, err
	}

	deleted, err := s.deleteInBatches(ctx, ids)
	if err != nil {
		logger.Error("Clear-all stopped with a partial result", "deleted", deleted, "total", len(ids), "error", err)
		return nil, apperrors.NewInternalServerError("Failed to clear waitlist", err).WithDetails(ClearAllResponse{
			Success:      false,
			Message:      fmt.Sprintf("Deleted %d of %d entries before failing", deleted, len(ids)),
			DeletedCount: deleted,
		})
	}

	logger.Warn("Waitlist cleared", "deleted", deleted, "actor", actor.Subject)
	return &ClearAllResponse{
		Success:      true,
		Message:      fmt.Sprintf("Successfully deleted %d entries", deleted),
		DeletedCount: deleted,
	}, nil
}

// deleteInBatches commits each batch on its own and waits for all of them.
// The count covers every batch that committed, even when another failed.
func (s *adminService) deleteInBatches(ctx context.Context, ids []string) (int64, error) {
	var deleted atomic.Int64

	// No shared context: one failed batch must not cancel the others.
	var g errgroup.Group
	g.SetLimit(s.batches.MaxConcurrency)

	for start := 0; start < len(ids); start += s.batches.Size {
		batch := ids[start:min(start+s.batches.Size, len(ids))]

		g.Go(func() error {
			batchCtx, cancel := context.WithTimeout(ctx, s.batches.Timeout)
			defer cancel()

			n, err := s.repository.DeleteEntriesByIDs(batchCtx, batch)
			if err != nil {
				return err
			}
			deleted.Add(n)
			return nil
		})
	}

	// Wait reports the first error once every batch has finished.
	err := g.Wait()
	return deleted.Load(), err
}
