// Package audit appends a durable trace of privileged actions.
package audit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/internal/models"
)

type Action string

const (
	ActionUnauthorizedAccess      Action = "unauthorized_access_attempt"
	ActionGetWaitlist             Action = "admin_get_waitlist"
	ActionDeleteEntry             Action = "admin_delete_entry"
	ActionInvalidConfirmationCode Action = "invalid_confirmation_code"
	ActionClearAllWaitlist        Action = "admin_clear_all_waitlist"
)

type Details map[string]any

const defaultWriteTimeout = 5 * time.Second

type Store interface {
	Append(ctx context.Context, record *models.AuditRecord) error
}

//go:generate mockgen -source=recorder.go -destination=mock_recorder.go -package=audit

// Recorder makes one attempt to persist each record. A failed write is logged
// and never reaches the caller.
type Recorder interface {
	Record(ctx context.Context, actorID string, action Action, details Details)
}

type recorder struct {
	store    Store
	logger   *log.Logger
	timeout  time.Duration
	now      func() time.Time
	failures prometheus.Counter
}

type Option func(*recorder)

func WithTimeout(d time.Duration) Option {
	return func(r *recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMetrics registers a write-failure counter on reg. A nil registerer is
// ignored.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *recorder) {
		if reg == nil {
			return
		}
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waitlist_audit_write_failures_total",
			Help: "Audit records that could not be persisted.",
		})
		if err := reg.Register(counter); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				counter = are.ExistingCollector.(prometheus.Counter)
			} else {
				return
			}
		}
		r.failures = counter
	}
}

func NewRecorder(store Store, logger *log.Logger, opts ...Option) Recorder {
	r := &recorder{
		store:   store,
		logger:  logger,
		timeout: defaultWriteTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *recorder) Record(ctx context.Context, actorID string, action Action, details Details) {
	logger := log.GetLoggerInstanceFromContext(ctx, r.logger)

	// The write outlives a cancelled request but not the timeout.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	record := &models.AuditRecord{
		ActorID:   actorID,
		Action:    string(action),
		Details:   details,
		Timestamp: r.now().UTC(),
	}

	if err := r.store.Append(writeCtx, record); err != nil {
		if r.failures != nil {
			r.failures.Inc()
		}
		logger.Error("Failed to write audit record", "action", action, "actor", actorID, "error", err)
		return
	}

	logger.Info("Audit record written", "action", action, "actor", actorID)
}
