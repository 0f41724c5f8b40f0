package waitlist

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/internal/models"
	"github.com/spiralwrks/spiralworks.ai/pkg/constants"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"github.com/spiralwrks/spiralworks.ai/pkg/notify"
	"github.com/spiralwrks/spiralworks.ai/pkg/ratelimit"
)

type WaitlistService interface {
	// Signup admits a public signup. Both a new entry and an already known
	// email answer success; only the Duplicate flag differs.
	Signup(ctx context.Context, req *SignupRequest, client ClientInfo) (*SignupResponse, error)

	// IssueCsrfToken mints the token a later Signup from the same session must present.
	IssueCsrfToken(ctx context.Context, sessionID string) (string, error)
}

type CsrfTokens interface {
	Issue(ctx context.Context, sessionID string) (string, error)
	Validate(ctx context.Context, sessionID, candidate string) (bool, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, event notify.SignupEvent)
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	limiter    ratelimit.RateLimiter
	tokens     CsrfTokens
	notifier   Notifier
	metrics    *signupMetrics
	validate   *validator.Validate
	now        func() time.Time
}

func NewWaitlistService(
	logger *log.Logger,
	repository WaitlistRepository,
	limiter ratelimit.RateLimiter,
	tokens CsrfTokens,
	notifier Notifier,
	registerer prometheus.Registerer,
) WaitlistService {
	return &waitlistService{
		logger:     logger,
		repository: repository,
		limiter:    limiter,
		tokens:     tokens,
		notifier:   notifier,
		metrics:    newSignupMetrics(registerer),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}
}

func (s *waitlistService) IssueCsrfToken(ctx context.Context, sessionID string) (string, error) {
	token, err := s.tokens.Issue(ctx, sessionID)
	if err != nil {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Error("Failed to issue CSRF token", "error", err)
		return "", apperrors.NewInternalServerError("Internal server error", err)
	}
	return token, nil
}

func (s *waitlistService) Signup(ctx context.Context, req *SignupRequest, client ClientInfo) (*SignupResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		s.metrics.observe(outcomeInvalid)
		return nil, apperrors.NewValidationError([]apperrors.ValidationErrorResponse{
			apperrors.FieldError("body", "This field is required"),
		})
	}

	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		s.metrics.observe(outcomeInvalid)
		fields := apperrors.FormatValidationErrors(err, req)
		logger.Warn("Signup rejected by validation", "fields", fields)
		return nil, apperrors.NewValidationError(fields)
	}

	valid, err := s.tokens.Validate(ctx, client.SessionID, req.CsrfToken)
	if err != nil {
		s.metrics.observe(outcomeFailed)
		logger.Error("CSRF token lookup failed", "error", err)
		return nil, apperrors.NewInternalServerError("Internal server error", err)
	}
	if !valid {
		s.metrics.observe(outcomeCsrf)
		logger.Warn("Signup rejected: CSRF token mismatch", "client_ip", client.IPAddress)
		return nil, apperrors.NewValidationError([]apperrors.ValidationErrorResponse{
			apperrors.FieldError("csrfToken", "Invalid or expired CSRF token"),
		})
	}

	clientIP := orUnknown(client.IPAddress)
	limited, err := s.limiter.IsLimited(ctx, "signup:"+clientIP)
	if err != nil {
		s.metrics.observe(outcomeFailed)
		logger.Error("Signup rate limiter unavailable", "client_ip", clientIP, "error", err)
		return nil, apperrors.NewInternalServerError("Internal server error", err)
	}
	if limited {
		s.metrics.observe(outcomeRateLimit)
		logger.Warn("Signup rate limit exceeded", "client_ip", clientIP)
		return nil, apperrors.NewRateLimitExceededError(nil)
	}

	existing, err := s.repository.FindEntryByEmail(ctx, req.Email)
	if err != nil {
		s.metrics.observe(outcomeFailed)
		logger.Error("Failed to check for existing signup", "error", err)
		return nil, err
	}
	if existing != nil {
		s.metrics.observe(outcomeDuplicate)
		logger.Info("Duplicate signup acknowledged", "entry_id", existing.ID)
		return &SignupResponse{Success: true, Duplicate: true}, nil
	}

	organization := req.Organization
	if organization == "" {
		organization = constants.OrganizationNotGiven
	}

	entry, err := s.repository.CreateEntry(ctx, &models.WaitlistEntry{
		Name:         req.Name,
		Email:        req.Email,
		Organization: organization,
		IPAddress:    clientIP,
		UserAgent:    orUnknown(client.UserAgent),
		Source:       constants.WaitlistSource,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		// A concurrent signup with the same email won the insert.
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			s.metrics.observe(outcomeDuplicate)
			return &SignupResponse{Success: true, Duplicate: true}, nil
		}
		s.metrics.observe(outcomeFailed)
		logger.Error("Failed to create waitlist entry", "error", err)
		return nil, err
	}

	s.notifier.Dispatch(ctx, notify.SignupEvent{
		Name:         entry.Name,
		Email:        entry.Email,
		Organization: entry.Organization,
		Source:       entry.Source,
		UserAgent:    entry.UserAgent,
		CreatedAt:    entry.CreatedAt,
	})

	s.metrics.observe(outcomeAccepted)
	logger.Info("New waitlist signup", "entry_id", entry.ID)
	return &SignupResponse{Success: true, Duplicate: false}, nil
}

func orUnknown(v string) string {
	if v == "" {
		return constants.UnknownClientValue
	}
	return v
}
