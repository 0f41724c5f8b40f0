package waitlist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/internal/models"
	"github.com/spiralwrks/spiralworks.ai/pkg/csrf"
	apperrors "github.com/spiralwrks/spiralworks.ai/pkg/errors"
	"github.com/spiralwrks/spiralworks.ai/pkg/notify"
	"github.com/spiralwrks/spiralworks.ai/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSession = "0b6f4a52-3c1e-4d7a-9a43-5d2d3c9f1e77"

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.SignupEvent
}

func (n *recordingNotifier) Dispatch(_ context.Context, event notify.SignupEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []notify.SignupEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.SignupEvent(nil), n.events...)
}

// tokenStore stands in for the session-backed store outside a request.
type tokenStore struct {
	mu     sync.Mutex
	values map[string]string
}

func (s *tokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *tokenStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

type failingLimiter struct{}

func (failingLimiter) GetLimitDetails() (int, time.Duration) { return 5, time.Hour }
func (failingLimiter) IsLimited(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}
func (failingLimiter) Close() error { return nil }

type serviceFixture struct {
	repo     *MockWaitlistRepository
	tokens   *csrf.TokenService
	notifier *recordingNotifier
	registry *prometheus.Registry
	service  WaitlistService
	token    string
}

func newServiceFixture(t *testing.T, limiter ratelimit.RateLimiter) *serviceFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &serviceFixture{
		repo:     NewMockWaitlistRepository(ctrl),
		tokens:   csrf.NewTokenService(&tokenStore{values: map[string]string{}}, time.Hour),
		notifier: &recordingNotifier{},
		registry: prometheus.NewRegistry(),
	}
	if limiter == nil {
		limiter = ratelimit.NewInMemoryRateLimiter(5, time.Hour)
	}
	f.service = NewWaitlistService(log.NewDiscardLogger(), f.repo, limiter, f.tokens, f.notifier, f.registry)

	token, err := f.service.IssueCsrfToken(context.Background(), testSession)
	require.NoError(t, err)
	f.token = token
	return f
}

func (f *serviceFixture) request(email string) *SignupRequest {
	return &SignupRequest{Name: "Ada Lovelace", Email: email, Organization: "", CsrfToken: f.token}
}

func (f *serviceFixture) signups(outcome string) float64 {
	families, err := f.registry.Gather()
	if err != nil {
		return -1
	}
	for _, family := range families {
		if family.GetName() != "waitlist_signups_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

var client = ClientInfo{IPAddress: "203.0.113.7", UserAgent: "Mozilla/5.0", SessionID: testSession}

func TestWaitlistService_Signup(t *testing.T) {
	t.Run("new signup is stored normalized and announced", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		f.repo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(nil, nil)
		f.repo.EXPECT().
			CreateEntry(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
				assert.Equal(t, "ada@example.com", entry.Email)
				assert.Equal(t, "Ada Lovelace", entry.Name)
				assert.Equal(t, "Not provided", entry.Organization)
				assert.Equal(t, "website-waitlist", entry.Source)
				assert.Equal(t, "203.0.113.7", entry.IPAddress)
				assert.Equal(t, "Mozilla/5.0", entry.UserAgent)
				entry.ID = "generated"
				return entry, nil
			})

		resp, err := f.service.Signup(context.Background(), f.request("  Ada@Example.COM "), client)

		require.NoError(t, err)
		assert.Equal(t, &SignupResponse{Success: true, Duplicate: false}, resp)

		events := f.notifier.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "ada@example.com", events[0].Email)
		assert.Equal(t, "Not provided", events[0].Organization)
		assert.Equal(t, float64(1), f.signups(outcomeAccepted))
	})

	t.Run("known email answers duplicate without writing", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		f.repo.EXPECT().
			FindEntryByEmail(gomock.Any(), "ada@example.com").
			Return(&models.WaitlistEntry{ID: "existing", Email: "ada@example.com"}, nil)

		resp, err := f.service.Signup(context.Background(), f.request("ada@example.com"), client)

		require.NoError(t, err)
		assert.Equal(t, &SignupResponse{Success: true, Duplicate: true}, resp)
		assert.Empty(t, f.notifier.Events())
	})

	t.Run("insert conflict from a concurrent signup is a duplicate", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		f.repo.EXPECT().FindEntryByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)
		f.repo.EXPECT().
			CreateEntry(gomock.Any(), gomock.Any()).
			Return(nil, apperrors.NewConflictError("exists", nil))

		resp, err := f.service.Signup(context.Background(), f.request("ada@example.com"), client)

		require.NoError(t, err)
		assert.True(t, resp.Duplicate)
		assert.Empty(t, f.notifier.Events())
	})

	t.Run("validation failures list every field", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		req := &SignupRequest{Name: "A", Email: "not-an-email", CsrfToken: f.token}
		resp, err := f.service.Signup(context.Background(), req, client)

		assert.Nil(t, resp)
		require.Error(t, err)
		assert.Equal(t, apperrors.StatusBadRequest, apperrors.HTTPStatusCode(err))

		fields, ok := apperrors.GetDetails(err).([]apperrors.ValidationErrorResponse)
		require.True(t, ok)
		names := make([]string, 0, len(fields))
		for _, field := range fields {
			names = append(names, field.Field)
		}
		assert.ElementsMatch(t, []string{"name", "email"}, names)
		assert.Equal(t, float64(1), f.signups(outcomeInvalid))
	})

	t.Run("over-long organization is rejected", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		req := f.request("ada@example.com")
		req.Organization = strings.Repeat("x", 101)

		_, err := f.service.Signup(context.Background(), req, client)
		require.Error(t, err)
		assert.Equal(t, apperrors.StatusBadRequest, apperrors.HTTPStatusCode(err))
	})

	t.Run("nil request is a validation error", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		_, err := f.service.Signup(context.Background(), nil, client)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidRequest))
	})

	t.Run("wrong CSRF token is rejected before any lookup", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		req := f.request("ada@example.com")
		req.CsrfToken = "forged"

		_, err := f.service.Signup(context.Background(), req, client)

		require.Error(t, err)
		assert.Equal(t, apperrors.StatusBadRequest, apperrors.HTTPStatusCode(err))
		fields := apperrors.GetDetails(err).([]apperrors.ValidationErrorResponse)
		require.Len(t, fields, 1)
		assert.Equal(t, "csrfToken", fields[0].Field)
		assert.Equal(t, float64(1), f.signups(outcomeCsrf))
	})

	t.Run("token from another session is rejected", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		other := client
		other.SessionID = "5e0c1f0e-8a3b-4f55-9d8e-1d2a3b4c5d6e"

		_, err := f.service.Signup(context.Background(), f.request("ada@example.com"), other)
		assert.Equal(t, apperrors.StatusBadRequest, apperrors.HTTPStatusCode(err))
	})

	t.Run("sixth signup from one address within the hour is limited", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		f.repo.EXPECT().FindEntryByEmail(gomock.Any(), gomock.Any()).Return(nil, nil).Times(5)
		f.repo.EXPECT().
			CreateEntry(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
				return entry, nil
			}).
			Times(5)

		emails := []string{"a1@example.com", "a2@example.com", "a3@example.com", "a4@example.com", "a5@example.com"}
		for _, email := range emails {
			_, err := f.service.Signup(context.Background(), f.request(email), client)
			require.NoError(t, err)
		}

		_, err := f.service.Signup(context.Background(), f.request("a6@example.com"), client)
		require.Error(t, err)
		assert.Equal(t, apperrors.StatusTooManyRequests, apperrors.HTTPStatusCode(err))
		assert.Equal(t, "Too many requests, please try again later", apperrors.GetHumanReadableMessage(err))

		// Another address is unaffected.
		f.repo.EXPECT().FindEntryByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)
		f.repo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
				return entry, nil
			})
		other := client
		other.IPAddress = "198.51.100.4"
		_, err = f.service.Signup(context.Background(), f.request("a7@example.com"), other)
		assert.NoError(t, err)
	})

	t.Run("invalid requests do not consume the rate limit", func(t *testing.T) {
		limiter := ratelimit.NewInMemoryRateLimiter(1, time.Hour)
		f := newServiceFixture(t, limiter)

		for range 3 {
			_, err := f.service.Signup(context.Background(), &SignupRequest{CsrfToken: f.token}, client)
			require.Error(t, err)
		}
		assert.Equal(t, 0, limiter.Len())
	})

	t.Run("limiter outage fails closed", func(t *testing.T) {
		f := newServiceFixture(t, failingLimiter{})

		_, err := f.service.Signup(context.Background(), f.request("ada@example.com"), client)

		require.Error(t, err)
		assert.Equal(t, apperrors.StatusInternalServerError, apperrors.HTTPStatusCode(err))
		assert.Equal(t, "Internal server error", apperrors.GetHumanReadableMessage(err))
	})

	t.Run("storage failure is internal and hides the cause", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		f.repo.EXPECT().FindEntryByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)
		f.repo.EXPECT().
			CreateEntry(gomock.Any(), gomock.Any()).
			Return(nil, apperrors.NewDatabaseError("unable to create waitlist entry", errors.New("disk full")))

		_, err := f.service.Signup(context.Background(), f.request("ada@example.com"), client)

		require.Error(t, err)
		assert.Equal(t, apperrors.StatusInternalServerError, apperrors.HTTPStatusCode(err))
		assert.NotContains(t, apperrors.GetHumanReadableMessage(err), "disk full")
		assert.Empty(t, f.notifier.Events())
	})

	t.Run("missing client details are recorded as unknown", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		f.repo.EXPECT().FindEntryByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)
		f.repo.EXPECT().
			CreateEntry(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
				assert.Equal(t, "unknown", entry.IPAddress)
				assert.Equal(t, "unknown", entry.UserAgent)
				return entry, nil
			})

		_, err := f.service.Signup(context.Background(), f.request("ada@example.com"), ClientInfo{SessionID: testSession})
		assert.NoError(t, err)
	})
}

func TestWaitlistService_IssueCsrfToken(t *testing.T) {
	f := newServiceFixture(t, nil)

	second, err := f.service.IssueCsrfToken(context.Background(), testSession)
	require.NoError(t, err)
	assert.NotEqual(t, f.token, second)
	assert.Len(t, second, 64)

	_, err = f.service.IssueCsrfToken(context.Background(), "")
	assert.Equal(t, apperrors.StatusInternalServerError, apperrors.HTTPStatusCode(err))
}
