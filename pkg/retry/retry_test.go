package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{ temporary bool }

func (e statusErr) Error() string   { return "webhook status" }
func (e statusErr) Temporary() bool { return e.temporary }

func fastPolicy() *ExponentialBackoff {
	return NewExponentialBackoff(&Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2})
}

func TestExponentialBackoff_RetriesTemporaryFailures(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr{temporary: true}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExponentialBackoff_StopsOnPermanentFailure(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func(context.Context) error {
		calls++
		return statusErr{temporary: false}
	})

	assert.Error(t, err)
	assert.False(t, IsMaxRetriesExceeded(err))
	assert.Equal(t, 1, calls)
}

func TestExponentialBackoff_ReportsExhaustion(t *testing.T) {
	err := fastPolicy().Execute(context.Background(), func(context.Context) error {
		return errors.New("dial tcp: connection refused")
	})

	assert.True(t, IsMaxRetriesExceeded(err))
}

func TestExponentialBackoff_HonoursContext(t *testing.T) {
	policy := NewExponentialBackoff(&Config{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := policy.Execute(ctx, func(context.Context) error {
		return statusErr{temporary: true}
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
