package notify

import (
	"context"
	"sync"
	"time"

	"github.com/spiralwrks/spiralworks.ai/internal/log"
)

const DefaultTimeout = 5 * time.Second

// AsyncNotifier runs each delivery on its own goroutine, detached from the
// caller's cancellation and bounded by timeout. Close waits for in-flight
// deliveries.
type AsyncNotifier struct {
	sink    Sink
	timeout time.Duration
	logger  *log.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncNotifier(sink Sink, timeout time.Duration, logger *log.Logger) *AsyncNotifier {
	if sink == nil {
		sink = NopSink{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AsyncNotifier{sink: sink, timeout: timeout, logger: logger}
}

func (a *AsyncNotifier) Dispatch(ctx context.Context, event SignupEvent) {
	logger := log.GetLoggerInstanceFromContext(ctx, a.logger)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		logger.Warn("Notifier closed; dropping signup notification", "email", event.Email)
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.sink.Notify(ctx, event); err != nil {
			logger.Error("Signup notification failed", "email", event.Email, "error", err)
			return
		}
		logger.Debug("Signup notification delivered", "email", event.Email)
	}()
}

// Close stops accepting events and waits for in-flight deliveries or ctx.
func (a *AsyncNotifier) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
