// Package notify delivers new-signup events to outside channels. Delivery is
// best effort: callers never see sink failures.
package notify

import (
	"context"
	"errors"
	"time"
)

type SignupEvent struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Organization string    `json:"organization"`
	Source       string    `json:"source"`
	UserAgent    string    `json:"userAgent"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Sink interface {
	Notify(ctx context.Context, event SignupEvent) error
}

// MultiSink fans an event out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, event SignupEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopSink drops events. Used when no channel is configured.
type NopSink struct{}

func (NopSink) Notify(context.Context, SignupEvent) error { return nil }
